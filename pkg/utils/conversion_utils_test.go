package utils

import "testing"

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1.004, 1.00},
		{1.006, 1.01},
		{22.9977, 23.00},
		{99.99000000000001, 99.99},
		{-1.005, -1.00},
		{123.456, 123.46},
	}
	for _, tt := range tests {
		if got := RoundMoney(tt.in); got != tt.want {
			t.Errorf("RoundMoney(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMoneyToCents(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{1.00, 100},
		{123.01, 12301},
		{0.1 + 0.2, 30},
		{99.99, 9999},
	}
	for _, tt := range tests {
		if got := MoneyToCents(tt.in); got != tt.want {
			t.Errorf("MoneyToCents(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestInt64StrRoundTrip(t *testing.T) {
	n, err := StrToInt64(Int64ToStr(-42))
	if err != nil {
		t.Fatalf("StrToInt64 failed: %v", err)
	}
	if n != -42 {
		t.Errorf("round trip = %d, want -42", n)
	}
	if _, err := StrToInt64("not-a-number"); err == nil {
		t.Error("expected error for malformed input")
	}
}
