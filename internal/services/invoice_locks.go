package services

import (
	"sync"
	"time"
)

// invoiceLocks hands out one binary semaphore per invoice id. It serializes
// same-process payment attempts on an invoice before the database row lock is
// even tried, which keeps lock waits short and gives the caller a clean Busy
// signal on timeout instead of a driver error.
//
// Entries are never evicted; the map is bounded by the number of invoices
// ever paid through this process, a few bytes each.
type invoiceLocks struct {
	mu    sync.Mutex
	locks map[int64]chan struct{}
}

func newInvoiceLocks() *invoiceLocks {
	return &invoiceLocks{locks: make(map[int64]chan struct{})}
}

func (l *invoiceLocks) get(invoiceID int64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[invoiceID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[invoiceID] = ch
	}
	return ch
}

// Acquire blocks until the invoice's lock is free or the timeout elapses.
// Returns false on timeout; the caller must not proceed in that case.
func (l *invoiceLocks) Acquire(invoiceID int64, timeout time.Duration) bool {
	ch := l.get(invoiceID)
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

// Release frees the invoice's lock. Must only be called after a successful
// Acquire.
func (l *invoiceLocks) Release(invoiceID int64) {
	<-l.get(invoiceID)
}
