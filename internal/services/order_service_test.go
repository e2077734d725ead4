package services

import (
	"errors"
	"testing"

	"metalworks_backend/internal/models"
	"metalworks_backend/internal/repositories"
)

func newOrderServiceForTest(t *testing.T) (*orderService, *fakeOrderRepo, *fakeStageRepo, *fakeConsumptionRepo, *fakeCatalogRepo) {
	t.Helper()
	catalog := newFakeCatalogRepo()
	orderRepo := newFakeOrderRepo()
	stageRepo := newFakeStageRepo()
	consumptionRepo := newFakeConsumptionRepo(catalog, orderRepo)
	svc := &orderService{
		orderRepo:       orderRepo,
		stageRepo:       stageRepo,
		catalogRepo:     catalog,
		consumptionRepo: consumptionRepo,
		begin:           func() (repositories.SQLTx, error) { return &fakeTx{}, nil },
	}
	return svc, orderRepo, stageRepo, consumptionRepo, catalog
}

func seedApprovedBudget(t *testing.T, catalog *fakeCatalogRepo) {
	t.Helper()
	catalog.budgets[1] = &models.Budget{ID: 1, ClientID: 1, ProductID: 1, SalePrice: 2500, Status: "approved"}
	catalog.products[1] = &models.Product{ID: 1, ProductTypeID: 1, Code: "SG-200", LaborHours: 10}
	catalog.materials[1] = &models.Material{ID: 1, Name: "Steel tube 40x40", Unit: "m", UnitPrice: 8.50}
	catalog.materials[2] = &models.Material{ID: 2, Name: "Electrode E6013", Unit: "kg", UnitPrice: 4.20}
	catalog.bom[1] = []models.BOMEntry{
		{ProductTypeID: 1, MaterialID: 1, QtyPerUnit: 12},
		{ProductTypeID: 1, MaterialID: 2, QtyPerUnit: 2.5},
	}
}

func TestCreateOrderSeedsStagesAndConsumption(t *testing.T) {
	svc, orderRepo, stageRepo, consumptionRepo, catalog := newOrderServiceForTest(t)
	seedApprovedBudget(t, catalog)

	order, err := svc.CreateOrder(CreateOrderRequest{BudgetID: 1, PromisedDays: 14})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.ID == 0 {
		t.Fatal("order ID not assigned")
	}
	stored, err := orderRepo.GetOrderByID(order.ID)
	if err != nil {
		t.Fatalf("created order not readable: %v", err)
	}
	if stored.TotalValue != 2500 {
		t.Errorf("total value = %.2f, want budget sale price 2500", stored.TotalValue)
	}
	if stored.PromisedDeliveryDate == nil {
		t.Error("promised delivery date not set for promised_days = 14")
	}
	if stored.Status != models.OrderStatusPending {
		t.Errorf("status = %s, want pending", stored.Status)
	}

	if len(stageRepo.stages) != 4 {
		t.Fatalf("stages = %d, want 4", len(stageRepo.stages))
	}
	totalMinutes := 0
	seen := map[string]bool{}
	for _, stage := range stageRepo.stages {
		if stage.OrderID != order.ID {
			t.Errorf("stage %d belongs to order %d, want %d", stage.ID, stage.OrderID, order.ID)
		}
		totalMinutes += stage.EstimatedMinutes
		seen[stage.StageType] = true
	}
	if totalMinutes != 600 {
		t.Errorf("stage minutes sum to %d, want 10h = 600", totalMinutes)
	}
	for _, stageType := range defaultStageTypes {
		if !seen[stageType] {
			t.Errorf("missing default stage %q", stageType)
		}
	}

	if len(consumptionRepo.rows) != 2 {
		t.Fatalf("consumption rows = %d, want 2 from BOM", len(consumptionRepo.rows))
	}
	if row := consumptionRepo.rows[consumptionKey{order.ID, 1}]; row == nil || row.PlannedQty != 12 {
		t.Errorf("material 1 planned = %+v, want 12", row)
	}
}

func TestCreateOrderRollsBackOnStageFailure(t *testing.T) {
	svc, orderRepo, stageRepo, consumptionRepo, catalog := newOrderServiceForTest(t)
	seedApprovedBudget(t, catalog)
	stageRepo.failStageType = "Welding"

	if _, err := svc.CreateOrder(CreateOrderRequest{BudgetID: 1}); err == nil {
		t.Fatal("CreateOrder succeeded despite stage creation failure")
	}
	if len(orderRepo.orders) != 0 {
		t.Errorf("orders left behind = %d, want 0", len(orderRepo.orders))
	}
	if len(stageRepo.stages) != 0 {
		t.Errorf("stages left behind = %d, want 0", len(stageRepo.stages))
	}
	if len(consumptionRepo.rows) != 0 {
		t.Errorf("consumption rows left behind = %d, want 0", len(consumptionRepo.rows))
	}
}

func TestSplitStageMinutesSumsExactly(t *testing.T) {
	totals := []int{0, 1, 2, 3, 59, 60, 100, 101, 599, 600, 601, 1234, 4800}
	for _, total := range totals {
		parts := splitStageMinutes(total)
		sum := 0
		for _, p := range parts {
			if p < 0 {
				t.Errorf("total %d: negative share %d", total, p)
			}
			sum += p
		}
		if sum != total {
			t.Errorf("total %d: shares %v sum to %d", total, parts, sum)
		}
	}
}

func TestSplitStageMinutesProportions(t *testing.T) {
	parts := splitStageMinutes(600)
	want := [4]int{150, 210, 150, 90}
	if parts != want {
		t.Errorf("split(600) = %v, want %v", parts, want)
	}
}

func TestCreateOrderRejectsBadBudget(t *testing.T) {
	catalog := newFakeCatalogRepo()
	orderRepo := newFakeOrderRepo()
	stageRepo := newFakeStageRepo()
	consumptionRepo := newFakeConsumptionRepo(catalog, orderRepo)
	svc := NewOrderService(orderRepo, stageRepo, catalog, consumptionRepo, nil)

	if _, err := svc.CreateOrder(CreateOrderRequest{BudgetID: 1, PromisedDays: -1}); !errors.Is(err, ErrValidation) {
		t.Errorf("negative promised_days: got %v, want ErrValidation", err)
	}
	if _, err := svc.CreateOrder(CreateOrderRequest{BudgetID: 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing budget: got %v, want ErrNotFound", err)
	}

	catalog.budgets[1] = &models.Budget{ID: 1, ClientID: 1, ProductID: 1, SalePrice: 2500, Status: "pending"}
	if _, err := svc.CreateOrder(CreateOrderRequest{BudgetID: 1}); !errors.Is(err, ErrValidation) {
		t.Errorf("unapproved budget: got %v, want ErrValidation", err)
	}
}

func TestUpdateOrderStatusValidation(t *testing.T) {
	catalog := newFakeCatalogRepo()
	orderRepo := newFakeOrderRepo()
	stageRepo := newFakeStageRepo()
	consumptionRepo := newFakeConsumptionRepo(catalog, orderRepo)
	svc := NewOrderService(orderRepo, stageRepo, catalog, consumptionRepo, nil)

	if err := svc.UpdateOrderStatus(1, UpdateOrderStatusRequest{Status: "shipped"}); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown status: got %v, want ErrValidation", err)
	}
	if err := svc.UpdateOrderStatus(1, UpdateOrderStatusRequest{Status: models.OrderStatusCompleted}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing order: got %v, want ErrNotFound", err)
	}

	id, err := orderRepo.CreateOrder(nil, &models.Order{ClientID: 1, ProductID: 1, Status: models.OrderStatusPending})
	if err != nil {
		t.Fatalf("seeding order failed: %v", err)
	}
	if err := svc.UpdateOrderStatus(id, UpdateOrderStatusRequest{Status: models.OrderStatusInProduction}); err != nil {
		t.Fatalf("UpdateOrderStatus failed: %v", err)
	}
	order, err := svc.GetOrderByID(id)
	if err != nil {
		t.Fatalf("GetOrderByID failed: %v", err)
	}
	if order.Status != models.OrderStatusInProduction {
		t.Errorf("status = %s, want in_production", order.Status)
	}
}

func TestConfirmDelivery(t *testing.T) {
	catalog := newFakeCatalogRepo()
	orderRepo := newFakeOrderRepo()
	stageRepo := newFakeStageRepo()
	consumptionRepo := newFakeConsumptionRepo(catalog, orderRepo)
	svc := NewOrderService(orderRepo, stageRepo, catalog, consumptionRepo, nil)

	if err := svc.ConfirmDelivery(1, ConfirmDeliveryRequest{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing order: got %v, want ErrNotFound", err)
	}

	id, err := orderRepo.CreateOrder(nil, &models.Order{ClientID: 1, ProductID: 1, Status: models.OrderStatusCompleted})
	if err != nil {
		t.Fatalf("seeding order failed: %v", err)
	}
	if err := svc.ConfirmDelivery(id, ConfirmDeliveryRequest{}); err != nil {
		t.Fatalf("ConfirmDelivery failed: %v", err)
	}
	order, err := svc.GetOrderByID(id)
	if err != nil {
		t.Fatalf("GetOrderByID failed: %v", err)
	}
	if order.Status != models.OrderStatusDelivered || order.ActualDeliveryDate == nil {
		t.Errorf("delivery not recorded: status = %s, date = %v", order.Status, order.ActualDeliveryDate)
	}
}
