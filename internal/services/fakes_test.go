package services

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"metalworks_backend/internal/models"
	"metalworks_backend/internal/repositories"
)

// In-memory repository fakes. They reproduce the repository contracts
// (sentinel errors, upsert semantics, the guarded payment insert) so the
// services can be tested without a database.

// fakeTx satisfies repositories.SQLTx. Writes made through it apply
// immediately, like rows visible inside an open transaction, and each
// registers an undo that Rollback replays unless Commit ran first.
type fakeTx struct {
	mu        sync.Mutex
	undo      []func()
	committed bool
}

func (t *fakeTx) Exec(string, ...interface{}) (sql.Result, error) { return nil, nil }
func (t *fakeTx) QueryRow(string, ...interface{}) *sql.Row        { return nil }
func (t *fakeTx) Query(string, ...interface{}) (*sql.Rows, error) { return nil, nil }

func (t *fakeTx) addUndo(undo func()) {
	t.mu.Lock()
	t.undo = append(t.undo, undo)
	t.mu.Unlock()
}

func (t *fakeTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	t.undo = nil
	return nil
}

func (t *fakeTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed {
		return sql.ErrTxDone
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	return nil
}

// registerUndo attaches a compensating action when the write ran inside a
// fakeTx. Writes with a plain executor are final immediately.
func registerUndo(executor repositories.SQLExecutor, undo func()) {
	if tx, ok := executor.(*fakeTx); ok {
		tx.addUndo(undo)
	}
}

type fakeCatalogRepo struct {
	clients   map[int64]*models.Client
	materials map[int64]*models.Material
	products  map[int64]*models.Product
	budgets   map[int64]*models.Budget
	bom       map[int64][]models.BOMEntry
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		clients:   make(map[int64]*models.Client),
		materials: make(map[int64]*models.Material),
		products:  make(map[int64]*models.Product),
		budgets:   make(map[int64]*models.Budget),
		bom:       make(map[int64][]models.BOMEntry),
	}
}

func (f *fakeCatalogRepo) GetClientByID(id int64) (*models.Client, error) {
	if c, ok := f.clients[id]; ok {
		return c, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCatalogRepo) GetClients() ([]models.Client, error) {
	out := []models.Client{}
	for _, c := range f.clients {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCatalogRepo) GetMaterialByID(id int64) (*models.Material, error) {
	if m, ok := f.materials[id]; ok {
		return m, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCatalogRepo) GetMaterials() ([]models.Material, error) {
	out := []models.Material{}
	for _, m := range f.materials {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeCatalogRepo) GetProductByID(id int64) (*models.Product, error) {
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCatalogRepo) GetBudgetByID(id int64) (*models.Budget, error) {
	if b, ok := f.budgets[id]; ok {
		return b, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCatalogRepo) GetBOM(productTypeID int64) ([]models.BOMEntry, error) {
	return f.bom[productTypeID], nil
}

type fakeOrderRepo struct {
	mu      sync.Mutex
	orders  map[int64]*models.Order
	billing map[int64]*repositories.OrderBilling
	nextID  int64
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:  make(map[int64]*models.Order),
		billing: make(map[int64]*repositories.OrderBilling),
		nextID:  1,
	}
}

func (f *fakeOrderRepo) CreateOrder(executor repositories.SQLExecutor, order *models.Order) (int64, error) {
	f.mu.Lock()
	order.ID = f.nextID
	f.nextID++
	copied := *order
	f.orders[order.ID] = &copied
	f.mu.Unlock()
	registerUndo(executor, func() {
		f.mu.Lock()
		delete(f.orders, copied.ID)
		f.mu.Unlock()
	})
	return order.ID, nil
}

func (f *fakeOrderRepo) GetOrderByID(id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeOrderRepo) GetOrders(_ models.OrderFilters) ([]models.Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (f *fakeOrderRepo) UpdateOrderStatus(_ repositories.SQLExecutor, id int64, status string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = updatedAt
	return nil
}

func (f *fakeOrderRepo) ConfirmDelivery(_ repositories.SQLExecutor, id int64, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	o.ActualDeliveryDate = &date
	o.Status = models.OrderStatusDelivered
	return nil
}

func (f *fakeOrderRepo) GetOrderBilling(id int64) (*repositories.OrderBilling, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.billing[id]; ok {
		return b, nil
	}
	return nil, repositories.ErrNotFound
}

type fakeStageRepo struct {
	mu     sync.Mutex
	stages map[int64]*models.ProductionStage
	events []models.TimeEvent
	nextID int64

	// failStageType makes CreateStage fail for that stage type.
	failStageType string
	// failAppend makes AppendTimeEvent fail.
	failAppend bool
}

func newFakeStageRepo() *fakeStageRepo {
	return &fakeStageRepo{stages: make(map[int64]*models.ProductionStage), nextID: 1}
}

func (f *fakeStageRepo) CreateStage(executor repositories.SQLExecutor, stage *models.ProductionStage) (int64, error) {
	f.mu.Lock()
	if f.failStageType != "" && stage.StageType == f.failStageType {
		f.mu.Unlock()
		return 0, repositories.ErrDatabaseError
	}
	stage.ID = f.nextID
	f.nextID++
	stage.CreatedAt = time.Now()
	copied := *stage
	f.stages[stage.ID] = &copied
	f.mu.Unlock()
	registerUndo(executor, func() {
		f.mu.Lock()
		delete(f.stages, copied.ID)
		f.mu.Unlock()
	})
	return stage.ID, nil
}

func (f *fakeStageRepo) GetStageByID(id int64) (*models.ProductionStage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.stages[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeStageRepo) StartStage(id int64, now time.Time) (*models.ProductionStage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stages[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if s.Status == models.StageStatusCompleted {
		return nil, repositories.ErrInvalidState
	}
	if s.StartedAt == nil {
		started := now
		s.StartedAt = &started
	}
	s.Status = models.StageStatusInProgress
	copied := *s
	return &copied, nil
}

func (f *fakeStageRepo) FinishStage(id int64, now time.Time) (*models.ProductionStage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stages[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if s.Status != models.StageStatusCompleted {
		if s.StartedAt == nil {
			started := now
			s.StartedAt = &started
		}
		finished := now
		s.FinishedAt = &finished
		minutes := int(math.Round(finished.Sub(*s.StartedAt).Minutes()))
		if minutes < 0 {
			minutes = 0
		}
		s.ActualMinutes = &minutes
		s.Status = models.StageStatusCompleted
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStageRepo) SetPaused(id int64, paused bool) (*models.ProductionStage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stages[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if paused {
		if s.Status != models.StageStatusInProgress {
			return nil, repositories.ErrInvalidState
		}
		s.Status = models.StageStatusPaused
	} else {
		if s.Status != models.StageStatusPaused {
			return nil, repositories.ErrInvalidState
		}
		s.Status = models.StageStatusInProgress
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStageRepo) GetActiveStages() ([]models.ActiveStage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ActiveStage{}
	now := time.Now()
	for _, s := range f.stages {
		if s.Status != models.StageStatusInProgress && s.Status != models.StageStatusPaused {
			continue
		}
		row := models.ActiveStage{ProductionStage: *s}
		if s.StartedAt != nil {
			minutes := int(now.Sub(*s.StartedAt).Minutes())
			row.MinutesSinceStart = &minutes
			row.IsLate = minutes > s.EstimatedMinutes
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeStageRepo) GetStagesByOrder(orderID int64) ([]models.OrderStage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.OrderStage{}
	for _, s := range f.stages {
		if s.OrderID != orderID {
			continue
		}
		row := models.OrderStage{ProductionStage: *s}
		if s.ActualMinutes != nil && s.EstimatedMinutes > 0 {
			pct := float64(*s.ActualMinutes) / float64(s.EstimatedMinutes) * 100
			row.EfficiencyPct = &pct
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeStageRepo) AppendTimeEvent(_ repositories.SQLExecutor, event *models.TimeEvent) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend {
		return 0, repositories.ErrDatabaseError
	}
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, *event)
	return event.ID, nil
}

func (f *fakeStageRepo) GetTimeLog(stageID int64) ([]models.TimeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.TimeEvent{}
	for _, e := range f.events {
		if e.StageID == stageID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStageRepo) eventKinds(stageID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds := []string{}
	for _, e := range f.events {
		if e.StageID == stageID {
			kinds = append(kinds, e.EventKind)
		}
	}
	return kinds
}

type consumptionKey struct {
	orderID    int64
	materialID int64
}

type fakeConsumptionRepo struct {
	mu      sync.Mutex
	rows    map[consumptionKey]*models.MaterialConsumption
	catalog *fakeCatalogRepo
	orders  *fakeOrderRepo
}

func newFakeConsumptionRepo(catalog *fakeCatalogRepo, orders *fakeOrderRepo) *fakeConsumptionRepo {
	return &fakeConsumptionRepo{
		rows:    make(map[consumptionKey]*models.MaterialConsumption),
		catalog: catalog,
		orders:  orders,
	}
}

func (f *fakeConsumptionRepo) SeedPlanned(executor repositories.SQLExecutor, orderID int64) (int64, error) {
	order, err := f.orders.GetOrderByID(orderID)
	if err != nil {
		return 0, err
	}
	product, err := f.catalog.GetProductByID(order.ProductID)
	if err != nil {
		return 0, err
	}
	entries, _ := f.catalog.GetBOM(product.ProductTypeID)

	f.mu.Lock()
	var written int64
	var undos []func()
	for _, entry := range entries {
		key := consumptionKey{orderID, entry.MaterialID}
		if row, ok := f.rows[key]; ok {
			prev := row.PlannedQty
			row.PlannedQty = entry.QtyPerUnit
			undos = append(undos, func() { row.PlannedQty = prev })
		} else {
			f.rows[key] = &models.MaterialConsumption{
				OrderID:    orderID,
				MaterialID: entry.MaterialID,
				PlannedQty: entry.QtyPerUnit,
			}
			undos = append(undos, func() { delete(f.rows, key) })
		}
		written++
	}
	f.mu.Unlock()
	registerUndo(executor, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i]()
		}
	})
	return written, nil
}

func (f *fakeConsumptionRepo) UpsertActual(_ repositories.SQLExecutor, row *models.MaterialConsumption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := consumptionKey{row.OrderID, row.MaterialID}
	if existing, ok := f.rows[key]; ok {
		existing.ActualQty = row.ActualQty
		existing.ConsumptionDate = row.ConsumptionDate
		existing.VarianceReason = row.VarianceReason
		row.PlannedQty = existing.PlannedQty
	} else {
		copied := *row
		f.rows[key] = &copied
	}
	return nil
}

func (f *fakeConsumptionRepo) GetVariance(orderID int64) ([]models.ConsumptionVariance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ConsumptionVariance{}
	for key, row := range f.rows {
		if key.orderID != orderID {
			continue
		}
		v := models.ConsumptionVariance{
			OrderID:    row.OrderID,
			MaterialID: row.MaterialID,
			PlannedQty: row.PlannedQty,
			ActualQty:  row.ActualQty,
			Variance:   row.ActualQty - row.PlannedQty,
			Reason:     row.VarianceReason,
		}
		if row.PlannedQty != 0 {
			pct := (row.ActualQty - row.PlannedQty) / row.PlannedQty * 100
			v.VariancePct = &pct
		}
		if m, ok := f.catalog.materials[row.MaterialID]; ok {
			v.MaterialName = m.Name
			v.Cost = row.ActualQty * m.UnitPrice
		}
		out = append(out, v)
	}
	return out, nil
}

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[int64]*models.Invoice
	items    map[int64][]models.InvoiceItem
	payments map[int64][]models.Payment
	nextID   int64
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: make(map[int64]*models.Invoice),
		items:    make(map[int64][]models.InvoiceItem),
		payments: make(map[int64][]models.Payment),
		nextID:   1,
	}
}

func (f *fakeInvoiceRepo) create(invoice *models.Invoice) {
	invoice.ID = f.nextID
	f.nextID++
	invoice.InvoiceNumber = fmt.Sprintf("FT-2026-%05d", invoice.ID)
	if invoice.IssueDate.IsZero() {
		invoice.IssueDate = time.Now()
	}
	copied := *invoice
	f.invoices[invoice.ID] = &copied
}

func (f *fakeInvoiceRepo) CreateInvoice(invoice *models.Invoice) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusDraft
	}
	f.create(invoice)
	return invoice.ID, nil
}

func (f *fakeInvoiceRepo) CreateInvoiceWithItem(invoice *models.Invoice, item *models.InvoiceItem) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusIssued
	}
	f.create(invoice)
	item.InvoiceID = invoice.ID
	f.items[invoice.ID] = append(f.items[invoice.ID], *item)
	f.recomputeTotals(invoice.ID)
	return invoice.ID, nil
}

func (f *fakeInvoiceRepo) recomputeTotals(invoiceID int64) {
	inv := f.invoices[invoiceID]
	inv.BaseAmount, inv.VATAmount, inv.TotalAmount = 0, 0, 0
	for _, it := range f.items[invoiceID] {
		inv.BaseAmount += it.LineBase
		inv.VATAmount += it.LineVAT
		inv.TotalAmount += it.LineTotal
	}
}

func (f *fakeInvoiceRepo) AddItemRecomputingTotals(item *models.InvoiceItem) (*models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[item.InvoiceID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	item.ID = int64(len(f.items[item.InvoiceID]) + 1)
	f.items[item.InvoiceID] = append(f.items[item.InvoiceID], *item)
	f.recomputeTotals(item.InvoiceID)
	copied := *inv
	return &copied, nil
}

func (f *fakeInvoiceRepo) paidLocked(invoiceID int64) float64 {
	var paid float64
	for _, p := range f.payments[invoiceID] {
		paid += p.Amount
	}
	return paid
}

func (f *fakeInvoiceRepo) InsertPaymentGuarded(payment *models.Payment) (int64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[payment.InvoiceID]
	if !ok {
		return 0, 0, repositories.ErrNotFound
	}
	if inv.Status == models.InvoiceStatusDraft || inv.Status == models.InvoiceStatusCancelled {
		return 0, 0, repositories.ErrInvalidState
	}
	balance := inv.TotalAmount - f.paidLocked(payment.InvoiceID)
	if balance < 0 {
		balance = 0
	}
	if payment.Amount > balance {
		return 0, balance, repositories.ErrBalanceExceeded
	}
	payment.ID = int64(len(f.payments[payment.InvoiceID]) + 1)
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now()
	}
	f.payments[payment.InvoiceID] = append(f.payments[payment.InvoiceID], *payment)
	if f.paidLocked(payment.InvoiceID) >= inv.TotalAmount {
		inv.Status = models.InvoiceStatusPaid
	} else {
		inv.Status = models.InvoiceStatusPartial
	}
	return payment.ID, balance, nil
}

func (f *fakeInvoiceRepo) GetInvoiceByID(invoiceID int64) (*models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *inv
	copied.PaidAmount = f.paidLocked(invoiceID)
	copied.Balance = copied.TotalAmount - copied.PaidAmount
	if copied.Balance < 0 {
		copied.Balance = 0
	}
	copied.Status = models.DeriveInvoiceStatus(inv.Status, copied.TotalAmount, copied.PaidAmount, inv.DueDate, time.Now())
	return &copied, nil
}

func (f *fakeInvoiceRepo) GetInvoices(_ models.InvoiceFilters) ([]models.Invoice, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Invoice{}
	for _, inv := range f.invoices {
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (f *fakeInvoiceRepo) GetItemsByInvoiceID(invoiceID int64) ([]models.InvoiceItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.InvoiceItem{}, f.items[invoiceID]...), nil
}

func (f *fakeInvoiceRepo) GetPaymentsByInvoiceID(invoiceID int64) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Payment{}, f.payments[invoiceID]...), nil
}

func (f *fakeInvoiceRepo) RefreshOverdue() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var updated int64
	today := time.Now().Truncate(24 * time.Hour)
	for id, inv := range f.invoices {
		if inv.Status != models.InvoiceStatusIssued && inv.Status != models.InvoiceStatusPartial {
			continue
		}
		if inv.DueDate == nil || !inv.DueDate.Before(today) {
			continue
		}
		if inv.TotalAmount-f.paidLocked(id) <= 0 {
			continue
		}
		inv.Status = models.InvoiceStatusOverdue
		updated++
	}
	return updated, nil
}

func (f *fakeInvoiceRepo) CancelInvoice(invoiceID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return repositories.ErrNotFound
	}
	if inv.Status != models.InvoiceStatusDraft && inv.Status != models.InvoiceStatusIssued {
		return repositories.ErrInvalidState
	}
	inv.Status = models.InvoiceStatusCancelled
	return nil
}
