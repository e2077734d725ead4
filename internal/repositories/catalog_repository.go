package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"metalworks_backend/internal/models"

	"github.com/lib/pq"
)

// CatalogRepository exposes the read-only client/product/material/budget
// catalog the ledger consumes. The catalog itself is maintained by the
// external intake forms, never written through this interface.
type CatalogRepository interface {
	GetClientByID(clientID int64) (*models.Client, error)
	GetClients() ([]models.Client, error)
	GetMaterialByID(materialID int64) (*models.Material, error)
	GetMaterials() ([]models.Material, error)
	GetProductByID(productID int64) (*models.Product, error)
	GetBudgetByID(budgetID int64) (*models.Budget, error)
	GetBOM(productTypeID int64) ([]models.BOMEntry, error)
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository.
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetClientByID(clientID int64) (*models.Client, error) {
	client := &models.Client{}
	query := `SELECT id, name, contact, email, address, client_type, vat_number, created_at
	          FROM clients
	          WHERE id = $1`
	err := r.db.QueryRow(query, clientID).Scan(
		&client.ID, &client.Name, &client.Contact, &client.Email, &client.Address,
		&client.ClientType, &client.VATNumber, &client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting client by ID %d: %v", ErrDatabaseError, clientID, err)
	}
	return client, nil
}

func (r *catalogRepository) GetClients() ([]models.Client, error) {
	clients := []models.Client{}
	query := `SELECT id, name, contact, email, address, client_type, vat_number, created_at
	          FROM clients
	          ORDER BY name`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying clients: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Contact, &c.Email, &c.Address,
			&c.ClientType, &c.VATNumber, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning client: %v", ErrDatabaseError, err)
		}
		clients = append(clients, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating client rows: %v", ErrDatabaseError, err)
	}
	return clients, nil
}

func (r *catalogRepository) GetMaterialByID(materialID int64) (*models.Material, error) {
	m := &models.Material{}
	query := `SELECT id, name, material_type, unit, unit_price, current_stock, min_stock
	          FROM materials
	          WHERE id = $1`
	err := r.db.QueryRow(query, materialID).Scan(
		&m.ID, &m.Name, &m.MaterialType, &m.Unit, &m.UnitPrice, &m.CurrentStock, &m.MinStock,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting material by ID %d: %v", ErrDatabaseError, materialID, err)
	}
	return m, nil
}

func (r *catalogRepository) GetMaterials() ([]models.Material, error) {
	materials := []models.Material{}
	query := `SELECT id, name, material_type, unit, unit_price, current_stock, min_stock
	          FROM materials
	          ORDER BY name`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying materials: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Material
		if err := rows.Scan(&m.ID, &m.Name, &m.MaterialType, &m.Unit, &m.UnitPrice,
			&m.CurrentStock, &m.MinStock); err != nil {
			return nil, fmt.Errorf("%w: scanning material: %v", ErrDatabaseError, err)
		}
		materials = append(materials, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating material rows: %v", ErrDatabaseError, err)
	}
	return materials, nil
}

func (r *catalogRepository) GetProductByID(productID int64) (*models.Product, error) {
	p := &models.Product{}
	pt := &models.ProductType{}
	query := `SELECT p.id, p.product_type_id, p.code, p.description, p.labor_hours, p.complexity,
	                 pt.id, pt.name, pt.category
	          FROM products p
	          JOIN product_types pt ON p.product_type_id = pt.id
	          WHERE p.id = $1`
	err := r.db.QueryRow(query, productID).Scan(
		&p.ID, &p.ProductTypeID, &p.Code, &p.Description, &p.LaborHours, &p.Complexity,
		&pt.ID, &pt.Name, &pt.Category,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting product by ID %d: %v", ErrDatabaseError, productID, err)
	}
	p.ProductType = pt
	return p, nil
}

func (r *catalogRepository) GetBudgetByID(budgetID int64) (*models.Budget, error) {
	b := &models.Budget{}
	query := `SELECT id, client_id, product_id, budget_date, material_cost, labor_cost,
	                 other_costs, margin_pct, sale_price, status, valid_days, notes
	          FROM budgets
	          WHERE id = $1`
	err := r.db.QueryRow(query, budgetID).Scan(
		&b.ID, &b.ClientID, &b.ProductID, &b.BudgetDate, &b.MaterialCost, &b.LaborCost,
		&b.OtherCosts, &b.MarginPct, &b.SalePrice, &b.Status, &b.ValidDays, &b.Notes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting budget by ID %d: %v", ErrDatabaseError, budgetID, err)
	}
	return b, nil
}

func (r *catalogRepository) GetBOM(productTypeID int64) ([]models.BOMEntry, error) {
	entries := []models.BOMEntry{}
	query := `SELECT product_type_id, material_id, qty_per_unit
	          FROM product_materials
	          WHERE product_type_id = $1
	          ORDER BY material_id`
	rows, err := r.db.Query(query, productTypeID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying BOM for product type %d: %v", ErrDatabaseError, productTypeID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.BOMEntry
		if err := rows.Scan(&e.ProductTypeID, &e.MaterialID, &e.QtyPerUnit); err != nil {
			return nil, fmt.Errorf("%w: scanning BOM entry: %v", ErrDatabaseError, err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating BOM rows: %v", ErrDatabaseError, err)
	}
	return entries, nil
}

// mapPQError converts driver-level constraint failures to repository
// sentinels so that services never inspect pq codes directly.
func mapPQError(err error, context string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrDuplicateKey, context)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrForeignKeyViolation, context)
		case "55P03": // lock_not_available
			return fmt.Errorf("%w: %s", ErrLockNotAvailable, context)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrDatabaseError, context, err)
}
