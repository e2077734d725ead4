package repositories

import (
	"database/sql"
	"fmt"
	"metalworks_backend/internal/models"
	"time"
)

// ConsumptionRepository owns the planned-vs-actual material consumption rows.
// The (order, material) pair is the primary key; every write is an upsert so
// a second write to the same pair can never create a duplicate.
type ConsumptionRepository interface {
	// SeedPlanned upserts one consumption row per BOM entry of the order's
	// product type. Existing rows only get planned_qty refreshed: recorded
	// actual quantities survive re-seeding. Returns rows written.
	SeedPlanned(executor SQLExecutor, orderID int64) (int64, error)

	// UpsertActual records the real consumed quantity for one material of an
	// order, creating the row with planned_qty = 0 when it does not exist.
	UpsertActual(executor SQLExecutor, row *models.MaterialConsumption) error

	GetVariance(orderID int64) ([]models.ConsumptionVariance, error)
}

type consumptionRepository struct {
	db *sql.DB
}

// NewConsumptionRepository creates a new instance of ConsumptionRepository.
func NewConsumptionRepository(db *sql.DB) ConsumptionRepository {
	return &consumptionRepository{db: db}
}

func (r *consumptionRepository) SeedPlanned(executor SQLExecutor, orderID int64) (int64, error) {
	query := `INSERT INTO material_consumption (order_id, material_id, planned_qty, actual_qty, consumption_date)
	          SELECT o.id, pm.material_id, pm.qty_per_unit, 0, CURRENT_DATE
	          FROM orders o
	          JOIN products p ON o.product_id = p.id
	          JOIN product_materials pm ON p.product_type_id = pm.product_type_id
	          WHERE o.id = $1
	          ON CONFLICT (order_id, material_id)
	          DO UPDATE SET planned_qty = EXCLUDED.planned_qty`
	result, err := executor.Exec(query, orderID)
	if err != nil {
		return 0, mapPQError(err, fmt.Sprintf("seeding planned consumption for order %d", orderID))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for consumption seed of order %d: %v", ErrDatabaseError, orderID, err)
	}
	return rowsAffected, nil
}

func (r *consumptionRepository) UpsertActual(executor SQLExecutor, row *models.MaterialConsumption) error {
	query := `INSERT INTO material_consumption
	            (order_id, material_id, planned_qty, actual_qty, consumption_date, variance_reason)
	          VALUES ($1, $2, 0, $3, $4, $5)
	          ON CONFLICT (order_id, material_id)
	          DO UPDATE SET
	              actual_qty = EXCLUDED.actual_qty,
	              consumption_date = EXCLUDED.consumption_date,
	              variance_reason = EXCLUDED.variance_reason
	          RETURNING planned_qty`
	if row.ConsumptionDate.IsZero() {
		row.ConsumptionDate = time.Now()
	}
	err := executor.QueryRow(query, row.OrderID, row.MaterialID, row.ActualQty, row.ConsumptionDate, row.VarianceReason).
		Scan(&row.PlannedQty)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("recording actual consumption for order %d material %d", row.OrderID, row.MaterialID))
	}
	return nil
}

// GetVariance reads material cost from the catalog at query time, so reports
// always price consumption at the current unit price.
func (r *consumptionRepository) GetVariance(orderID int64) ([]models.ConsumptionVariance, error) {
	variances := []models.ConsumptionVariance{}
	query := `SELECT
	            mc.order_id,
	            mc.material_id,
	            m.name AS material_name,
	            m.unit,
	            mc.planned_qty,
	            mc.actual_qty,
	            mc.actual_qty - mc.planned_qty AS variance,
	            ROUND((mc.actual_qty - mc.planned_qty) / NULLIF(mc.planned_qty, 0) * 100, 1) AS variance_pct,
	            ROUND(mc.actual_qty * m.unit_price, 2) AS cost,
	            mc.variance_reason
	          FROM material_consumption mc
	          JOIN materials m ON mc.material_id = m.id
	          WHERE mc.order_id = $1
	          ORDER BY cost DESC`
	rows, err := r.db.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying consumption variance for order %d: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var v models.ConsumptionVariance
		if err := rows.Scan(
			&v.OrderID, &v.MaterialID, &v.MaterialName, &v.Unit,
			&v.PlannedQty, &v.ActualQty, &v.Variance, &v.VariancePct, &v.Cost, &v.Reason,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning consumption variance: %v", ErrDatabaseError, err)
		}
		variances = append(variances, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating consumption variance rows: %v", ErrDatabaseError, err)
	}
	return variances, nil
}
