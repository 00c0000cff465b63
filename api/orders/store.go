package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"MeliTbcRecon/api/recon/engine"
)

// ListFilter narrows a query over ml_orders. ConRemision is tri-state: nil
// means both, true only assigned orders, false only unassigned ones.
type ListFilter struct {
	FechaDesde  string `json:"fecha_desde,omitempty"`
	FechaHasta  string `json:"fecha_hasta,omitempty"`
	ConRemision *bool  `json:"con_remision,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// Stats summarizes the state of the order store.
type Stats struct {
	TotalOrdenes            int `json:"total_ordenes"`
	OrdenesConRemision      int `json:"ordenes_con_remision"`
	OrdenesSinRemision      int `json:"ordenes_sin_remision"`
	DiscrepanciasPendientes int `json:"discrepancias_pendientes"`
}

const orderColumns = `order_id, pack_id, shipping_id, fecha_orden, total, productos,
	buyer_name, buyer_nickname, remision, fecha_remision, usuario, observaciones`

func scanOrder(row pgx.Row) (engine.OrderRecord, error) {
	var (
		o                                engine.OrderRecord
		packID, shippingID               *string
		total                            *float64
		buyerName, buyerNickname         *string
		remision, usuario, observaciones *string
		fechaRemision                    *time.Time
	)
	err := row.Scan(&o.OrderID, &packID, &shippingID, &o.FechaOrden, &total, &o.Productos,
		&buyerName, &buyerNickname, &remision, &fechaRemision, &usuario, &observaciones)
	if err != nil {
		return o, err
	}
	o.Total = total
	if packID != nil {
		o.PackID = *packID
	}
	if shippingID != nil {
		o.ShippingID = *shippingID
	}
	if buyerName != nil {
		o.BuyerName = *buyerName
	}
	if buyerNickname != nil {
		o.BuyerNickname = *buyerNickname
	}
	if remision != nil {
		o.Remision = *remision
	}
	if fechaRemision != nil {
		o.FechaRemision = fechaRemision.Format("2006-01-02")
	}
	if usuario != nil {
		o.Usuario = *usuario
	}
	if observaciones != nil {
		o.Observaciones = *observaciones
	}
	return o, nil
}

// Insert stores a new ML order. Remision fields start out null; they are
// filled later through AssignRemision.
func Insert(ctx context.Context, pool *pgxpool.Pool, o engine.OrderRecord) error {
	nullable := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO ml_orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, NULL, NULL, NULL)`,
		o.OrderID, nullable(o.PackID), nullable(o.ShippingID), o.FechaOrden, o.Total,
		o.Productos, nullable(o.BuyerName), nullable(o.BuyerNickname))
	return err
}

// Exists reports whether an order is already in the store.
func Exists(ctx context.Context, pool *pgxpool.Pool, orderID string) (bool, error) {
	var found bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ml_orders WHERE order_id = $1)`, orderID).Scan(&found)
	return found, err
}

// GetByOrderID fetches one order. Returns pgx.ErrNoRows when absent so the
// caller can tell "not found" from a failed query.
func GetByOrderID(ctx context.Context, pool *pgxpool.Pool, orderID string) (engine.OrderRecord, error) {
	row := pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM ml_orders WHERE order_id = $1`, orderID)
	return scanOrder(row)
}

// List returns orders newest first, optionally narrowed by date range and
// remision state.
func List(ctx context.Context, pool *pgxpool.Pool, f ListFilter) ([]engine.OrderRecord, error) {
	query := `SELECT ` + orderColumns + ` FROM ml_orders WHERE 1=1`
	args := []interface{}{}
	argn := 0

	if f.FechaDesde != "" {
		argn++
		query += fmt.Sprintf(" AND fecha_orden >= $%d", argn)
		args = append(args, f.FechaDesde)
	}
	if f.FechaHasta != "" {
		argn++
		query += fmt.Sprintf(" AND fecha_orden <= $%d", argn)
		args = append(args, f.FechaHasta)
	}
	if f.ConRemision != nil {
		if *f.ConRemision {
			query += " AND remision IS NOT NULL"
		} else {
			query += " AND remision IS NULL"
		}
	}
	query += " ORDER BY fecha_orden DESC"
	if f.Limit > 0 {
		argn++
		query += fmt.Sprintf(" LIMIT $%d", argn)
		args = append(args, f.Limit)
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ordenes := []engine.OrderRecord{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		ordenes = append(ordenes, o)
	}
	return ordenes, rows.Err()
}

// AssignRemision links an ML order to a TBC remision number.
func AssignRemision(ctx context.Context, pool *pgxpool.Pool, orderID, remision, fechaRemision, usuario string) error {
	if usuario == "" {
		usuario = "Sistema"
	}
	tag, err := pool.Exec(ctx, `
		UPDATE ml_orders
		SET remision = $2, fecha_remision = $3, usuario = $4
		WHERE order_id = $1`,
		orderID, remision, fechaRemision, usuario)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("orden %s no existe", orderID)
	}
	return nil
}

// GetStats returns the store-wide counters shown on the dashboard.
func GetStats(ctx context.Context, pool *pgxpool.Pool) (Stats, error) {
	var s Stats
	err := pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(remision),
			COUNT(*) - COUNT(remision),
			(SELECT COUNT(*) FROM discrepancias WHERE resuelto = false)
		FROM ml_orders`).Scan(
		&s.TotalOrdenes, &s.OrdenesConRemision, &s.OrdenesSinRemision, &s.DiscrepanciasPendientes)
	return s, err
}
