package meli

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"MeliTbcRecon/api/orders"
)

// SyncResult reports what one sync pass did.
type SyncResult struct {
	TotalProcesadas int      `json:"total_procesadas"`
	Nuevas          int      `json:"nuevas"`
	Existentes      int      `json:"existentes"`
	Errores         int      `json:"errores"`
	ErrorDetails    []string `json:"error_details,omitempty"`
}

func (r *SyncResult) String() string {
	return fmt.Sprintf("%d procesadas, %d nuevas, %d existentes, %d errores",
		r.TotalProcesadas, r.Nuevas, r.Existentes, r.Errores)
}

// SyncOrders pulls the latest page of ML orders and inserts the ones the
// store has not seen. Existing orders are left untouched so assigned
// remisiones survive a re-sync.
func SyncOrders(ctx context.Context, pool *pgxpool.Pool, client *Client, limit int) (*SyncResult, error) {
	token, err := LoadToken(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("no ML token available: %w", err)
	}

	ordenes, err := client.GetOrders(ctx, token.AccessToken, token.UserID, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ML orders: %w", err)
	}

	result := &SyncResult{TotalProcesadas: len(ordenes)}
	for _, orden := range ordenes {
		rec := TransformOrder(orden)

		exists, err := orders.Exists(ctx, pool, rec.OrderID)
		if err != nil {
			result.Errores++
			result.ErrorDetails = append(result.ErrorDetails,
				fmt.Sprintf("orden %s: %v", rec.OrderID, err))
			continue
		}
		if exists {
			result.Existentes++
			continue
		}

		if err := orders.Insert(ctx, pool, rec); err != nil {
			result.Errores++
			result.ErrorDetails = append(result.ErrorDetails,
				fmt.Sprintf("orden %s: %v", rec.OrderID, err))
			continue
		}
		result.Nuevas++
	}

	log.Printf("[Meli] sync: %s", result)
	return result, nil
}
