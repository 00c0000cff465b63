package recon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"MeliTbcRecon/api/recon/engine"
)

// DiscrepanciaRow is a persisted discrepancy as stored in the discrepancias
// table, detail payload kept as raw JSON.
type DiscrepanciaRow struct {
	ID              int64           `json:"id"`
	Tipo            string          `json:"tipo"`
	Remision        string          `json:"remision"`
	Detalle         json.RawMessage `json:"detalle"`
	Resuelto        bool            `json:"resuelto"`
	FechaDeteccion  time.Time       `json:"fecha_deteccion"`
	FechaResolucion *time.Time      `json:"fecha_resolucion,omitempty"`
	NotasResolucion string          `json:"notas_resolucion,omitempty"`
}

// SaveDiscrepancias persists the discrepancies of one run. Returns how many
// rows were written.
func SaveDiscrepancias(ctx context.Context, pool *pgxpool.Pool, discrepancias []engine.Discrepancy) (int, error) {
	saved := 0
	for _, disc := range discrepancias {
		detalle, err := json.Marshal(disc.Detalle)
		if err != nil {
			return saved, err
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO discrepancias (tipo, remision, detalle, resuelto, fecha_deteccion)
			VALUES ($1, $2, $3, false, now())`,
			string(disc.Tipo), disc.Remision, detalle)
		if err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

// ListDiscrepanciasHandler returns stored discrepancies, optionally filtered
// by resolution state, newest first.
func ListDiscrepanciasHandler(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Resuelto *bool `json:"resuelto,omitempty"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		query := `SELECT id, tipo, remision, detalle, resuelto, fecha_deteccion, fecha_resolucion, notas_resolucion
			FROM discrepancias`
		args := []interface{}{}
		if req.Resuelto != nil {
			query += ` WHERE resuelto = $1`
			args = append(args, *req.Resuelto)
		}
		query += ` ORDER BY fecha_deteccion DESC`

		rows, err := pool.Query(r.Context(), query, args...)
		if err != nil {
			http.Error(w, "Database query failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		discrepancias := []DiscrepanciaRow{}
		for rows.Next() {
			var d DiscrepanciaRow
			var notas *string
			if err := rows.Scan(&d.ID, &d.Tipo, &d.Remision, &d.Detalle, &d.Resuelto,
				&d.FechaDeteccion, &d.FechaResolucion, &notas); err != nil {
				http.Error(w, "Scan failed: "+err.Error(), http.StatusInternalServerError)
				return
			}
			if notas != nil {
				d.NotasResolucion = *notas
			}
			discrepancias = append(discrepancias, d)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":       true,
			"count":         len(discrepancias),
			"discrepancias": discrepancias,
		})
	})
}

// ResolverDiscrepanciaHandler marks a stored discrepancy as resolved.
func ResolverDiscrepanciaHandler(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID    int64  `json:"id"`
			Notas string `json:"notas"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == 0 {
			http.Error(w, "id is required", http.StatusBadRequest)
			return
		}
		tag, err := pool.Exec(r.Context(), `
			UPDATE discrepancias
			SET resuelto = true, fecha_resolucion = now(), notas_resolucion = $2
			WHERE id = $1`,
			req.ID, req.Notas)
		if err != nil {
			http.Error(w, "Update failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if tag.RowsAffected() == 0 {
			http.Error(w, "Discrepancia not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "id": req.ID})
	})
}
