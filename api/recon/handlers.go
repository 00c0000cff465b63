package recon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"MeliTbcRecon/api/orders"
	"MeliTbcRecon/api/recon/engine"
	"MeliTbcRecon/api/recon/tbc"
	"MeliTbcRecon/internal/checksum"
	"MeliTbcRecon/internal/config"
	"MeliTbcRecon/internal/logger"
)

// readUpload pulls the RESUXDOC file and the optional evento filter out of a
// multipart request.
func readUpload(r *http.Request) ([]byte, string, string, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, "", "", fmt.Errorf("failed to parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", "", fmt.Errorf("no file uploaded")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read file: %w", err)
	}
	evento := r.FormValue("evento")
	if evento == "" {
		evento = config.EventoFlex
	}
	return data, header.Filename, evento, nil
}

// alreadyStaged reports whether a byte-identical export was staged before,
// regardless of the file name it was uploaded under.
func alreadyStaged(ctx context.Context, pool *pgxpool.Pool, sum string) (bool, error) {
	var found bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tbc_facturas WHERE archivo_checksum = $1)`, sum).Scan(&found)
	return found, err
}

// stageFacturas replaces the staged rows of one source file with the freshly
// parsed batch. Each run gets a uuid so partial loads are traceable.
func stageFacturas(ctx context.Context, pool *pgxpool.Pool, filename, sum string, lines []tbc.InvoiceLine) (string, error) {
	batchID := uuid.New().String()

	if _, err := pool.Exec(ctx,
		`DELETE FROM tbc_facturas WHERE archivo_nombre = $1`, filename); err != nil {
		return "", err
	}

	copyRows := make([][]interface{}, len(lines))
	for i, l := range lines {
		var fecha interface{}
		if l.Fecha != "" {
			fecha = l.Fecha
		}
		copyRows[i] = []interface{}{
			batchID, filename, sum, l.Evento, l.NombreEvento, l.Remision, fecha,
			l.ProductoCodigo, l.ProductoNombre, l.Unidad,
			l.Cantidad, l.ValorUnitario, l.ValorTotal,
		}
	}
	_, err := pool.CopyFrom(
		ctx,
		pgx.Identifier{"tbc_facturas"},
		[]string{"upload_batch_id", "archivo_nombre", "archivo_checksum", "evento", "nombre_evento", "remision", "fecha",
			"producto_codigo", "producto_nombre", "unidad", "cantidad", "valor_unitario", "valor_total"},
		pgx.CopyFromRows(copyRows),
	)
	if err != nil {
		return "", err
	}
	return batchID, nil
}

// runReconciliation is the shared path behind the reconcile and report
// endpoints: parse the upload, stage it, fetch both order populations and let
// the engine classify every remision.
func runReconciliation(ctx context.Context, pool *pgxpool.Pool, data []byte, filename, evento string) (*engine.Result, *tbc.ParseResult, error) {
	rows, err := tbc.ReadGrid(data)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid file %s: %w", filename, err)
	}
	parse := tbc.ParseRows(rows, evento)

	if _, err := stageFacturas(ctx, pool, filename, checksum.Sum(data), parse.Lines); err != nil {
		return nil, nil, fmt.Errorf("failed to stage facturas: %w", err)
	}

	conRemision := true
	sinRemision := false
	ordenes, err := orders.List(ctx, pool, orders.ListFilter{ConRemision: &conRemision})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load orders: %w", err)
	}
	ordenesSinRemision, err := orders.List(ctx, pool, orders.ListFilter{ConRemision: &sinRemision})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load unassigned orders: %w", err)
	}

	facturas := tbc.GroupByRemision(parse.Lines)
	result := engine.Reconcile(ordenes, facturas, tbc.MinFecha(parse.Lines), ordenesSinRemision)
	return result, parse, nil
}

// UploadResuxdocHandler parses and stages a RESUXDOC export without running
// the engine, returning the parse diagnostics.
func UploadResuxdocHandler(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, filename, evento, err := readUpload(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows, err := tbc.ReadGrid(data)
		if err != nil {
			http.Error(w, "Invalid or empty file: "+filename, http.StatusBadRequest)
			return
		}

		sum := checksum.Sum(data)
		if staged, err := alreadyStaged(r.Context(), pool, sum); err == nil && staged {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success":          true,
				"already_uploaded": true,
				"archivo":          filename,
			})
			return
		}

		parse := tbc.ParseRows(rows, evento)
		batchID, err := stageFacturas(r.Context(), pool, filename, sum, parse.Lines)
		if err != nil {
			http.Error(w, "Failed to stage data: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("[Recon] %s staged: %d lineas, %d descartadas", filename, parse.TotalLines, parse.SkippedRows))
		}
		remisiones := make([]string, 0, len(parse.Remisiones))
		for rem := range parse.Remisiones {
			remisiones = append(remisiones, rem)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":           true,
			"batch_id":          batchID,
			"archivo":           filename,
			"total_lineas":      parse.TotalLines,
			"filas_descartadas": parse.SkippedRows,
			"remisiones_unicas": len(parse.Remisiones),
			"remisiones":        remisiones,
		})
	})
}

// ReconcileHandler runs a full reconciliation over an uploaded RESUXDOC file.
// With guardar=true the discrepancies found are also persisted.
func ReconcileHandler(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, filename, evento, err := readUpload(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, parse, err := runReconciliation(r.Context(), pool, data, filename, evento)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		guardadas := 0
		if r.FormValue("guardar") == "true" {
			guardadas, err = SaveDiscrepancias(r.Context(), pool, result.Discrepancias)
			if err != nil {
				http.Error(w, "Failed to save discrepancias: "+err.Error(), http.StatusInternalServerError)
				return
			}
		}

		if logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf(
				"[Recon] %s reconciliado: %d coincidencias, %d discrepancias, %.2f%%",
				filename, len(result.Coincidencias), len(result.Discrepancias), result.PorcentajeCoincidencia))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":                 true,
			"archivo":                 filename,
			"total_lineas":            parse.TotalLines,
			"filas_descartadas":       parse.SkippedRows,
			"resultado":               result,
			"resumen":                 engine.Summarize(result.Discrepancias),
			"discrepancias_guardadas": guardadas,
		})
	})
}

// ReporteHandler runs a reconciliation and streams the discrepancy report as
// a downloadable xlsx.
func ReporteHandler(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, filename, evento, err := readUpload(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, _, err := runReconciliation(r.Context(), pool, data, filename, evento)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		f, err := BuildReporte(result)
		if err != nil {
			http.Error(w, "Failed to build report: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="reporte_reconciliacion.xlsx"`)
		if err := f.Write(w); err != nil && logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAudit("[Recon] error escribiendo reporte: " + err.Error())
		}
	})
}
