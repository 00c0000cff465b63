package recon

import (
	"testing"

	"github.com/shopspring/decimal"

	"MeliTbcRecon/api/recon/engine"
	"MeliTbcRecon/api/recon/tbc"
)

func TestBuildReporte(t *testing.T) {
	total := 50200.0
	result := &engine.Result{
		Coincidencias: []engine.Match{{
			Remision:        "10001",
			Total:           decimal.NewFromInt(30000),
			Fecha:           "2026-01-05",
			CantidadOrdenes: 1,
			OrdenesML:       []engine.OrderRecord{{OrderID: "555"}},
			FacturasTBC:     []tbc.InvoiceLine{{ProductoNombre: "Rompecabezas"}},
		}},
		Discrepancias: []engine.Discrepancy{{
			Tipo:     engine.ValorDiferente,
			Remision: "12050",
			Detalle: engine.ValorDiferenteDetalle{
				TotalML:    decimal.NewFromFloat(total),
				TotalTBC:   decimal.NewFromInt(50000),
				Diferencia: decimal.NewFromInt(200),
				OrdenesML:  []engine.OrderRecord{{OrderID: "777"}},
				FacturasTBC: []tbc.InvoiceLine{
					{ProductoNombre: "Juego de bloques"},
					{ProductoNombre: "Rompecabezas"},
				},
			},
		}},
	}

	f, err := BuildReporte(result)
	if err != nil {
		t.Fatalf("BuildReporte failed: %v", err)
	}

	got, _ := f.GetCellValue("Discrepancias", "A2")
	if got != "valor_diferente" {
		t.Errorf("expected tipo in A2, got %q", got)
	}
	got, _ = f.GetCellValue("Discrepancias", "B2")
	if got != "12050" {
		t.Errorf("expected remision in B2, got %q", got)
	}
	got, _ = f.GetCellValue("Discrepancias", "C2")
	if got != "777" {
		t.Errorf("expected order id in C2, got %q", got)
	}
	got, _ = f.GetCellValue("Discrepancias", "G2")
	if got != "200" {
		t.Errorf("expected diferencia in G2, got %q", got)
	}
	got, _ = f.GetCellValue("Discrepancias", "H2")
	if got != "Juego de bloques; Rompecabezas" {
		t.Errorf("expected product list in H2, got %q", got)
	}

	got, _ = f.GetCellValue("Coincidencias", "A2")
	if got != "10001" {
		t.Errorf("expected remision in matches sheet, got %q", got)
	}
}
