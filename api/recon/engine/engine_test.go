package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"MeliTbcRecon/api/recon/tbc"
)

func orderWithRemision(orderID, remision string, total float64, fechaRemision string) OrderRecord {
	t := total
	return OrderRecord{
		OrderID:       orderID,
		FechaOrden:    time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC),
		Total:         &t,
		Remision:      remision,
		FechaRemision: fechaRemision,
	}
}

func facturaLine(remision string, total float64, fecha string) tbc.InvoiceLine {
	return tbc.InvoiceLine{
		Evento:         "S66",
		Remision:       remision,
		Fecha:          fecha,
		ProductoNombre: "Juego de bloques",
		Cantidad:       1,
		ValorUnitario:  total,
		ValorTotal:     total,
	}
}

func TestReconcile_PerfectMatch(t *testing.T) {
	ordenes := []OrderRecord{orderWithRemision("100", "12050", 50000, "2026-01-05")}
	facturas := map[string][]tbc.InvoiceLine{
		"12050": {facturaLine("12050", 50000, "2026-01-05")},
	}

	res := Reconcile(ordenes, facturas, "", nil)

	if len(res.Coincidencias) != 1 {
		t.Fatalf("expected 1 match, got %d", len(res.Coincidencias))
	}
	if len(res.Discrepancias) != 0 {
		t.Fatalf("expected 0 discrepancies, got %d: %+v", len(res.Discrepancias), res.Discrepancias)
	}
	if res.PorcentajeCoincidencia != 100 {
		t.Errorf("expected 100%% rate, got %f", res.PorcentajeCoincidencia)
	}
	m := res.Coincidencias[0]
	if m.Remision != "12050" || !m.Total.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("unexpected match payload: %+v", m)
	}
	if m.CantidadOrdenes != 1 || m.CantidadProductos != 1 {
		t.Errorf("match must carry both group sizes: %+v", m)
	}
}

func TestReconcile_ValueMismatch(t *testing.T) {
	ordenes := []OrderRecord{orderWithRemision("100", "12050", 50200, "2026-01-05")}
	facturas := map[string][]tbc.InvoiceLine{
		"12050": {facturaLine("12050", 50000, "2026-01-05")},
	}

	res := Reconcile(ordenes, facturas, "", nil)

	if len(res.Discrepancias) != 1 {
		t.Fatalf("expected 1 discrepancy, got %d", len(res.Discrepancias))
	}
	disc := res.Discrepancias[0]
	if disc.Tipo != ValorDiferente {
		t.Fatalf("expected %s, got %s", ValorDiferente, disc.Tipo)
	}
	det := disc.Detalle.(ValorDiferenteDetalle)
	if !det.Diferencia.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected diferencia 200, got %s", det.Diferencia)
	}
	if res.PorcentajeCoincidencia != 0 {
		t.Errorf("expected 0%% rate, got %f", res.PorcentajeCoincidencia)
	}
}

func TestReconcile_ToleranceBoundary(t *testing.T) {
	facturas := map[string][]tbc.InvoiceLine{
		"12050": {facturaLine("12050", 50000, "2026-01-05")},
	}

	// A difference of exactly 100 is tolerated.
	ordenes := []OrderRecord{orderWithRemision("100", "12050", 50100, "2026-01-05")}
	res := Reconcile(ordenes, facturas, "", nil)
	if len(res.Coincidencias) != 1 {
		t.Fatalf("diff of exactly 100 must match, got %d matches, %+v", len(res.Coincidencias), res.Discrepancias)
	}

	// 100.01 is not.
	ordenes = []OrderRecord{orderWithRemision("100", "12050", 50100.01, "2026-01-05")}
	res = Reconcile(ordenes, facturas, "", nil)
	if len(res.Discrepancias) != 1 || res.Discrepancias[0].Tipo != ValorDiferente {
		t.Fatalf("diff of 100.01 must mismatch, got %+v", res)
	}
}

func TestReconcile_DateMismatch(t *testing.T) {
	ordenes := []OrderRecord{orderWithRemision("100", "12050", 50000, "2026-01-06")}
	facturas := map[string][]tbc.InvoiceLine{
		"12050": {facturaLine("12050", 50000, "2026-01-05")},
	}

	res := Reconcile(ordenes, facturas, "", nil)

	if len(res.Discrepancias) != 1 || res.Discrepancias[0].Tipo != FechaDiferente {
		t.Fatalf("expected one fecha_diferente, got %+v", res.Discrepancias)
	}
	det := res.Discrepancias[0].Detalle.(FechaDiferenteDetalle)
	if det.FechaML != "2026-01-06" || det.FechaTBC != "2026-01-05" {
		t.Errorf("wrong dates in detail: %+v", det)
	}
}

func TestReconcile_MissingDateIsNotAMismatch(t *testing.T) {
	// invoice line without a parseable date: date check is skipped
	ordenes := []OrderRecord{orderWithRemision("100", "12050", 50000, "2026-01-06")}
	facturas := map[string][]tbc.InvoiceLine{
		"12050": {facturaLine("12050", 50000, "")},
	}
	res := Reconcile(ordenes, facturas, "", nil)
	if len(res.Coincidencias) != 1 {
		t.Fatalf("missing TBC date must still match, got %+v", res.Discrepancias)
	}
}

func TestReconcile_RemisionSinFactura(t *testing.T) {
	ordenes := []OrderRecord{orderWithRemision("100", "12050", 50000, "2026-01-05")}

	res := Reconcile(ordenes, map[string][]tbc.InvoiceLine{}, "", nil)

	if len(res.Discrepancias) != 1 || res.Discrepancias[0].Tipo != RemisionSinFactura {
		t.Fatalf("expected remision_sin_factura, got %+v", res.Discrepancias)
	}
	det := res.Discrepancias[0].Detalle.(RemisionSinFacturaDetalle)
	if len(det.OrdenesML) != 1 || det.OrdenesML[0].OrderID != "100" {
		t.Errorf("detail must carry the order group: %+v", det)
	}
}

func TestReconcile_FacturaSinRemision(t *testing.T) {
	facturas := map[string][]tbc.InvoiceLine{
		"99999": {facturaLine("99999", 30000, "2026-01-05")},
	}

	res := Reconcile(nil, facturas, "", nil)

	if len(res.Discrepancias) != 1 || res.Discrepancias[0].Tipo != FacturaSinRemision {
		t.Fatalf("expected factura_sin_remision, got %+v", res.Discrepancias)
	}
	det := res.Discrepancias[0].Detalle.(FacturaSinRemisionDetalle)
	if !det.TotalTBC.Equal(decimal.NewFromInt(30000)) {
		t.Errorf("expected total 30000, got %s", det.TotalTBC)
	}
}

func TestReconcile_NullOrderTotalCountsAsZero(t *testing.T) {
	ordenes := []OrderRecord{{
		OrderID:       "100",
		FechaOrden:    time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC),
		Total:         nil,
		Remision:      "12050",
		FechaRemision: "2026-01-05",
	}}
	facturas := map[string][]tbc.InvoiceLine{
		"12050": {facturaLine("12050", 50, "2026-01-05")},
	}
	// |0 - 50| = 50 <= 100, dates equal: a match
	res := Reconcile(ordenes, facturas, "", nil)
	if len(res.Coincidencias) != 1 {
		t.Fatalf("null total must sum as 0, got %+v", res.Discrepancias)
	}
}

func TestReconcile_PedidosSinFacturar(t *testing.T) {
	// 2026-01-10 02:00 UTC is 2026-01-09 in Bogota, one day before the cutoff.
	antigua := OrderRecord{
		OrderID:    "900",
		FechaOrden: time.Date(2026, 1, 10, 2, 0, 0, 0, time.UTC),
	}
	reciente := OrderRecord{
		OrderID:    "901",
		FechaOrden: time.Date(2026, 1, 12, 14, 0, 0, 0, time.UTC),
	}

	res := Reconcile(nil, map[string][]tbc.InvoiceLine{}, "2026-01-10", []OrderRecord{antigua, reciente})

	if len(res.Discrepancias) != 1 || res.Discrepancias[0].Tipo != PedidosSinFacturar {
		t.Fatalf("expected pedidos_sin_facturar, got %+v", res.Discrepancias)
	}
	if res.Discrepancias[0].Remision != "N/A" {
		t.Errorf("reference-less kind must use the N/A sentinel, got %q", res.Discrepancias[0].Remision)
	}
	det := res.Discrepancias[0].Detalle.(PedidosSinFacturarDetalle)
	if det.Cantidad != 1 || len(det.Ordenes) != 1 || det.Ordenes[0].OrderID != "900" {
		t.Errorf("only the old order should be flagged: %+v", det)
	}
	if det.FechaLimite != "2026-01-10" {
		t.Errorf("detail must carry the cutoff date, got %q", det.FechaLimite)
	}
}

func TestReconcile_NoOldOrdersNoDiscrepancy(t *testing.T) {
	reciente := OrderRecord{
		OrderID:    "901",
		FechaOrden: time.Date(2026, 1, 12, 14, 0, 0, 0, time.UTC),
	}
	res := Reconcile(nil, map[string][]tbc.InvoiceLine{}, "2026-01-10", []OrderRecord{reciente})
	if len(res.Discrepancias) != 0 {
		t.Fatalf("no old orders: kind must be absent, got %+v", res.Discrepancias)
	}

	// without a cutoff date the pass is skipped entirely
	antigua := OrderRecord{OrderID: "900", FechaOrden: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	res = Reconcile(nil, map[string][]tbc.InvoiceLine{}, "", []OrderRecord{antigua})
	if len(res.Discrepancias) != 0 {
		t.Fatalf("no cutoff date: kind must be absent, got %+v", res.Discrepancias)
	}
}

func TestReconcile_EmptyInputs(t *testing.T) {
	res := Reconcile(nil, map[string][]tbc.InvoiceLine{}, "", nil)
	if res.PorcentajeCoincidencia != 0 {
		t.Errorf("empty run must report 0%%, got %f", res.PorcentajeCoincidencia)
	}
	if len(res.Coincidencias) != 0 || len(res.Discrepancias) != 0 {
		t.Errorf("empty run must produce empty sets: %+v", res)
	}
}

// every remision on either side lands in exactly one outcome
func TestReconcile_Coverage(t *testing.T) {
	ordenes := []OrderRecord{
		orderWithRemision("1", "10001", 50000, "2026-01-05"), // match
		orderWithRemision("2", "10002", 90000, "2026-01-05"), // valor_diferente
		orderWithRemision("3", "10003", 10000, "2026-01-05"), // remision_sin_factura
	}
	facturas := map[string][]tbc.InvoiceLine{
		"10001": {facturaLine("10001", 50000, "2026-01-05")},
		"10002": {facturaLine("10002", 50000, "2026-01-05")},
		"10004": {facturaLine("10004", 20000, "2026-01-05")}, // factura_sin_remision
	}

	res := Reconcile(ordenes, facturas, "", nil)

	seen := map[string]int{}
	for _, m := range res.Coincidencias {
		seen[m.Remision]++
	}
	for _, d := range res.Discrepancias {
		seen[d.Remision]++
	}
	for _, rem := range []string{"10001", "10002", "10003", "10004"} {
		if seen[rem] != 1 {
			t.Errorf("remision %s appears %d times, want exactly 1", rem, seen[rem])
		}
	}

	// rate: 1 match / (3 order-side + 1 invoice-only) = 25%
	if res.PorcentajeCoincidencia != 25 {
		t.Errorf("expected 25%%, got %f", res.PorcentajeCoincidencia)
	}
	if res.TotalOrdenesML != 3 || res.TotalFacturasTBC != 3 {
		t.Errorf("wrong side counts: %+v", res)
	}
}

func TestReconcile_MultipleOrdersPerRemision(t *testing.T) {
	// a pack split over two physical orders invoiced under one remision
	ordenes := []OrderRecord{
		orderWithRemision("1", "12050", 30000, "2026-01-05"),
		orderWithRemision("2", "12050", 20000, "2026-01-05"),
	}
	facturas := map[string][]tbc.InvoiceLine{
		"12050": {
			facturaLine("12050", 30000, "2026-01-05"),
			facturaLine("12050", 20000, "2026-01-05"),
		},
	}
	res := Reconcile(ordenes, facturas, "", nil)
	if len(res.Coincidencias) != 1 {
		t.Fatalf("expected a single match for the group, got %+v", res)
	}
	if res.Coincidencias[0].CantidadOrdenes != 2 {
		t.Errorf("expected 2 orders in the group, got %d", res.Coincidencias[0].CantidadOrdenes)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	ordenes := []OrderRecord{
		orderWithRemision("1", "10001", 50000, "2026-01-05"),
		orderWithRemision("2", "10002", 90000, "2026-01-05"),
	}
	facturas := map[string][]tbc.InvoiceLine{
		"10001": {facturaLine("10001", 50000, "2026-01-05")},
		"10003": {facturaLine("10003", 20000, "2026-01-05")},
	}

	a := Reconcile(ordenes, facturas, "", nil)
	b := Reconcile(ordenes, facturas, "", nil)

	if len(a.Coincidencias) != len(b.Coincidencias) || len(a.Discrepancias) != len(b.Discrepancias) {
		t.Fatalf("runs differ in size: %+v vs %+v", a, b)
	}
	for i := range a.Discrepancias {
		if a.Discrepancias[i].Tipo != b.Discrepancias[i].Tipo ||
			a.Discrepancias[i].Remision != b.Discrepancias[i].Remision {
			t.Errorf("discrepancy order differs at %d: %+v vs %+v", i, a.Discrepancias[i], b.Discrepancias[i])
		}
	}
	if a.PorcentajeCoincidencia != b.PorcentajeCoincidencia {
		t.Errorf("rates differ: %f vs %f", a.PorcentajeCoincidencia, b.PorcentajeCoincidencia)
	}
}

func TestGroupByRemision_IgnoresUnassigned(t *testing.T) {
	ordenes := []OrderRecord{
		orderWithRemision("1", "12050", 100, ""),
		{OrderID: "2", FechaOrden: time.Now().UTC()},
	}
	grupos := GroupByRemision(ordenes)
	if len(grupos) != 1 {
		t.Fatalf("expected 1 group, got %d", len(grupos))
	}
	if _, ok := grupos["12050"]; !ok {
		t.Errorf("missing group 12050: %+v", grupos)
	}
}
