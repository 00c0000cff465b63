package recon

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"MeliTbcRecon/api/recon/engine"
	"MeliTbcRecon/api/recon/tbc"
)

func productosDeFacturas(facturas []tbc.InvoiceLine) string {
	nombres := make([]string, 0, len(facturas))
	for _, f := range facturas {
		nombres = append(nombres, f.ProductoNombre)
	}
	return strings.Join(nombres, "; ")
}

func primerOrderID(ordenes []engine.OrderRecord) string {
	if len(ordenes) == 0 {
		return ""
	}
	return ordenes[0].OrderID
}

// BuildReporte renders a reconciliation result as a two-sheet workbook:
// discrepancies first, matches second.
func BuildReporte(result *engine.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	const discSheet = "Discrepancias"
	if err := f.SetSheetName("Sheet1", discSheet); err != nil {
		return nil, err
	}

	headers := []string{"Tipo", "Remision", "Order ID", "Fecha", "Total ML", "Total TBC", "Diferencia", "Productos"}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(discSheet, col+"1", h)
	}

	for i, disc := range result.Discrepancias {
		fila := i + 2
		var orderID, fecha, totalML, totalTBC, diferencia, productos string

		switch det := disc.Detalle.(type) {
		case engine.ValorDiferenteDetalle:
			orderID = primerOrderID(det.OrdenesML)
			totalML = det.TotalML.String()
			totalTBC = det.TotalTBC.String()
			diferencia = det.Diferencia.String()
			productos = productosDeFacturas(det.FacturasTBC)
		case engine.FechaDiferenteDetalle:
			orderID = primerOrderID(det.OrdenesML)
			fecha = fmt.Sprintf("ML: %s / TBC: %s", det.FechaML, det.FechaTBC)
			productos = productosDeFacturas(det.FacturasTBC)
		case engine.RemisionSinFacturaDetalle:
			orderID = primerOrderID(det.OrdenesML)
		case engine.FacturaSinRemisionDetalle:
			totalTBC = det.TotalTBC.String()
			productos = productosDeFacturas(det.FacturasTBC)
		case engine.PedidosSinFacturarDetalle:
			fecha = "anteriores a " + det.FechaLimite
			orderID = fmt.Sprintf("%d pedidos", det.Cantidad)
		}

		f.SetCellValue(discSheet, "A"+fmt.Sprint(fila), string(disc.Tipo))
		f.SetCellValue(discSheet, "B"+fmt.Sprint(fila), disc.Remision)
		f.SetCellValue(discSheet, "C"+fmt.Sprint(fila), orderID)
		f.SetCellValue(discSheet, "D"+fmt.Sprint(fila), fecha)
		f.SetCellValue(discSheet, "E"+fmt.Sprint(fila), totalML)
		f.SetCellValue(discSheet, "F"+fmt.Sprint(fila), totalTBC)
		f.SetCellValue(discSheet, "G"+fmt.Sprint(fila), diferencia)
		f.SetCellValue(discSheet, "H"+fmt.Sprint(fila), productos)
	}

	const matchSheet = "Coincidencias"
	if _, err := f.NewSheet(matchSheet); err != nil {
		return nil, err
	}
	f.SetCellValue(matchSheet, "A1", "Remision")
	f.SetCellValue(matchSheet, "B1", "Order ID")
	f.SetCellValue(matchSheet, "C1", "Fecha")
	f.SetCellValue(matchSheet, "D1", "Total")
	f.SetCellValue(matchSheet, "E1", "Ordenes")
	f.SetCellValue(matchSheet, "F1", "Productos")
	for i, m := range result.Coincidencias {
		fila := i + 2
		f.SetCellValue(matchSheet, "A"+fmt.Sprint(fila), m.Remision)
		f.SetCellValue(matchSheet, "B"+fmt.Sprint(fila), primerOrderID(m.OrdenesML))
		f.SetCellValue(matchSheet, "C"+fmt.Sprint(fila), m.Fecha)
		f.SetCellValue(matchSheet, "D"+fmt.Sprint(fila), m.Total.String())
		f.SetCellValue(matchSheet, "E"+fmt.Sprint(fila), m.CantidadOrdenes)
		f.SetCellValue(matchSheet, "F"+fmt.Sprint(fila), productosDeFacturas(m.FacturasTBC))
	}

	return f, nil
}
