package tbc

import "github.com/shopspring/decimal"

// GroupByRemision buckets invoice lines by remision number. Line order inside
// each bucket follows the order of the export.
func GroupByRemision(lines []InvoiceLine) map[string][]InvoiceLine {
	grupos := make(map[string][]InvoiceLine)
	for _, linea := range lines {
		grupos[linea.Remision] = append(grupos[linea.Remision], linea)
	}
	return grupos
}

// RemisionTotal sums the line totals of one remision. Zero or missing totals
// contribute nothing.
func RemisionTotal(lines []InvoiceLine) decimal.Decimal {
	total := decimal.Zero
	for _, linea := range lines {
		if linea.ValorTotal != 0 {
			total = total.Add(decimal.NewFromFloat(linea.ValorTotal))
		}
	}
	return total
}

// MinFecha returns the earliest parsed date in the batch, used as the cutoff
// when flagging old orders that never got a remision. Empty when no line
// carries a date.
func MinFecha(lines []InvoiceLine) string {
	min := ""
	for _, linea := range lines {
		if linea.Fecha == "" {
			continue
		}
		if min == "" || linea.Fecha < min {
			min = linea.Fecha
		}
	}
	return min
}
