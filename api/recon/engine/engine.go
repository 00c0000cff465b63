package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"MeliTbcRecon/api/recon/tbc"
	"MeliTbcRecon/internal/config"
)

// Kind is the closed set of discrepancy types the engine can emit.
type Kind string

const (
	ValorDiferente      Kind = "valor_diferente"
	ProductosDiferentes Kind = "productos_diferentes" // reserved, never emitted at remision granularity
	RemisionSinFactura  Kind = "remision_sin_factura"
	FacturaSinRemision  Kind = "factura_sin_remision"
	FechaDiferente      Kind = "fecha_diferente"
	PedidosSinFacturar  Kind = "pedidos_sin_facturar"
)

// Kinds lists every discrepancy type in report order.
var Kinds = []Kind{
	ValorDiferente,
	ProductosDiferentes,
	RemisionSinFactura,
	FacturaSinRemision,
	FechaDiferente,
	PedidosSinFacturar,
}

// OrderRecord is one Mercado Libre order as materialized in the order store.
// The engine reads it, never writes it.
type OrderRecord struct {
	OrderID       string    `json:"order_id"`
	PackID        string    `json:"pack_id,omitempty"`
	ShippingID    string    `json:"shipping_id,omitempty"`
	FechaOrden    time.Time `json:"fecha_orden"`
	Total         *float64  `json:"total"`
	Productos     string    `json:"productos"`
	BuyerName     string    `json:"buyer_name,omitempty"`
	BuyerNickname string    `json:"buyer_nickname,omitempty"`
	Remision      string    `json:"remision,omitempty"`
	FechaRemision string    `json:"fecha_remision,omitempty"`
	Usuario       string    `json:"usuario,omitempty"`
	Observaciones string    `json:"observaciones,omitempty"`
}

// Match is a remision whose ML and TBC sides agree within tolerance.
type Match struct {
	Remision          string            `json:"remision"`
	Total             decimal.Decimal   `json:"total"`
	Fecha             string            `json:"fecha"`
	CantidadOrdenes   int               `json:"cantidad_ordenes"`
	CantidadProductos int               `json:"cantidad_productos"`
	OrdenesML         []OrderRecord     `json:"ordenes_ml"`
	FacturasTBC       []tbc.InvoiceLine `json:"facturas_tbc"`
}

// Discrepancy tags one reconciliation outcome that is not a match. Detalle is
// the kind-specific payload (one of the *Detalle structs below).
type Discrepancy struct {
	Tipo     Kind        `json:"tipo"`
	Remision string      `json:"remision"`
	Detalle  interface{} `json:"detalle"`
}

type RemisionSinFacturaDetalle struct {
	OrdenesML []OrderRecord `json:"ordenes_ml"`
	Mensaje   string        `json:"mensaje"`
}

type ValorDiferenteDetalle struct {
	TotalML     decimal.Decimal   `json:"total_ml"`
	TotalTBC    decimal.Decimal   `json:"total_tbc"`
	Diferencia  decimal.Decimal   `json:"diferencia"`
	OrdenesML   []OrderRecord     `json:"ordenes_ml"`
	FacturasTBC []tbc.InvoiceLine `json:"facturas_tbc"`
}

type FechaDiferenteDetalle struct {
	FechaML     string            `json:"fecha_ml"`
	FechaTBC    string            `json:"fecha_tbc"`
	OrdenesML   []OrderRecord     `json:"ordenes_ml"`
	FacturasTBC []tbc.InvoiceLine `json:"facturas_tbc"`
}

type FacturaSinRemisionDetalle struct {
	TotalTBC    decimal.Decimal   `json:"total_tbc"`
	FacturasTBC []tbc.InvoiceLine `json:"facturas_tbc"`
	Mensaje     string            `json:"mensaje"`
}

type PedidosSinFacturarDetalle struct {
	FechaLimite string        `json:"fecha_limite"`
	Cantidad    int           `json:"cantidad"`
	Ordenes     []OrderRecord `json:"ordenes"`
	Mensaje     string        `json:"mensaje"`
}

// Result is the outcome of one reconciliation run. Transient: computed fresh
// from the current order store and the uploaded export.
type Result struct {
	Coincidencias          []Match       `json:"coincidencias"`
	Discrepancias          []Discrepancy `json:"discrepancias"`
	TotalOrdenesML         int           `json:"total_ordenes_ml"`
	TotalFacturasTBC       int           `json:"total_facturas_tbc"`
	PorcentajeCoincidencia float64       `json:"porcentaje_coincidencia"`
}

var tolerancia = decimal.NewFromInt(config.ToleranciaValor)

var localTZ = func() *time.Location {
	loc, err := time.LoadLocation(config.DefaultTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}()

// GroupByRemision buckets orders by their assigned remision. Orders without
// one are left out; they only matter for the old-uninvoiced pass, which
// receives them separately.
func GroupByRemision(orders []OrderRecord) map[string][]OrderRecord {
	grupos := make(map[string][]OrderRecord)
	for _, orden := range orders {
		if orden.Remision == "" {
			continue
		}
		grupos[orden.Remision] = append(grupos[orden.Remision], orden)
	}
	return grupos
}

func sumOrderTotals(ordenes []OrderRecord) decimal.Decimal {
	total := decimal.Zero
	for _, orden := range ordenes {
		if orden.Total != nil {
			total = total.Add(decimal.NewFromFloat(*orden.Total))
		}
	}
	return total
}

func sortedKeys(m map[string][]OrderRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reconcile cross-matches ML order groups against TBC invoice groups.
//
// Per remision on the ML side: no invoice group -> RemisionSinFactura;
// totals apart by more than the tolerance -> ValorDiferente; dates present
// and unequal -> FechaDiferente; otherwise a Match. Invoice-side remisiones
// the ML side never mentions become FacturaSinRemision. Finally, orders that
// have no remision at all and predate the oldest invoice in the batch are
// rolled into a single PedidosSinFacturar discrepancy.
func Reconcile(
	ordenesML []OrderRecord,
	facturasTBC map[string][]tbc.InvoiceLine,
	fechaMinimaTBC string,
	ordenesSinRemision []OrderRecord,
) *Result {
	coincidencias := []Match{}
	discrepancias := []Discrepancy{}

	ordenesPorRemision := GroupByRemision(ordenesML)

	for _, remision := range sortedKeys(ordenesPorRemision) {
		ordenes := ordenesPorRemision[remision]
		facturas, ok := facturasTBC[remision]
		if !ok || len(facturas) == 0 {
			discrepancias = append(discrepancias, Discrepancy{
				Tipo:     RemisionSinFactura,
				Remision: remision,
				Detalle: RemisionSinFacturaDetalle{
					OrdenesML: ordenes,
					Mensaje:   fmt.Sprintf("Remision %s asignada en ML pero no encontrada en TBC", remision),
				},
			})
			continue
		}

		totalML := sumOrderTotals(ordenes)
		totalTBC := tbc.RemisionTotal(facturas)
		diferencia := totalML.Sub(totalTBC).Abs()

		if diferencia.GreaterThan(tolerancia) {
			discrepancias = append(discrepancias, Discrepancy{
				Tipo:     ValorDiferente,
				Remision: remision,
				Detalle: ValorDiferenteDetalle{
					TotalML:     totalML,
					TotalTBC:    totalTBC,
					Diferencia:  diferencia,
					OrdenesML:   ordenes,
					FacturasTBC: facturas,
				},
			})
			continue
		}

		fechaML := ordenes[0].FechaRemision
		fechaTBC := facturas[0].Fecha
		if fechaML != "" && fechaTBC != "" && fechaML != fechaTBC {
			discrepancias = append(discrepancias, Discrepancy{
				Tipo:     FechaDiferente,
				Remision: remision,
				Detalle: FechaDiferenteDetalle{
					FechaML:     fechaML,
					FechaTBC:    fechaTBC,
					OrdenesML:   ordenes,
					FacturasTBC: facturas,
				},
			})
			continue
		}

		coincidencias = append(coincidencias, Match{
			Remision:          remision,
			Total:             totalML,
			Fecha:             fechaML,
			CantidadOrdenes:   len(ordenes),
			CantidadProductos: len(facturas),
			OrdenesML:         ordenes,
			FacturasTBC:       facturas,
		})
	}

	facturasSolas := make([]string, 0)
	for remision := range facturasTBC {
		if _, ok := ordenesPorRemision[remision]; !ok {
			facturasSolas = append(facturasSolas, remision)
		}
	}
	sort.Strings(facturasSolas)
	for _, remision := range facturasSolas {
		facturas := facturasTBC[remision]
		discrepancias = append(discrepancias, Discrepancy{
			Tipo:     FacturaSinRemision,
			Remision: remision,
			Detalle: FacturaSinRemisionDetalle{
				TotalTBC:    tbc.RemisionTotal(facturas),
				FacturasTBC: facturas,
				Mensaje:     fmt.Sprintf("Factura %s en TBC pero no tiene remision asignada en ML", remision),
			},
		})
	}

	if fechaMinimaTBC != "" && len(ordenesSinRemision) > 0 {
		antiguos := []OrderRecord{}
		for _, orden := range ordenesSinRemision {
			if orden.FechaOrden.IsZero() {
				continue
			}
			fechaLocal := orden.FechaOrden.In(localTZ).Format("2006-01-02")
			if fechaLocal < fechaMinimaTBC {
				antiguos = append(antiguos, orden)
			}
		}
		if len(antiguos) > 0 {
			discrepancias = append(discrepancias, Discrepancy{
				Tipo:     PedidosSinFacturar,
				Remision: "N/A",
				Detalle: PedidosSinFacturarDetalle{
					FechaLimite: fechaMinimaTBC,
					Cantidad:    len(antiguos),
					Ordenes:     antiguos,
					Mensaje: fmt.Sprintf("Se encontraron %d pedidos sin facturar anteriores a %s",
						len(antiguos), fechaMinimaTBC),
				},
			})
		}
	}

	totalComparaciones := len(ordenesPorRemision) + len(facturasSolas)
	porcentaje := 0.0
	if totalComparaciones > 0 {
		porcentaje = float64(len(coincidencias)) / float64(totalComparaciones) * 100
		porcentaje = math.Round(porcentaje*100) / 100
	}

	return &Result{
		Coincidencias:          coincidencias,
		Discrepancias:          discrepancias,
		TotalOrdenesML:         len(ordenesPorRemision),
		TotalFacturasTBC:       len(facturasTBC),
		PorcentajeCoincidencia: porcentaje,
	}
}
