package engine

// Summarize tallies discrepancies by kind. Every kind is present in the map,
// zeroes included, so report columns stay stable.
func Summarize(discrepancias []Discrepancy) map[Kind]int {
	resumen := make(map[Kind]int, len(Kinds))
	for _, tipo := range Kinds {
		resumen[tipo] = 0
	}
	for _, disc := range discrepancias {
		if _, ok := resumen[disc.Tipo]; ok {
			resumen[disc.Tipo]++
		}
	}
	return resumen
}
