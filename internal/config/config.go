package config

const (
	DefaultTimeZone = "America/Bogota"

	// EventoFlex is the TBC event code for Mercado Libre Flex remissions.
	EventoFlex = "S66"

	// ToleranciaValor is the absolute difference tolerated between the ML
	// order total and the TBC invoice total before a remision is flagged.
	ToleranciaValor = 100

	MeliAPIBase      = "https://api.mercadolibre.com"
	MaxOrdersToFetch = 50

	// Sync Job Constants
	DefaultSyncSchedule = "*/30 * * * *"
	SyncBatchSize       = 50
)
