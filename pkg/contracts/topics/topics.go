package topics

const (
	// Apostas
	WagerPlaced = "wager_placed"

	// Liquidação de partidas
	MatchSettled = "match_settled"
	MatchReset   = "match_reset"

	// DLQ
	WagerPlacedDLQ = "wager_placed_dlq"
)
