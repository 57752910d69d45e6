package events

// Evento publicado no tópico "wager_placed" após o commit da aposta.
type WagerPlaced struct {
	BetID     string `json:"bet_id"`
	AccountID string `json:"account_id"`
	MatchID   string `json:"match_id"`
	Side      string `json:"side"` // "home" | "away"
	Stake     int64  `json:"stake"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}
