package events

import "time"

// Evento emitido pelo pool-service após liquidar uma partida.
type MatchSettled struct {
	MatchID     string    `json:"match_id"`
	Outcome     string    `json:"outcome"` // "home" | "away" | "draw"
	WinningPool int64     `json:"winning_pool"`
	LosingPool  int64     `json:"losing_pool"`
	PaidOut     int64     `json:"paid_out"` // soma dos net_points positivos (<= losing_pool)
	BetCount    int       `json:"bet_count"`
	Ts          time.Time `json:"ts"`
}

// Evento emitido quando uma liquidação é revertida.
type MatchReset struct {
	MatchID string    `json:"match_id"`
	Ts      time.Time `json:"ts"`
}
