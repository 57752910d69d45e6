package dto

type PlaceBetRequest struct {
	MatchID string `json:"matchId"`
	Side    string `json:"side"` // "home" | "away"
	Stake   int64  `json:"stake"`
}

type SettleMatchRequest struct {
	Outcome string `json:"outcome"` // "home" | "away" | "draw"
}
