package dto

import "time"

type PlaceBetResponse struct {
	BetID    string    `json:"betId"`
	MatchID  string    `json:"matchId"`
	Side     string    `json:"side"`
	Stake    int64     `json:"stake"`
	State    string    `json:"state"` // sempre "pending" na criação
	PlacedAt time.Time `json:"placed_at"`
}

type PoolTotalsResponse struct {
	MatchID   string `json:"matchId"`
	HomeTotal int64  `json:"home_total"`
	AwayTotal int64  `json:"away_total"`
}

type SettleMatchResponse struct {
	MatchID     string `json:"matchId"`
	Outcome     string `json:"outcome"`
	WinningPool int64  `json:"winning_pool"`
	LosingPool  int64  `json:"losing_pool"`
	PaidOut     int64  `json:"paid_out"`
	BetCount    int    `json:"bet_count"`
}

type ResetMatchResponse struct {
	MatchID string `json:"matchId"`
	Outcome string `json:"outcome"` // sempre "undecided" após o reset
}

type EstimateResponse struct {
	Stake           int64 `json:"stake"`
	EstimatedReturn int64 `json:"estimated_return"` // stake + ganhos estimados
}

type AccountResponse struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"display_name"`
	Balance     int64  `json:"balance"`
	BalanceVND  int64  `json:"balance_vnd"` // conversão informativa: pontos * 1000
}

type MatchResponse struct {
	MatchID   string    `json:"matchId"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	HomeFlag  string    `json:"home_flag"`
	AwayFlag  string    `json:"away_flag"`
	HomeScore *int      `json:"home_score"`
	AwayScore *int      `json:"away_score"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Outcome   string    `json:"outcome"`
	StartTime time.Time `json:"start_time"`
}

type BetResponse struct {
	BetID     string    `json:"betId"`
	MatchID   string    `json:"matchId"`
	AccountID string    `json:"accountId"`
	Side      string    `json:"side"`
	Stake     int64     `json:"stake"`
	State     string    `json:"state"`
	NetPoints int64     `json:"net_points"`
	PlacedAt  time.Time `json:"placed_at"`
}

type LeaderboardEntry struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"display_name"`
	Balance     int64  `json:"balance"`
	Rank        int    `json:"rank"`
}

type ErrorResponse struct {
	Error string `json:"error"` // código estável: window_closed, duplicate_bet, ...
}
