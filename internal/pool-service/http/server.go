package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/office-pool-platform/internal/pool-service/cache"
	"github.com/radieske/office-pool-platform/internal/pool-service/dto"
	"github.com/radieske/office-pool-platform/internal/pool-service/pool"
	"github.com/radieske/office-pool-platform/pkg/contracts/events"
)

// Store define as operações do ledger usadas pelos handlers HTTP
type Store interface {
	GetOrCreateAccount(ctx context.Context, accountID, displayName string) (pool.Account, error)
	GetAccount(ctx context.Context, accountID string) (pool.Account, error)
	PlaceBet(ctx context.Context, accountID, matchID string, side pool.Side, stake int64) (pool.Bet, error)
	PoolTotals(ctx context.Context, matchID string) (pool.PoolTotals, error)
	SettleMatch(ctx context.Context, matchID string, outcome pool.Outcome) (pool.Settlement, error)
	ResetMatch(ctx context.Context, matchID string) error
	GetMatch(ctx context.Context, matchID string) (pool.Match, error)
	ListMatches(ctx context.Context) ([]pool.Match, error)
	ListBetsByMatch(ctx context.Context, matchID string) ([]pool.Bet, error)
	Leaderboard(ctx context.Context, limit int) ([]pool.Account, error)
}

// Publisher publica os eventos do ledger para colaboradores externos
// (feed social, push de UI). Best effort, fora da transação.
type Publisher interface {
	PublishWagerPlaced(ctx context.Context, e events.WagerPlaced) error
	PublishMatchSettled(ctx context.Context, e events.MatchSettled) error
	PublishMatchReset(ctx context.Context, e events.MatchReset) error
}

// Server expõe os endpoints HTTP do bolão
type Server struct {
	log   *zap.Logger
	store Store
	publ  Publisher
	lb    *cache.Leaderboard // opcional; nil desliga o cache
}

// NewServer instancia o servidor HTTP do pool-service
func NewServer(log *zap.Logger, store Store, publ Publisher, lb *cache.Leaderboard) *Server {
	return &Server{log: log, store: store, publ: publ, lb: lb}
}

// Router retorna o mux HTTP com as rotas da API do bolão
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/pool/bets", s.placeBet)        // POST
	mux.HandleFunc("/pool/matches", s.listMatches)  // GET
	mux.HandleFunc("/pool/matches/", s.matchRoutes) // GET /{id}, /{id}/totals, /{id}/bets; POST /{id}/settle, /{id}/reset
	mux.HandleFunc("/pool/estimate", s.estimate)    // GET (puro, sem acesso ao store)
	mux.HandleFunc("/pool/accounts/", s.getAccount) // GET /pool/accounts/{id}
	mux.HandleFunc("/pool/leaderboard", s.leaderboard)
	return mux
}

// accountID extrai a identidade injetada pela camada de autenticação
func accountID(r *http.Request) string {
	return r.Header.Get("X-Account-ID")
}

// placeBet registra uma aposta pendente. Não move saldo.
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	accID := accountID(r)
	if accID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "missing_account"})
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad_json"})
		return
	}
	if req.MatchID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_payload"})
		return
	}
	side, err := pool.ParseSide(req.Side)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// garante que a conta exista antes de apostar; identidade vem de fora
	if _, err := s.store.GetOrCreateAccount(r.Context(), accID, r.Header.Get("X-Account-Name")); err != nil {
		s.writeError(w, err)
		return
	}

	bet, err := s.store.PlaceBet(r.Context(), accID, req.MatchID, side, req.Stake)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.publ.PublishWagerPlaced(r.Context(), events.WagerPlaced{
		BetID:     bet.ID,
		AccountID: bet.AccountID,
		MatchID:   bet.MatchID,
		Side:      string(bet.Side),
		Stake:     bet.Stake,
	}); err != nil {
		s.log.Warn("publish wager_placed", zap.String("betId", bet.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{
		BetID:    bet.ID,
		MatchID:  bet.MatchID,
		Side:     string(bet.Side),
		Stake:    bet.Stake,
		State:    string(bet.State),
		PlacedAt: bet.PlacedAt,
	})
}

// matchRoutes despacha as subrotas de /pool/matches/{id}
func (s *Server) matchRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/pool/matches/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "matchId required"})
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getMatch(w, r, id)
	case action == "totals" && r.Method == http.MethodGet:
		s.poolTotals(w, r, id)
	case action == "bets" && r.Method == http.MethodGet:
		s.listBets(w, r, id)
	case action == "settle" && r.Method == http.MethodPost:
		s.settleMatch(w, r, id)
	case action == "reset" && r.Method == http.MethodPost:
		s.resetMatch(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// poolTotals retorna o snapshot dos totais pendentes por lado
func (s *Server) poolTotals(w http.ResponseWriter, r *http.Request, matchID string) {
	totals, err := s.store.PoolTotals(r.Context(), matchID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PoolTotalsResponse{
		MatchID:   matchID,
		HomeTotal: totals.HomeTotal,
		AwayTotal: totals.AwayTotal,
	})
}

// settleMatch declara o desfecho e aplica o rateio pari-mutuel
func (s *Server) settleMatch(w http.ResponseWriter, r *http.Request, matchID string) {
	var req dto.SettleMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad_json"})
		return
	}
	outcome, err := pool.ParseOutcome(req.Outcome)
	if err != nil {
		s.writeError(w, err)
		return
	}

	st, err := s.store.SettleMatch(r.Context(), matchID, outcome)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.publ.PublishMatchSettled(r.Context(), events.MatchSettled{
		MatchID:     matchID,
		Outcome:     string(outcome),
		WinningPool: st.WinningPool,
		LosingPool:  st.LosingPool,
		PaidOut:     st.PaidOut,
		BetCount:    len(st.Results),
		Ts:          time.Now(),
	}); err != nil {
		s.log.Warn("publish match_settled", zap.String("matchId", matchID), zap.Error(err))
	}

	// liquidação mexe em saldos; derruba o ranking cacheado
	if s.lb != nil {
		_ = s.lb.Invalidate(r.Context())
	}

	writeJSON(w, http.StatusOK, dto.SettleMatchResponse{
		MatchID:     matchID,
		Outcome:     string(outcome),
		WinningPool: st.WinningPool,
		LosingPool:  st.LosingPool,
		PaidOut:     st.PaidOut,
		BetCount:    len(st.Results),
	})
}

// resetMatch reverte uma liquidação, restaurando apostas e saldos
func (s *Server) resetMatch(w http.ResponseWriter, r *http.Request, matchID string) {
	if err := s.store.ResetMatch(r.Context(), matchID); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.publ.PublishMatchReset(r.Context(), events.MatchReset{
		MatchID: matchID,
		Ts:      time.Now(),
	}); err != nil {
		s.log.Warn("publish match_reset", zap.String("matchId", matchID), zap.Error(err))
	}

	if s.lb != nil {
		_ = s.lb.Invalidate(r.Context())
	}

	writeJSON(w, http.StatusOK, dto.ResetMatchResponse{
		MatchID: matchID,
		Outcome: string(pool.OutcomeUndecided),
	})
}

// estimate é a prévia pura de retorno; não toca o store
func (s *Server) estimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	stake, err := strconv.ParseInt(q.Get("stake"), 10, 64)
	if err != nil || stake <= 0 {
		s.writeError(w, pool.ErrInvalidStake)
		return
	}
	side, err := pool.ParseSide(q.Get("side"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	homeTotal, err := strconv.ParseInt(q.Get("home_total"), 10, 64)
	if err != nil || homeTotal < 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_payload"})
		return
	}
	awayTotal, err := strconv.ParseInt(q.Get("away_total"), 10, 64)
	if err != nil || awayTotal < 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_payload"})
		return
	}

	writeJSON(w, http.StatusOK, dto.EstimateResponse{
		Stake:           stake,
		EstimatedReturn: pool.EstimateReturn(stake, side, homeTotal, awayTotal),
	})
}

// getAccount retorna saldo da conta com a conversão informativa em VND
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/pool/accounts/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "accountId required"})
		return
	}
	acc, err := s.store.GetAccount(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AccountResponse{
		AccountID:   acc.ID,
		DisplayName: acc.DisplayName,
		Balance:     acc.Balance,
		BalanceVND:  acc.Balance * 1000, // exibição apenas; o ledger é em pontos
	})
}

// getMatch retorna uma partida
func (s *Server) getMatch(w http.ResponseWriter, r *http.Request, matchID string) {
	m, err := s.store.GetMatch(r.Context(), matchID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse(m))
}

// listMatches retorna todas as partidas ordenadas por início
func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ms, err := s.store.ListMatches(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]dto.MatchResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, matchResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// listBets retorna o histórico de apostas de uma partida
func (s *Server) listBets(w http.ResponseWriter, r *http.Request, matchID string) {
	if _, err := s.store.GetMatch(r.Context(), matchID); err != nil {
		s.writeError(w, err)
		return
	}
	bets, err := s.store.ListBetsByMatch(r.Context(), matchID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]dto.BetResponse, 0, len(bets))
	for _, b := range bets {
		out = append(out, dto.BetResponse{
			BetID:     b.ID,
			MatchID:   b.MatchID,
			AccountID: b.AccountID,
			Side:      string(b.Side),
			Stake:     b.Stake,
			State:     string(b.State),
			NetPoints: b.NetPoints,
			PlacedAt:  b.PlacedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// leaderboard retorna o ranking por saldo, com cache curto no Redis
// (exibição apenas; os totais do bolão nunca passam por cache)
func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var fromCache []dto.LeaderboardEntry
	if s.lb != nil {
		if ok, _ := s.lb.Get(r.Context(), &fromCache); ok {
			writeJSON(w, http.StatusOK, fromCache)
			return
		}
	}

	accs, err := s.store.Leaderboard(r.Context(), 100)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]dto.LeaderboardEntry, 0, len(accs))
	for i, a := range accs {
		out = append(out, dto.LeaderboardEntry{
			AccountID:   a.ID,
			DisplayName: a.DisplayName,
			Balance:     a.Balance,
			Rank:        i + 1,
		})
	}

	if s.lb != nil {
		_ = s.lb.Set(r.Context(), out, 30*time.Second)
	}
	writeJSON(w, http.StatusOK, out)
}

func matchResponse(m pool.Match) dto.MatchResponse {
	return dto.MatchResponse{
		MatchID:   m.ID,
		HomeTeam:  m.HomeTeam,
		AwayTeam:  m.AwayTeam,
		HomeFlag:  m.HomeFlag,
		AwayFlag:  m.AwayFlag,
		HomeScore: m.HomeScore,
		AwayScore: m.AwayScore,
		Stage:     m.Stage,
		Status:    string(m.Status),
		Outcome:   string(m.Outcome),
		StartTime: m.StartTime,
	}
}

// writeError traduz os erros sentinela do ledger em códigos estáveis e status HTTP
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pool.ErrMatchNotFound), errors.Is(err, pool.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "not_found"})
	case errors.Is(err, pool.ErrWindowClosed):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "window_closed"})
	case errors.Is(err, pool.ErrAlreadySettled):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "already_settled"})
	case errors.Is(err, pool.ErrNotSettled):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "not_settled"})
	case errors.Is(err, pool.ErrDuplicateBet):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "duplicate_bet"})
	case errors.Is(err, pool.ErrInvalidStake):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_stake"})
	case errors.Is(err, pool.ErrInvalidSide):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_side"})
	case errors.Is(err, pool.ErrInvalidOutcome):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_outcome"})
	default:
		s.log.Error("storage error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "storage_error"})
	}
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
