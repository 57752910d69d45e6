package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/office-pool-platform/internal/pool-service/dto"
	"github.com/radieske/office-pool-platform/internal/pool-service/pool"
	"github.com/radieske/office-pool-platform/pkg/contracts/events"
)

// fakeStore implementa Store em memória para os testes de handler.
// Erros podem ser injetados por operação.
type fakeStore struct {
	accounts map[string]pool.Account
	matches  map[string]pool.Match
	bets     map[string]pool.Bet
	totals   pool.PoolTotals

	placeErr  error
	settleErr error
	resetErr  error

	settled map[string]pool.Outcome
	reset   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[string]pool.Account{},
		matches:  map[string]pool.Match{},
		bets:     map[string]pool.Bet{},
		settled:  map[string]pool.Outcome{},
	}
}

func (f *fakeStore) GetOrCreateAccount(_ context.Context, id, name string) (pool.Account, error) {
	if acc, ok := f.accounts[id]; ok {
		return acc, nil
	}
	acc := pool.Account{ID: id, DisplayName: name}
	f.accounts[id] = acc
	return acc, nil
}

func (f *fakeStore) GetAccount(_ context.Context, id string) (pool.Account, error) {
	acc, ok := f.accounts[id]
	if !ok {
		return pool.Account{}, pool.ErrNotFound
	}
	return acc, nil
}

func (f *fakeStore) PlaceBet(_ context.Context, accountID, matchID string, side pool.Side, stake int64) (pool.Bet, error) {
	if f.placeErr != nil {
		return pool.Bet{}, f.placeErr
	}
	if stake <= 0 {
		return pool.Bet{}, pool.ErrInvalidStake
	}
	if _, ok := f.matches[matchID]; !ok {
		return pool.Bet{}, pool.ErrMatchNotFound
	}
	b := pool.Bet{
		ID: "bet-1", MatchID: matchID, AccountID: accountID,
		Side: side, Stake: stake, State: pool.BetPending, PlacedAt: time.Now(),
	}
	f.bets[b.ID] = b
	return b, nil
}

func (f *fakeStore) PoolTotals(_ context.Context, matchID string) (pool.PoolTotals, error) {
	if _, ok := f.matches[matchID]; !ok {
		return pool.PoolTotals{}, pool.ErrMatchNotFound
	}
	return f.totals, nil
}

func (f *fakeStore) SettleMatch(_ context.Context, matchID string, outcome pool.Outcome) (pool.Settlement, error) {
	if f.settleErr != nil {
		return pool.Settlement{}, f.settleErr
	}
	if _, ok := f.matches[matchID]; !ok {
		return pool.Settlement{}, pool.ErrMatchNotFound
	}
	f.settled[matchID] = outcome
	return pool.Settlement{WinningPool: 300, LosingPool: 300, PaidOut: 300,
		Results: make([]pool.BetResult, 4)}, nil
}

func (f *fakeStore) ResetMatch(_ context.Context, matchID string) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	if _, ok := f.matches[matchID]; !ok {
		return pool.ErrMatchNotFound
	}
	f.reset = append(f.reset, matchID)
	return nil
}

func (f *fakeStore) GetMatch(_ context.Context, matchID string) (pool.Match, error) {
	m, ok := f.matches[matchID]
	if !ok {
		return pool.Match{}, pool.ErrMatchNotFound
	}
	return m, nil
}

func (f *fakeStore) ListMatches(_ context.Context) ([]pool.Match, error) {
	var out []pool.Match
	for _, m := range f.matches {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) ListBetsByMatch(_ context.Context, matchID string) ([]pool.Bet, error) {
	var out []pool.Bet
	for _, b := range f.bets {
		if b.MatchID == matchID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) Leaderboard(_ context.Context, _ int) ([]pool.Account, error) {
	var out []pool.Account
	for _, a := range f.accounts {
		out = append(out, a)
	}
	return out, nil
}

// fakePublisher só registra os eventos publicados
type fakePublisher struct {
	wagers   []events.WagerPlaced
	settleds []events.MatchSettled
	resets   []events.MatchReset
}

func (p *fakePublisher) PublishWagerPlaced(_ context.Context, e events.WagerPlaced) error {
	p.wagers = append(p.wagers, e)
	return nil
}

func (p *fakePublisher) PublishMatchSettled(_ context.Context, e events.MatchSettled) error {
	p.settleds = append(p.settleds, e)
	return nil
}

func (p *fakePublisher) PublishMatchReset(_ context.Context, e events.MatchReset) error {
	p.resets = append(p.resets, e)
	return nil
}

func newTestServer(store *fakeStore, publ *fakePublisher) *Server {
	return NewServer(zap.NewNop(), store, publ, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func asAccount(id string) map[string]string {
	return map[string]string{"X-Account-ID": id}
}

func TestPlaceBetCreated(t *testing.T) {
	store := newFakeStore()
	store.matches["m1"] = pool.Match{ID: "m1", Outcome: pool.OutcomeUndecided}
	publ := &fakePublisher{}
	srv := newTestServer(store, publ)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/pool/bets",
		dto.PlaceBetRequest{MatchID: "m1", Side: "home", Stake: 100}, asAccount("u1"))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.PlaceBetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "m1", resp.MatchID)
	assert.Equal(t, "pending", resp.State)
	assert.Equal(t, int64(100), resp.Stake)

	// evento wager_placed publicado após o commit
	require.Len(t, publ.wagers, 1)
	assert.Equal(t, "u1", publ.wagers[0].AccountID)
}

func TestPlaceBetRequiresIdentity(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakePublisher{})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/pool/bets",
		dto.PlaceBetRequest{MatchID: "m1", Side: "home", Stake: 10}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceBetErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"window closed", pool.ErrWindowClosed, http.StatusConflict, "window_closed"},
		{"already settled", pool.ErrAlreadySettled, http.StatusConflict, "already_settled"},
		{"duplicate", pool.ErrDuplicateBet, http.StatusConflict, "duplicate_bet"},
		{"invalid stake", pool.ErrInvalidStake, http.StatusBadRequest, "invalid_stake"},
		{"not found", pool.ErrMatchNotFound, http.StatusNotFound, "not_found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			store.placeErr = tc.err
			srv := newTestServer(store, &fakePublisher{})

			rec := doJSON(t, srv.Router(), http.MethodPost, "/pool/bets",
				dto.PlaceBetRequest{MatchID: "m1", Side: "home", Stake: 10}, asAccount("u1"))

			assert.Equal(t, tc.wantCode, rec.Code)
			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantBody, resp.Error)
		})
	}
}

func TestPlaceBetRejectsBadSide(t *testing.T) {
	store := newFakeStore()
	store.matches["m1"] = pool.Match{ID: "m1"}
	srv := newTestServer(store, &fakePublisher{})

	// empate é desfecho de partida, nunca lado de aposta
	rec := doJSON(t, srv.Router(), http.MethodPost, "/pool/bets",
		dto.PlaceBetRequest{MatchID: "m1", Side: "draw", Stake: 10}, asAccount("u1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_side")
}

func TestPoolTotals(t *testing.T) {
	store := newFakeStore()
	store.matches["m1"] = pool.Match{ID: "m1"}
	store.totals = pool.PoolTotals{HomeTotal: 300, AwayTotal: 120}
	srv := newTestServer(store, &fakePublisher{})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/pool/matches/m1/totals", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.PoolTotalsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(300), resp.HomeTotal)
	assert.Equal(t, int64(120), resp.AwayTotal)
}

func TestPoolTotalsUnknownMatch(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakePublisher{})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/pool/matches/missing/totals", nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettleMatch(t *testing.T) {
	store := newFakeStore()
	store.matches["m1"] = pool.Match{ID: "m1"}
	publ := &fakePublisher{}
	srv := newTestServer(store, publ)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/pool/matches/m1/settle",
		dto.SettleMatchRequest{Outcome: "home"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.SettleMatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "home", resp.Outcome)
	assert.Equal(t, int64(300), resp.PaidOut)
	assert.Equal(t, pool.OutcomeHome, store.settled["m1"])

	require.Len(t, publ.settleds, 1)
	assert.Equal(t, "m1", publ.settleds[0].MatchID)
}

func TestSettleMatchRejectsUndecided(t *testing.T) {
	store := newFakeStore()
	store.matches["m1"] = pool.Match{ID: "m1"}
	srv := newTestServer(store, &fakePublisher{})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/pool/matches/m1/settle",
		dto.SettleMatchRequest{Outcome: "undecided"}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_outcome")
}

func TestSettleMatchConflict(t *testing.T) {
	store := newFakeStore()
	store.settleErr = pool.ErrAlreadySettled
	srv := newTestServer(store, &fakePublisher{})

	rec := doJSON(t, srv.Router(), http.MethodPost, "/pool/matches/m1/settle",
		dto.SettleMatchRequest{Outcome: "away"}, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already_settled")
}

func TestResetMatch(t *testing.T) {
	store := newFakeStore()
	store.matches["m1"] = pool.Match{ID: "m1"}
	publ := &fakePublisher{}
	srv := newTestServer(store, publ)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/pool/matches/m1/reset", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"m1"}, store.reset)
	require.Len(t, publ.resets, 1)
}

func TestResetMatchNotSettled(t *testing.T) {
	store := newFakeStore()
	store.resetErr = pool.ErrNotSettled
	srv := newTestServer(store, &fakePublisher{})

	// reset de partida indefinida é erro do operador, não no-op
	rec := doJSON(t, srv.Router(), http.MethodPost, "/pool/matches/m1/reset", nil, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_settled")
}

func TestEstimateEndpoint(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakePublisher{})

	rec := doJSON(t, srv.Router(), http.MethodGet,
		"/pool/estimate?stake=100&side=home&home_total=300&away_total=300", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.EstimateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// 100 + floor(100*300/400) = 175
	assert.Equal(t, int64(175), resp.EstimatedReturn)
}

func TestEstimateEndpointValidation(t *testing.T) {
	srv := newTestServer(newFakeStore(), &fakePublisher{})

	rec := doJSON(t, srv.Router(), http.MethodGet,
		"/pool/estimate?stake=0&side=home&home_total=1&away_total=1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv.Router(), http.MethodGet,
		"/pool/estimate?stake=10&side=draw&home_total=1&away_total=1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAccountWithDisplayConversion(t *testing.T) {
	store := newFakeStore()
	store.accounts["u1"] = pool.Account{ID: "u1", DisplayName: "Ana", Balance: -250}
	srv := newTestServer(store, &fakePublisher{})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/pool/accounts/u1", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// saldo negativo é permitido: pontos devidos ao bolão
	assert.Equal(t, int64(-250), resp.Balance)
	assert.Equal(t, int64(-250000), resp.BalanceVND)
}

func TestLeaderboardWithoutCache(t *testing.T) {
	store := newFakeStore()
	store.accounts["u1"] = pool.Account{ID: "u1", Balance: 500}
	srv := newTestServer(store, &fakePublisher{})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/pool/leaderboard", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []dto.LeaderboardEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, 1, resp[0].Rank)
}
