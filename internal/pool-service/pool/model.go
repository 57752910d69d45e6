package pool

import (
	"errors"
	"time"
)

// Side é o lado apostável de uma partida. São exatamente dois lados;
// o empate é um desfecho possível da partida, nunca um lado de aposta.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// Opposite retorna o lado contrário
func (s Side) Opposite() Side {
	if s == SideHome {
		return SideAway
	}
	return SideHome
}

// ParseSide valida o lado vindo da borda HTTP
func ParseSide(raw string) (Side, error) {
	switch Side(raw) {
	case SideHome, SideAway:
		return Side(raw), nil
	}
	return "", ErrInvalidSide
}

// Outcome é o desfecho declarado de uma partida
type Outcome string

const (
	OutcomeHome      Outcome = "home"
	OutcomeAway      Outcome = "away"
	OutcomeDraw      Outcome = "draw"
	OutcomeUndecided Outcome = "undecided"
)

// ParseOutcome aceita apenas desfechos liquidáveis (home, away, draw)
func ParseOutcome(raw string) (Outcome, error) {
	switch Outcome(raw) {
	case OutcomeHome, OutcomeAway, OutcomeDraw:
		return Outcome(raw), nil
	}
	return "", ErrInvalidOutcome
}

// BetState é o estado do ciclo de vida de uma aposta
type BetState string

const (
	BetPending  BetState = "pending"
	BetWon      BetState = "won"
	BetLost     BetState = "lost"
	BetRefunded BetState = "refunded"
)

// MatchStatus é o estado da partida, mantido pelo colaborador de agenda
type MatchStatus string

const (
	MatchScheduled  MatchStatus = "scheduled"
	MatchInProgress MatchStatus = "in_progress"
	MatchFinished   MatchStatus = "finished"
)

// BettingCutoff fecha a janela de apostas 30 minutos antes do início da partida
const BettingCutoff = 30 * time.Minute

// BettingOpen indica se a janela de apostas ainda está aberta para uma partida
// que começa em startTime, avaliada no instante now
func BettingOpen(startTime, now time.Time) bool {
	return now.Before(startTime.Add(-BettingCutoff))
}

// Account é a conta de pontos de um usuário. O saldo é assinado:
// negativo representa pontos devidos ao bolão.
type Account struct {
	ID          string
	DisplayName string
	Balance     int64
	CreatedAt   time.Time
}

// Match é o modelo persistido de uma partida
type Match struct {
	ID        string
	HomeTeam  string
	AwayTeam  string
	HomeFlag  string
	AwayFlag  string
	HomeScore *int
	AwayScore *int
	Stage     string
	Status    MatchStatus
	Outcome   Outcome
	StartTime time.Time
}

// Bet é o modelo persistido de uma aposta.
// NetPoints só é diferente de zero em estados terminais: positivo para
// ganhos, negativo para o stake perdido, zero para reembolso.
type Bet struct {
	ID        string
	MatchID   string
	AccountID string
	Side      Side
	Stake     int64
	State     BetState
	NetPoints int64
	PlacedAt  time.Time
	UpdatedAt time.Time
}

// PoolTotals é o snapshot derivado do bolão de uma partida:
// soma dos stakes pendentes por lado. Nunca é cacheado.
type PoolTotals struct {
	HomeTotal int64
	AwayTotal int64
}

// Total retorna o total do lado informado
func (p PoolTotals) Total(s Side) int64 {
	if s == SideHome {
		return p.HomeTotal
	}
	return p.AwayTotal
}

// Erros de validação e de conflito expostos ao chamador.
// Nenhum deles deixa mutação parcial para trás.
var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrWindowClosed   = errors.New("betting window closed")
	ErrAlreadySettled = errors.New("match already settled")
	ErrNotSettled     = errors.New("match not settled")
	ErrDuplicateBet   = errors.New("duplicate bet for account and match")
	ErrInvalidStake   = errors.New("stake must be a positive integer")
	ErrInvalidSide    = errors.New("side must be home or away")
	ErrInvalidOutcome = errors.New("outcome must be home, away or draw")
	ErrNotFound       = errors.New("not found")
)
