package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/office-pool-platform/internal/pool-service/pool"
)

// Postgres implementa o ledger do bolão: contas, partidas e apostas.
// Toda mutação multi-linha roda numa única transação; a linha da partida
// funciona como lock de serialização entre aposta, liquidação e reversão.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgres retorna uma instância do ledger
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

// uniqueViolation é o código do Postgres para violação de constraint UNIQUE
const uniqueViolation = "23505"

// GetOrCreateAccount retorna a conta do usuário, criando com saldo zero se
// não existir. A identidade vem da camada de autenticação, fora deste serviço.
func (p *Postgres) GetOrCreateAccount(ctx context.Context, accountID, displayName string) (pool.Account, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return pool.Account{}, err
	}
	defer tx.Rollback()

	var acc pool.Account
	err = tx.QueryRowContext(ctx,
		`SELECT id, display_name, balance, created_at FROM accounts WHERE id=$1`, accountID).
		Scan(&acc.ID, &acc.DisplayName, &acc.Balance, &acc.CreatedAt)
	if err == sql.ErrNoRows {
		acc = pool.Account{ID: accountID, DisplayName: displayName, Balance: 0, CreatedAt: p.now()}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO accounts(id, display_name, balance, created_at) VALUES($1,$2,0,$3)`,
			acc.ID, acc.DisplayName, acc.CreatedAt); err != nil {
			return pool.Account{}, err
		}
	} else if err != nil {
		return pool.Account{}, err
	}

	if err = tx.Commit(); err != nil {
		return pool.Account{}, err
	}
	return acc, nil
}

// GetAccount retorna a conta pelo id
func (p *Postgres) GetAccount(ctx context.Context, accountID string) (pool.Account, error) {
	var acc pool.Account
	err := p.db.QueryRowContext(ctx,
		`SELECT id, display_name, balance, created_at FROM accounts WHERE id=$1`, accountID).
		Scan(&acc.ID, &acc.DisplayName, &acc.Balance, &acc.CreatedAt)
	if err == sql.ErrNoRows {
		return pool.Account{}, pool.ErrNotFound
	}
	return acc, err
}

// PlaceBet valida e registra uma aposta pendente.
//
// Precondições checadas dentro da transação: partida existe, desfecho ainda
// indefinido, janela aberta (status scheduled e now < start_time - 30min),
// stake positivo. Nenhum saldo é movido na aposta; pontos só mudam na
// liquidação.
//
// O lock FOR SHARE na linha da partida deixa apostas concorrentes passarem
// entre si, mas bloqueia contra o FOR UPDATE da liquidação/reversão. A
// unicidade por (match_id, account_id) fica na constraint do banco: de duas
// apostas correndo para o mesmo par, a perdedora recebe ErrDuplicateBet.
func (p *Postgres) PlaceBet(ctx context.Context, accountID, matchID string, side pool.Side, stake int64) (pool.Bet, error) {
	if stake <= 0 {
		return pool.Bet{}, pool.ErrInvalidStake
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return pool.Bet{}, err
	}
	defer tx.Rollback()

	var status pool.MatchStatus
	var outcome pool.Outcome
	var startTime time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT status, outcome, start_time FROM matches WHERE id=$1 FOR SHARE`, matchID).
		Scan(&status, &outcome, &startTime)
	if err == sql.ErrNoRows {
		return pool.Bet{}, pool.ErrMatchNotFound
	} else if err != nil {
		return pool.Bet{}, err
	}

	if outcome != pool.OutcomeUndecided {
		return pool.Bet{}, pool.ErrAlreadySettled
	}
	if status != pool.MatchScheduled || !pool.BettingOpen(startTime, p.now()) {
		return pool.Bet{}, pool.ErrWindowClosed
	}

	bet := pool.Bet{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		AccountID: accountID,
		Side:      side,
		Stake:     stake,
		State:     pool.BetPending,
		NetPoints: 0,
		PlacedAt:  p.now(),
		UpdatedAt: p.now(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO bets (id, match_id, account_id, side, stake, state, net_points, placed_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,'pending',0,$6,$6)`,
		bet.ID, bet.MatchID, bet.AccountID, bet.Side, bet.Stake, bet.PlacedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return pool.Bet{}, pool.ErrDuplicateBet
		}
		return pool.Bet{}, err
	}

	if err = tx.Commit(); err != nil {
		return pool.Bet{}, err
	}
	return bet, nil
}

// PoolTotals soma os stakes pendentes por lado. A soma roda num único
// statement, então reflete um snapshot consistente do estado commitado.
func (p *Postgres) PoolTotals(ctx context.Context, matchID string) (pool.PoolTotals, error) {
	var exists int
	err := p.db.QueryRowContext(ctx, `SELECT 1 FROM matches WHERE id=$1`, matchID).Scan(&exists)
	if err == sql.ErrNoRows {
		return pool.PoolTotals{}, pool.ErrMatchNotFound
	} else if err != nil {
		return pool.PoolTotals{}, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT side, COALESCE(SUM(stake),0)
		FROM bets
		WHERE match_id=$1 AND state='pending'
		GROUP BY side`, matchID)
	if err != nil {
		return pool.PoolTotals{}, err
	}
	defer rows.Close()

	var totals pool.PoolTotals
	for rows.Next() {
		var side pool.Side
		var sum int64
		if err := rows.Scan(&side, &sum); err != nil {
			return pool.PoolTotals{}, err
		}
		if side == pool.SideHome {
			totals.HomeTotal = sum
		} else {
			totals.AwayTotal = sum
		}
	}
	return totals, rows.Err()
}

// SettleMatch declara o desfecho e aplica o rateio pari-mutuel numa única
// transação: flip do outcome, estado terminal de cada aposta e os deltas de
// saldo. Tudo ou nada.
//
// O FOR UPDATE na partida mais a checagem de outcome dentro da transação
// garantem que, de duas liquidações concorrentes, exatamente uma vence; a
// outra recebe ErrAlreadySettled.
func (p *Postgres) SettleMatch(ctx context.Context, matchID string, outcome pool.Outcome) (pool.Settlement, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return pool.Settlement{}, err
	}
	defer tx.Rollback()

	var current pool.Outcome
	err = tx.QueryRowContext(ctx,
		`SELECT outcome FROM matches WHERE id=$1 FOR UPDATE`, matchID).Scan(&current)
	if err == sql.ErrNoRows {
		return pool.Settlement{}, pool.ErrMatchNotFound
	} else if err != nil {
		return pool.Settlement{}, err
	}
	if current != pool.OutcomeUndecided {
		return pool.Settlement{}, pool.ErrAlreadySettled
	}

	pending, err := p.pendingBets(ctx, tx, matchID)
	if err != nil {
		return pool.Settlement{}, err
	}

	st := pool.Settle(outcome, pending)

	for _, r := range st.Results {
		if _, err = tx.ExecContext(ctx,
			`UPDATE bets SET state=$1, net_points=$2, updated_at=$3 WHERE id=$4`,
			r.State, r.NetPoints, p.now(), r.ID); err != nil {
			return pool.Settlement{}, err
		}
		if r.NetPoints != 0 {
			if _, err = tx.ExecContext(ctx,
				`UPDATE accounts SET balance = balance + $1 WHERE id=$2`,
				r.NetPoints, r.AccountID); err != nil {
				return pool.Settlement{}, err
			}
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE matches SET outcome=$1 WHERE id=$2`, outcome, matchID); err != nil {
		return pool.Settlement{}, err
	}

	if err = tx.Commit(); err != nil {
		return pool.Settlement{}, err
	}
	return st, nil
}

// ResetMatch é o inverso exato da liquidação: subtrai o net_points corrente
// do saldo de cada conta, volta cada aposta terminal para pending com net
// zero e reabre o desfecho da partida.
//
// Chamar numa partida ainda indefinida é erro do operador (ErrNotSettled),
// não um no-op silencioso.
func (p *Postgres) ResetMatch(ctx context.Context, matchID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current pool.Outcome
	err = tx.QueryRowContext(ctx,
		`SELECT outcome FROM matches WHERE id=$1 FOR UPDATE`, matchID).Scan(&current)
	if err == sql.ErrNoRows {
		return pool.ErrMatchNotFound
	} else if err != nil {
		return err
	}
	if current == pool.OutcomeUndecided {
		return pool.ErrNotSettled
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, account_id, net_points
		FROM bets
		WHERE match_id=$1 AND state IN ('won','lost','refunded')
		ORDER BY placed_at, id`, matchID)
	if err != nil {
		return err
	}
	type terminal struct {
		id        string
		accountID string
		net       int64
	}
	var terminals []terminal
	for rows.Next() {
		var t terminal
		if err := rows.Scan(&t.id, &t.accountID, &t.net); err != nil {
			rows.Close()
			return err
		}
		terminals = append(terminals, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, t := range terminals {
		if t.net != 0 {
			if _, err = tx.ExecContext(ctx,
				`UPDATE accounts SET balance = balance - $1 WHERE id=$2`,
				t.net, t.accountID); err != nil {
				return err
			}
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE bets SET state='pending', net_points=0, updated_at=$1 WHERE id=$2`,
			p.now(), t.id); err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE matches SET outcome='undecided' WHERE id=$1`, matchID); err != nil {
		return err
	}

	return tx.Commit()
}

// pendingBets lê as apostas pendentes da partida dentro da transação corrente
func (p *Postgres) pendingBets(ctx context.Context, tx *sql.Tx, matchID string) ([]pool.PendingBet, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, account_id, side, stake
		FROM bets
		WHERE match_id=$1 AND state='pending'
		ORDER BY placed_at, id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pool.PendingBet
	for rows.Next() {
		var b pool.PendingBet
		if err := rows.Scan(&b.ID, &b.AccountID, &b.Side, &b.Stake); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetMatch retorna a partida pelo id
func (p *Postgres) GetMatch(ctx context.Context, matchID string) (pool.Match, error) {
	var m pool.Match
	err := p.db.QueryRowContext(ctx, `
		SELECT id, home_team, away_team, home_flag, away_flag, home_score, away_score,
		       stage, status, outcome, start_time
		FROM matches WHERE id=$1`, matchID).
		Scan(&m.ID, &m.HomeTeam, &m.AwayTeam, &m.HomeFlag, &m.AwayFlag,
			&m.HomeScore, &m.AwayScore, &m.Stage, &m.Status, &m.Outcome, &m.StartTime)
	if err == sql.ErrNoRows {
		return pool.Match{}, pool.ErrMatchNotFound
	}
	return m, err
}

// ListMatches retorna todas as partidas ordenadas por data de início
func (p *Postgres) ListMatches(ctx context.Context) ([]pool.Match, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, home_team, away_team, home_flag, away_flag, home_score, away_score,
		       stage, status, outcome, start_time
		FROM matches
		ORDER BY start_time, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pool.Match
	for rows.Next() {
		var m pool.Match
		if err := rows.Scan(&m.ID, &m.HomeTeam, &m.AwayTeam, &m.HomeFlag, &m.AwayFlag,
			&m.HomeScore, &m.AwayScore, &m.Stage, &m.Status, &m.Outcome, &m.StartTime); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListBetsByMatch retorna as apostas de uma partida, mais recentes primeiro
func (p *Postgres) ListBetsByMatch(ctx context.Context, matchID string) ([]pool.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, match_id, account_id, side, stake, state, net_points, placed_at, updated_at
		FROM bets
		WHERE match_id=$1
		ORDER BY placed_at DESC, id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pool.Bet
	for rows.Next() {
		var b pool.Bet
		if err := rows.Scan(&b.ID, &b.MatchID, &b.AccountID, &b.Side, &b.Stake,
			&b.State, &b.NetPoints, &b.PlacedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Leaderboard retorna as contas ordenadas por saldo, maior primeiro
func (p *Postgres) Leaderboard(ctx context.Context, limit int) ([]pool.Account, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, display_name, balance, created_at
		FROM accounts
		ORDER BY balance DESC, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pool.Account
	for rows.Next() {
		var a pool.Account
		if err := rows.Scan(&a.ID, &a.DisplayName, &a.Balance, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
