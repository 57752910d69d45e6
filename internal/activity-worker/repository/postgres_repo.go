package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/office-pool-platform/pkg/contracts/events"
)

// PostgresRepo persiste a trilha de atividade do bolão (apostas recentes
// por partida), consumida pelo painel de atividade da UI.
type PostgresRepo struct {
	DB *sql.DB
}

// NewPostgresRepo retorna uma instância de repositório Postgres
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// InsertActivity registra uma aposta na trilha de atividade.
// ON CONFLICT por bet_id torna o consumo idempotente: o mesmo evento Kafka
// pode chegar mais de uma vez.
func (r *PostgresRepo) InsertActivity(ctx context.Context, e events.WagerPlaced) error {
	const q = `
		INSERT INTO pool_activity
		  (id, bet_id, match_id, account_id, side, stake, placed_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (bet_id) DO NOTHING
	`
	_, err := r.DB.ExecContext(ctx, q,
		uuid.NewString(), e.BetID, e.MatchID, e.AccountID, e.Side, e.Stake,
		time.UnixMilli(e.TsUnixMs),
	)
	return err
}
