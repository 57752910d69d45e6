package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "pool:leaderboard"

// Leaderboard é um cache curto do ranking por saldo.
// Só informação de exibição passa por aqui; os totais do bolão são sempre
// lidos direto do ledger.
type Leaderboard struct{ R *redis.Client }

func NewLeaderboard(r *redis.Client) *Leaderboard { return &Leaderboard{R: r} }

func (c *Leaderboard) Get(ctx context.Context, dst any) (bool, error) {
	b, err := c.R.Get(ctx, leaderboardKey).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Leaderboard) Set(ctx context.Context, v any, ttl time.Duration) error {
	b, _ := json.Marshal(v)
	return c.R.Set(ctx, leaderboardKey, b, ttl).Err()
}

// Invalidate derruba o cache após liquidação/reversão, que mudam saldos
func (c *Leaderboard) Invalidate(ctx context.Context) error {
	return c.R.Del(ctx, leaderboardKey).Err()
}
