package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis abre a conexão com o Redis e valida com um ping
func ConnectRedis(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}
