package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trackify-io/trackify/db"
)

type Status string

const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

type Indicator struct {
	Name  string
	Check func() error
}

func DatabaseIndicator(db *db.DB) *Indicator {
	return &Indicator{
		Name: "db",
		Check: func() error {
			return db.Ping()
		},
	}
}

func RedisIndicator(client *redis.Client) *Indicator {
	return &Indicator{
		Name: "redis",
		Check: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return client.Ping(ctx).Err()
		},
	}
}
