package services

import (
	"context"

	"github.com/dukabook/duka-ledger/pkg/pg"
	"github.com/dukabook/duka-ledger/pkg/redis"
)

type HealthStatus struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Degraded bool              `json:"-"`
}

type HealthService struct {
	db    *pg.DB
	redis redis.RedisAdapter
}

func NewHealthService(db *pg.DB, redis redis.RedisAdapter) *HealthService {
	return &HealthService{db: db, redis: redis}
}

// Check pings the dependencies this process cannot serve without. Redis is
// optional; a cache outage degrades the report but keeps the status "ok".
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status: "ok",
		Checks: map[string]string{},
	}

	if s.db != nil {
		if sqlDB, err := s.db.Read(ctx).DB(); err != nil {
			status.Status = "unavailable"
			status.Checks["postgres"] = err.Error()
		} else if err := sqlDB.PingContext(ctx); err != nil {
			status.Status = "unavailable"
			status.Checks["postgres"] = err.Error()
		} else {
			status.Checks["postgres"] = "ok"
		}
	}

	if s.redis != nil {
		if err := s.redis.Client().Ping(ctx).Err(); err != nil {
			status.Degraded = true
			status.Checks["redis"] = err.Error()
		} else {
			status.Checks["redis"] = "ok"
		}
	}

	return status
}
