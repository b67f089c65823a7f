package database

import (
	"context"
	"database/sql"
	"time"
)

// Gateway groups the repositories the sync engine writes through.
type Gateway struct {
	*LeadRepository
	*EventRepository
	*UserRepository
	*PipelineRepository
	*MetricsRepository

	db *sql.DB
}

func NewGateway(db *sql.DB, metricsTimeout time.Duration) *Gateway {
	return &Gateway{
		LeadRepository:     NewLeadRepository(db),
		EventRepository:    NewEventRepository(db),
		UserRepository:     NewUserRepository(db),
		PipelineRepository: NewPipelineRepository(db),
		MetricsRepository:  NewMetricsRepository(db, metricsTimeout),
		db:                 db,
	}
}

func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}
