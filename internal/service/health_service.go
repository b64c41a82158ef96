package service

import (
	"context"
	"time"

	"ai-finance-assistant-be/internal/dto"
)

type Pinger func(ctx context.Context) error

type IHealthService interface {
	Check(ctx context.Context) *dto.HealthResponse
}

type healthService struct {
	elastic  Pinger
	database Pinger
}

func NewHealthService(elastic, database Pinger) IHealthService {
	return &healthService{elastic: elastic, database: database}
}

func (s *healthService) Check(ctx context.Context) *dto.HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res := &dto.HealthResponse{
		Status:        "ok",
		Elasticsearch: probe(ctx, s.elastic),
		Database:      probe(ctx, s.database),
	}
	if res.Elasticsearch != "ok" || res.Database != "ok" {
		res.Status = "degraded"
	}
	return res
}

func probe(ctx context.Context, ping Pinger) string {
	if ping == nil {
		return "disabled"
	}
	if err := ping(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
