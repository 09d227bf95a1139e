package services

import (
	"context"

	"github.com/baharkarakas/custodial-ledger/internal/models"
	repo "github.com/baharkarakas/custodial-ledger/internal/repository"
)

type StatsService struct{ r repo.Stats }

func NewStatsService(r repo.Stats) *StatsService { return &StatsService{r: r} }

func (s *StatsService) Get(ctx context.Context) (models.Stats, error) { return s.r.Stats(ctx) }
