package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/repository"
)

// DashboardService produces coordination totals for the current semester.
type DashboardService interface {
	Get(ctx context.Context) (dto.DashboardResponse, error)
}

type dashboardService struct {
	repo      repository.DashboardRepository
	semesters SemesterService
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewDashboardService builds the dashboard aggregator. A nil cache disables caching.
func NewDashboardService(repo repository.DashboardRepository, semesters SemesterService, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		repo:      repo,
		semesters: semesters,
		cache:     cache,
		cacheTTL:  ttl,
		logger:    logger.With().Str("component", "dashboard_service").Logger(),
		now:       time.Now,
	}
}

func (s *dashboardService) Get(ctx context.Context) (dto.DashboardResponse, error) {
	semester, err := s.semesters.Current(ctx)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	cacheKey := fmt.Sprintf("dashboard:semester:%d", semester.ID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.DashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("semester_id", semester.ID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	counts, err := s.repo.Counts(ctx, &semester.ID)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	evaluations, err := s.repo.ListScoredEvaluations(ctx, &semester.ID)
	if err != nil {
		return dto.DashboardResponse{}, err
	}

	planning := make([]float64, 0, len(evaluations))
	class := make([]float64, 0, len(evaluations))
	for _, evaluation := range evaluations {
		planning = append(planning, evaluation.PlanningPercentage())
		class = append(class, evaluation.ClassPercentage())
	}

	semesterResp := dto.NewSemesterResponse(semester)
	response := dto.DashboardResponse{
		Semester:                  &semesterResp,
		Teachers:                  counts.Teachers,
		Courses:                   counts.Courses,
		Evaluations:               counts.Evaluations,
		CompletedEvaluations:      counts.CompletedEvaluations,
		PendingSchedules:          counts.PendingSchedules,
		AveragePlanningPercentage: roundOne(average(planning)),
		AverageClassPercentage:    roundOne(average(class)),
		GeneratedAt:               s.now().UTC(),
	}

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

func roundOne(value float64) float64 {
	return math.RoundToEven(value*10) / 10
}
