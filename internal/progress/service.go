package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/formcoach/internal/telemetry/metrics"
	"github.com/2beens/formcoach/internal/telemetry/tracing"
)

const (
	goalsCacheSize       = 10 * 1024 * 1024
	goalsCacheTTLSeconds = 300
	DefaultListLimit     = 20
	MaxListLimit         = 200
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=progress_test

type progressRepo interface {
	RecordSession(ctx context.Context, summary Summary) (_ int, err error)
	ListSummaries(ctx context.Context, userID string, limit int) (_ []Summary, err error)
	GetGoals(ctx context.Context, userID string) (_ *Goals, err error)
	SetGoals(ctx context.Context, goals Goals) (_ *Goals, err error)
	GetTotals(ctx context.Context, userID string) (_ *Totals, err error)
}

type Service struct {
	repo           progressRepo
	goalsCache     *freecache.Cache
	metricsManager *metrics.Manager
}

func NewService(repo progressRepo, metricsManager *metrics.Manager) *Service {
	return &Service{
		repo:           repo,
		goalsCache:     freecache.NewCache(goalsCacheSize),
		metricsManager: metricsManager,
	}
}

func (s *Service) RecordSession(ctx context.Context, summary Summary) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.recordsession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user_id", summary.UserID),
		attribute.String("exercise", summary.Exercise),
	)

	if err := summary.Validate(); err != nil {
		return 0, fmt.Errorf("invalid summary: %w", err)
	}

	id, err := s.repo.RecordSession(ctx, summary)
	if err != nil {
		return 0, fmt.Errorf("record session: %w", err)
	}

	s.metricsManager.CounterSummariesRecorded.Inc()
	return id, nil
}

func (s *Service) ListSummaries(ctx context.Context, userID string, limit int) (_ []Summary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.listsummaries")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	summaries, err := s.repo.ListSummaries(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	return summaries, nil
}

func (s *Service) GetGoals(ctx context.Context, userID string) (_ *Goals, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.getgoals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}

	if cached, err := s.goalsCache.Get([]byte(userID)); err == nil {
		var goals Goals
		if err := json.Unmarshal(cached, &goals); err == nil {
			span.SetAttributes(attribute.Bool("cached", true))
			return &goals, nil
		}
		log.Warnf("progress: drop corrupt cached goals of %s", userID)
		s.goalsCache.Del([]byte(userID))
	} else if !errors.Is(err, freecache.ErrNotFound) {
		log.Warnf("progress: goals cache get: %s", err)
	}

	goals, err := s.repo.GetGoals(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get goals: %w", err)
	}

	s.cacheGoals(*goals)
	return goals, nil
}

func (s *Service) SetGoals(ctx context.Context, goals Goals) (_ *Goals, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.setgoals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := goals.Validate(); err != nil {
		return nil, fmt.Errorf("invalid goals: %w", err)
	}

	s.goalsCache.Del([]byte(goals.UserID))
	saved, err := s.repo.SetGoals(ctx, goals)
	if err != nil {
		return nil, fmt.Errorf("set goals: %w", err)
	}

	s.cacheGoals(*saved)
	return saved, nil
}

func (s *Service) GetTotals(ctx context.Context, userID string) (_ *Totals, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress.gettotals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}

	totals, err := s.repo.GetTotals(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get totals: %w", err)
	}
	return totals, nil
}

func (s *Service) cacheGoals(goals Goals) {
	goalsJson, err := json.Marshal(goals)
	if err != nil {
		log.Errorf("progress: marshal goals for cache: %s", err)
		return
	}
	if err := s.goalsCache.Set([]byte(goals.UserID), goalsJson, goalsCacheTTLSeconds); err != nil {
		log.Warnf("progress: cache goals: %s", err)
	}
}
