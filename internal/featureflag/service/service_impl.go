package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/seftec/platform/internal/clock"
	"github.com/seftec/platform/internal/featureflag/broadcast"
	"github.com/seftec/platform/internal/featureflag/domain"
	"github.com/seftec/platform/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    domain.Repository
	Hub     *broadcast.Hub
	Bridge  *broadcast.Bridge `optional:"true"`
	Metrics *metrics.Metrics  `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	hub     *broadcast.Hub
	bridge  *broadcast.Bridge
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("featureflag.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		hub:     p.Hub,
		bridge:  p.Bridge,
		metrics: p.Metrics,
	}
}

// Evaluate answers "is this flag on for this user". It never returns an
// error: lookup failures and unknown flags resolve to disabled.
func (s *Service) Evaluate(ctx context.Context, flagName, userID string) domain.Resolution {
	name := strings.TrimSpace(flagName)
	if name == "" {
		return domain.Resolution{Enabled: false, Reason: domain.ReasonDisabled}
	}

	flag, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		s.log.Warn("flag lookup failed, resolving disabled",
			zap.String("flag", name),
			zap.Error(err),
		)
		return domain.Resolution{Enabled: false, Reason: domain.ReasonDisabled}
	}
	if flag == nil {
		return domain.Resolution{Enabled: false, Reason: domain.ReasonDisabled}
	}

	res := resolve(flag, userID)
	s.metrics.RecordFlagEvaluation(ctx, name, string(res.Reason))
	return res
}

// EvaluateMany resolves a batch of flags with one fetch. A missing flag
// resolves to false without affecting the others; a failure of the batch
// fetch itself resolves every flag to false and surfaces the error.
func (s *Service) EvaluateMany(ctx context.Context, flagNames []string, userID string) (map[string]bool, error) {
	names := make([]string, 0, len(flagNames))
	for _, raw := range flagNames {
		if name := strings.TrimSpace(raw); name != "" {
			names = append(names, name)
		}
	}

	result := make(map[string]bool, len(names))
	for _, name := range names {
		result[name] = false
	}
	if len(names) == 0 {
		return result, nil
	}

	flags, err := s.repo.FindByNames(ctx, s.db, names)
	if err != nil {
		s.log.Warn("flag batch lookup failed, resolving all disabled", zap.Error(err))
		return result, fmt.Errorf("%w: %v", domain.ErrLookup, err)
	}

	byName := make(map[string]*domain.FeatureFlag, len(flags))
	for i := range flags {
		byName[flags[i].Name] = &flags[i]
	}
	for _, name := range names {
		flag, ok := byName[name]
		if !ok {
			continue
		}
		res := resolve(flag, userID)
		result[name] = res.Enabled
		s.metrics.RecordFlagEvaluation(ctx, name, string(res.Reason))
	}
	return result, nil
}

func (s *Service) List(ctx context.Context) ([]domain.FeatureFlag, error) {
	return s.repo.List(ctx, s.db)
}

// Update persists an administrative mutation and notifies subscribers in
// this and every other process.
func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.FeatureFlag, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.RolloutPercent != nil && (*req.RolloutPercent < 0 || *req.RolloutPercent > 100) {
		return nil, domain.ErrInvalidRollout
	}

	flag, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if flag == nil {
		return nil, domain.ErrNotFound
	}

	flag.Enabled = req.Enabled
	if req.RolloutPercent != nil {
		flag.RolloutPercent = *req.RolloutPercent
	}
	flag.UpdatedAt = s.clock.Now()

	rows, err := s.repo.Update(ctx, s.db, flag)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrNotFound
	}

	event := domain.ChangeEvent{
		Name:           flag.Name,
		Enabled:        flag.Enabled,
		RolloutPercent: flag.RolloutPercent,
		UpdatedAt:      flag.UpdatedAt,
	}
	s.hub.Publish(event)
	if err := s.bridge.Publish(ctx, event); err != nil {
		s.log.Warn("cross-process flag notification failed",
			zap.String("flag", flag.Name),
			zap.Error(err),
		)
	}

	s.metrics.RecordFlagUpdate(ctx, flag.Name)
	s.log.Info("flag updated",
		zap.String("flag", flag.Name),
		zap.Bool("enabled", flag.Enabled),
		zap.Int("rollout_pct", flag.RolloutPercent),
	)
	return flag, nil
}

// Subscribe registers a callback for flag changes. Each call yields its own
// live registration; the returned function stops that registration only.
func (s *Service) Subscribe(fn func(domain.ChangeEvent)) func() {
	sub := s.hub.Subscribe()
	go func() {
		for {
			select {
			case <-sub.Done():
				return
			case event := <-sub.Events():
				fn(event)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(sub.Close)
	}
}

func resolve(flag *domain.FeatureFlag, userID string) domain.Resolution {
	// A disabled flag is fully off, not "0% of users".
	if !flag.Enabled {
		return domain.Resolution{Enabled: false, Reason: domain.ReasonDisabled}
	}
	if flag.RolloutPercent >= 100 {
		return domain.Resolution{Enabled: true, Reason: domain.ReasonEnabled}
	}
	if bucket(flag.Name, strings.TrimSpace(userID)) < flag.RolloutPercent {
		return domain.Resolution{Enabled: true, Reason: domain.ReasonRollout}
	}
	return domain.Resolution{Enabled: false, Reason: domain.ReasonRollout}
}
