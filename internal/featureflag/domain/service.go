package domain

import (
	"context"
	"errors"
)

// Service resolves flags for users and accepts administrative mutations.
//
// Evaluate fails closed: a lookup failure or missing record resolves to
// disabled rather than surfacing an error. EvaluateMany is the exception —
// when the batch fetch itself fails every requested flag resolves to false
// and the error is returned alongside.
type Service interface {
	Evaluate(ctx context.Context, flagName, userID string) Resolution
	EvaluateMany(ctx context.Context, flagNames []string, userID string) (map[string]bool, error)
	List(ctx context.Context) ([]FeatureFlag, error)
	Update(ctx context.Context, req UpdateRequest) (*FeatureFlag, error)
	Subscribe(fn func(ChangeEvent)) (unsubscribe func())
}

type UpdateRequest struct {
	Name           string `json:"name"`
	Enabled        bool   `json:"enabled"`
	RolloutPercent *int   `json:"rollout_percent,omitempty"`
}

var (
	ErrInvalidName    = errors.New("invalid_flag_name")
	ErrInvalidRollout = errors.New("invalid_rollout_percent")
	ErrNotFound       = errors.New("flag_not_found")
	ErrLookup         = errors.New("flag_lookup_failed")
)
