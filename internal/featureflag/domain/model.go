package domain

import "time"

// FeatureFlag is the persisted flag record. Flags are seeded at deploy time
// and toggled by administrators; they are never hard-deleted.
type FeatureFlag struct {
	Name           string    `gorm:"primaryKey;type:text" json:"name"`
	Enabled        bool      `gorm:"not null;default:false" json:"enabled"`
	RolloutPercent int       `gorm:"column:rollout_pct;not null;default:0" json:"rollout_percent"`
	Description    *string   `gorm:"type:text" json:"description,omitempty"`
	UpdatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (FeatureFlag) TableName() string { return "feature_flags" }

// Reason explains a flag decision.
type Reason string

const (
	ReasonEnabled  Reason = "enabled"
	ReasonDisabled Reason = "disabled"
	ReasonRollout  Reason = "rollout"
)

// Resolution is the decision for one (flag, user) pair. It is computed fresh
// per query and never persisted.
type Resolution struct {
	Enabled bool   `json:"is_enabled"`
	Reason  Reason `json:"reason"`
}

// ChangeEvent is broadcast to subscribers when a flag mutates, including
// mutations performed by other processes.
type ChangeEvent struct {
	Name           string    `json:"name"`
	Enabled        bool      `json:"enabled"`
	RolloutPercent int       `json:"rollout_percent"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Origin identifies the publishing process so the redis bridge can
	// skip events it already delivered locally.
	Origin string `json:"origin,omitempty"`
}
