package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/seftec/platform/internal/clock"
	"github.com/seftec/platform/internal/featureflag/broadcast"
	"github.com/seftec/platform/internal/featureflag/domain"
	"github.com/seftec/platform/internal/featureflag/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, withSchema bool) (*Service, *gorm.DB, *broadcast.Hub) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	if withSchema {
		db.Exec(`CREATE TABLE IF NOT EXISTS feature_flags (
			name TEXT PRIMARY KEY,
			enabled BOOLEAN NOT NULL DEFAULT FALSE,
			rollout_pct INTEGER NOT NULL DEFAULT 0,
			description TEXT,
			updated_at TIMESTAMP NOT NULL
		)`)
	}

	hub := broadcast.NewHub()
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
		Hub:   hub,
	}).(*Service)

	return svc, db, hub
}

func seedFlag(t *testing.T, db *gorm.DB, name string, enabled bool, rollout int) {
	t.Helper()
	err := db.Exec(
		"INSERT INTO feature_flags (name, enabled, rollout_pct, updated_at) VALUES (?, ?, ?, ?)",
		name, enabled, rollout, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	).Error
	require.NoError(t, err)
}

func TestEvaluateDeterministic(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	seedFlag(t, db, "new_dashboard", true, 50)

	ctx := context.Background()
	first := svc.Evaluate(ctx, "new_dashboard", "user_123")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, svc.Evaluate(ctx, "new_dashboard", "user_123"))
	}
}

func TestEvaluateDisabledDominatesRollout(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	seedFlag(t, db, "bizgenie_chat", false, 100)

	res := svc.Evaluate(context.Background(), "bizgenie_chat", "user_123")
	assert.False(t, res.Enabled)
	assert.Equal(t, domain.ReasonDisabled, res.Reason)
}

func TestEvaluateFullRollout(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	seedFlag(t, db, "bulk_payments", true, 100)

	res := svc.Evaluate(context.Background(), "bulk_payments", "user_123")
	assert.True(t, res.Enabled)
	assert.Equal(t, domain.ReasonEnabled, res.Reason)
}

func TestEvaluateZeroRollout(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	seedFlag(t, db, "new_dashboard", true, 0)

	res := svc.Evaluate(context.Background(), "new_dashboard", "user_123")
	assert.False(t, res.Enabled)
	assert.Equal(t, domain.ReasonRollout, res.Reason)
}

func TestEvaluateMissingFlag(t *testing.T) {
	svc, _, _ := newTestService(t, true)

	res := svc.Evaluate(context.Background(), "never_created", "user_123")
	assert.False(t, res.Enabled)
	assert.Equal(t, domain.ReasonDisabled, res.Reason)
}

func TestEvaluateFailsClosedOnLookupError(t *testing.T) {
	// No schema: every lookup errors out and must resolve to disabled.
	svc, _, _ := newTestService(t, false)

	res := svc.Evaluate(context.Background(), "new_dashboard", "user_123")
	assert.False(t, res.Enabled)
	assert.Equal(t, domain.ReasonDisabled, res.Reason)
}

func TestEvaluateManyMissingFlagIsIsolated(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	seedFlag(t, db, "bulk_payments", true, 100)
	seedFlag(t, db, "bizgenie_chat", false, 0)

	flags, err := svc.EvaluateMany(context.Background(), []string{"bulk_payments", "bizgenie_chat", "never_created"}, "user_123")
	require.NoError(t, err)
	assert.Len(t, flags, 3)
	assert.True(t, flags["bulk_payments"])
	assert.False(t, flags["bizgenie_chat"])
	assert.False(t, flags["never_created"])
}

func TestEvaluateManyAggregateFailure(t *testing.T) {
	svc, _, _ := newTestService(t, false)

	flags, err := svc.EvaluateMany(context.Background(), []string{"bulk_payments", "new_dashboard"}, "user_123")
	assert.ErrorIs(t, err, domain.ErrLookup)
	assert.Len(t, flags, 2)
	assert.False(t, flags["bulk_payments"])
	assert.False(t, flags["new_dashboard"])
}

func TestUpdateValidation(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	seedFlag(t, db, "new_dashboard", false, 0)

	t.Run("rollout out of range", func(t *testing.T) {
		rollout := 101
		_, err := svc.Update(context.Background(), domain.UpdateRequest{
			Name:           "new_dashboard",
			Enabled:        true,
			RolloutPercent: &rollout,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidRollout)
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := svc.Update(context.Background(), domain.UpdateRequest{
			Name:    "never_created",
			Enabled: true,
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := svc.Update(context.Background(), domain.UpdateRequest{Name: "  "})
		assert.ErrorIs(t, err, domain.ErrInvalidName)
	})
}

func TestUpdatePersistsAndResolves(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	seedFlag(t, db, "bizgenie_chat", false, 0)

	rollout := 100
	flag, err := svc.Update(context.Background(), domain.UpdateRequest{
		Name:           "bizgenie_chat",
		Enabled:        true,
		RolloutPercent: &rollout,
	})
	require.NoError(t, err)
	assert.True(t, flag.Enabled)
	assert.Equal(t, 100, flag.RolloutPercent)

	res := svc.Evaluate(context.Background(), "bizgenie_chat", "user_123")
	assert.True(t, res.Enabled)
}

func TestSubscribeIndependentRegistrations(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	seedFlag(t, db, "new_dashboard", false, 0)

	firstEvents := make(chan domain.ChangeEvent, 4)
	secondEvents := make(chan domain.ChangeEvent, 4)

	unsubscribeFirst := svc.Subscribe(func(e domain.ChangeEvent) { firstEvents <- e })
	unsubscribeSecond := svc.Subscribe(func(e domain.ChangeEvent) { secondEvents <- e })
	defer unsubscribeSecond()

	_, err := svc.Update(context.Background(), domain.UpdateRequest{Name: "new_dashboard", Enabled: true})
	require.NoError(t, err)

	assert.Equal(t, "new_dashboard", waitForEvent(t, firstEvents).Name)
	assert.Equal(t, "new_dashboard", waitForEvent(t, secondEvents).Name)

	// Dropping one registration must not affect the other.
	unsubscribeFirst()
	unsubscribeFirst()

	_, err = svc.Update(context.Background(), domain.UpdateRequest{Name: "new_dashboard", Enabled: false})
	require.NoError(t, err)

	event := waitForEvent(t, secondEvents)
	assert.Equal(t, "new_dashboard", event.Name)
	assert.False(t, event.Enabled)

	select {
	case e, ok := <-firstEvents:
		if ok {
			t.Fatalf("unsubscribed callback received event %v", e)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func waitForEvent(t *testing.T, ch <-chan domain.ChangeEvent) domain.ChangeEvent {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for flag change event")
		return domain.ChangeEvent{}
	}
}

func TestResolveErrorsNeverPropagate(t *testing.T) {
	svc, _, _ := newTestService(t, false)

	// The signature admits no error; this documents that a broken store is
	// indistinguishable from a disabled flag for single evaluations.
	res := svc.Evaluate(context.Background(), "anything", "")
	assert.False(t, res.Enabled)

	_, err := svc.EvaluateMany(context.Background(), []string{"anything"}, "")
	assert.True(t, errors.Is(err, domain.ErrLookup))
}
