package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// TransitionPatch carries the timestamp column set alongside a state change.
type TransitionPatch struct {
	SubmittedDate  *time.Time
	ReviewedDate   *time.Time
	ApprovedDate   *time.Time
	ActivationDate *time.Time
	CompletionDate *time.Time
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, app *Application) error
	FindByIDForUser(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (*Application, error)
	ListForUser(ctx context.Context, db *gorm.DB, userID string, query ListQuery) ([]Application, error)
	UpdateDraft(ctx context.Context, db *gorm.DB, app *Application) (int64, error)

	// Transition performs an atomic compare-and-set from any of the given
	// states into the target state. It reports the number of rows updated;
	// zero means the application was no longer in an allowed state.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string, from []ApplicationStatus, to ApplicationStatus, patch TransitionPatch, now time.Time) (int64, error)

	ReferenceExists(ctx context.Context, db *gorm.DB, reference string) (bool, error)
	Summarize(ctx context.Context, db *gorm.DB, userID string) (StatusAggregates, error)

	CreateDocument(ctx context.Context, db *gorm.DB, doc *Document) error
	CountDocuments(ctx context.Context, db *gorm.DB, applicationID snowflake.ID) (int64, error)
	ListDocuments(ctx context.Context, db *gorm.DB, applicationID snowflake.ID) ([]Document, error)
	ListTransactions(ctx context.Context, db *gorm.DB, applicationID snowflake.ID) ([]Transaction, error)
}

// ListQuery is the repository-level shape of a list request. AfterID is the
// decoded keyset cursor; zero means start from the newest application. The
// repository returns up to Limit+1 rows so the caller can detect another page.
type ListQuery struct {
	Status  ApplicationStatus
	AfterID snowflake.ID
	Limit   int
}

// StatusAggregates holds per-status counts and amount totals for one user.
type StatusAggregates map[ApplicationStatus]StatusAggregate

type StatusAggregate struct {
	Count int64
	Total int64
}
