package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/seftec/platform/internal/tradefinance/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, app *domain.Application) error {
	return db.WithContext(ctx).Create(app).Error
}

func (r *repo) FindByIDForUser(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (*domain.Application, error) {
	var app domain.Application
	err := db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("id = ? AND user_id = ?", id, strings.TrimSpace(userID)).
		Limit(1).
		Find(&app).Error
	if err != nil {
		return nil, err
	}
	if app.ID == 0 {
		return nil, nil
	}
	return &app, nil
}

// ListForUser pages newest-first keyed on the snowflake ID, which is
// time-ordered. Up to Limit+1 rows come back so the service can detect a
// further page without a second count query.
func (r *repo) ListForUser(ctx context.Context, db *gorm.DB, userID string, query domain.ListQuery) ([]domain.Application, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("user_id = ?", strings.TrimSpace(userID))

	if query.Status != "" {
		stmt = stmt.Where("status = ?", query.Status)
	}
	if query.AfterID != 0 {
		stmt = stmt.Where("id < ?", query.AfterID)
	}
	if query.Limit > 0 {
		stmt = stmt.Limit(query.Limit + 1)
	}

	var apps []domain.Application
	if err := stmt.Order("id DESC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *repo) UpdateDraft(ctx context.Context, db *gorm.DB, app *domain.Application) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("id = ? AND user_id = ? AND status = ?", app.ID, app.UserID, domain.StatusDraft).
		Updates(map[string]any{
			"amount":              app.Amount,
			"currency":            app.Currency,
			"beneficiary_name":    app.BeneficiaryName,
			"beneficiary_details": app.BeneficiaryDetails,
			"title":               app.Title,
			"description":         app.Description,
			"purpose":             app.Purpose,
			"expiry_date":         app.ExpiryDate,
			"updated_at":          app.UpdatedAt,
		})
	return result.RowsAffected, result.Error
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string, from []domain.ApplicationStatus, to domain.ApplicationStatus, patch domain.TransitionPatch, now time.Time) (int64, error) {
	values := map[string]any{
		"status":     to,
		"updated_at": now,
	}
	if patch.SubmittedDate != nil {
		values["submitted_date"] = patch.SubmittedDate
	}
	if patch.ReviewedDate != nil {
		values["reviewed_date"] = patch.ReviewedDate
	}
	if patch.ApprovedDate != nil {
		values["approved_date"] = patch.ApprovedDate
	}
	if patch.ActivationDate != nil {
		values["activation_date"] = patch.ActivationDate
	}
	if patch.CompletionDate != nil {
		values["completion_date"] = patch.CompletionDate
	}

	result := db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("id = ? AND user_id = ? AND status IN ?", id, strings.TrimSpace(userID), from).
		Updates(values)
	return result.RowsAffected, result.Error
}

func (r *repo) ReferenceExists(ctx context.Context, db *gorm.DB, reference string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("reference_number = ?", reference).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Summarize(ctx context.Context, db *gorm.DB, userID string) (domain.StatusAggregates, error) {
	type row struct {
		Status domain.ApplicationStatus `gorm:"column:status"`
		Count  int64                    `gorm:"column:count"`
		Total  int64                    `gorm:"column:total"`
	}

	var rows []row
	err := db.WithContext(ctx).
		Model(&domain.Application{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ?", strings.TrimSpace(userID)).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	aggregates := make(domain.StatusAggregates, len(rows))
	for _, item := range rows {
		aggregates[item.Status] = domain.StatusAggregate{
			Count: item.Count,
			Total: item.Total,
		}
	}
	return aggregates, nil
}

func (r *repo) CreateDocument(ctx context.Context, db *gorm.DB, doc *domain.Document) error {
	return db.WithContext(ctx).Create(doc).Error
}

func (r *repo) CountDocuments(ctx context.Context, db *gorm.DB, applicationID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("application_id = ?", applicationID).
		Count(&count).Error
	return count, err
}

func (r *repo) ListDocuments(ctx context.Context, db *gorm.DB, applicationID snowflake.ID) ([]domain.Document, error) {
	var docs []domain.Document
	err := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("application_id = ?", applicationID).
		Order("uploaded_at").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, applicationID snowflake.ID) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	err := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("application_id = ?", applicationID).
		Order("occurred_at").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
