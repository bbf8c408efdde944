package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/seftec/platform/internal/clock"
	creditdomain "github.com/seftec/platform/internal/creditlimit/domain"
	"github.com/seftec/platform/internal/observability/metrics"
	"github.com/seftec/platform/internal/tradefinance/domain"
	pkgdb "github.com/seftec/platform/pkg/db"
	"github.com/seftec/platform/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultCurrency = "NGN"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	Repo       domain.Repository
	CreditRepo creditdomain.Repository
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	genID      *snowflake.Node
	repo       domain.Repository
	creditRepo creditdomain.Repository
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("tradefinance.service"),
		clock:      p.Clock,
		genID:      p.GenID,
		repo:       p.Repo,
		creditRepo: p.CreditRepo,
		metrics:    p.Metrics,
	}
}

// Create opens a draft application after validating the request against the
// user's credit limit. An amount equal to the available limit passes; only a
// strictly greater amount is rejected.
func (s *Service) Create(ctx context.Context, userID string, req domain.CreateRequest) (*domain.Application, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	if !req.FacilityType.Valid() {
		return nil, domain.ErrInvalidFacilityType
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	beneficiary := strings.TrimSpace(req.BeneficiaryName)
	if beneficiary == "" {
		return nil, domain.ErrInvalidBeneficiary
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	// No active credit limit record means no gate; the ledger is owned by an
	// external system and may not cover every user.
	limit, err := s.creditRepo.FindActiveByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if limit != nil && req.Amount > limit.AvailableLimit() {
		s.metrics.RecordCreditDenial(ctx, string(req.FacilityType))
		return nil, domain.ErrInsufficientCredit
	}

	reference, err := s.generateReference(ctx, req.FacilityType)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	app := &domain.Application{
		ID:              s.genID.Generate(),
		UserID:          userID,
		ReferenceNumber: reference,
		FacilityType:    req.FacilityType,
		Amount:          req.Amount,
		Currency:        currency,
		BeneficiaryName: beneficiary,
		Title:           title,
		Description:     trimPtr(req.Description),
		Purpose:         trimPtr(req.Purpose),
		ExpiryDate:      req.ExpiryDate,
		Status:          domain.StatusDraft,
		ApplicationDate: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.BeneficiaryDetails != nil {
		app.BeneficiaryDetails = datatypes.JSONMap(req.BeneficiaryDetails)
	}

	if err := s.repo.Create(ctx, s.db, app); err != nil {
		// Two creations can draw the same reference between the existence
		// check and the insert; the unique index catches it. Redraw once.
		if !pkgdb.IsDuplicateKeyErr(err) {
			return nil, err
		}
		reference, refErr := s.generateReference(ctx, req.FacilityType)
		if refErr != nil {
			return nil, refErr
		}
		app.ReferenceNumber = reference
		if err := s.repo.Create(ctx, s.db, app); err != nil {
			return nil, err
		}
	}

	s.log.Info("application created",
		zap.String("reference", app.ReferenceNumber),
		zap.String("facility_type", string(app.FacilityType)),
	)
	return app, nil
}

// Update patches a draft. Ownership failures and non-existence report
// identically so callers cannot probe for other users' applications.
func (s *Service) Update(ctx context.Context, applicationID, userID string, req domain.UpdateRequest) (*domain.Application, error) {
	app, err := s.findOwned(ctx, applicationID, userID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.StatusDraft {
		return nil, domain.ErrInvalidState
	}

	if req.Amount != nil {
		if *req.Amount <= 0 {
			return nil, domain.ErrInvalidAmount
		}
		app.Amount = *req.Amount
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if currency != "" {
			app.Currency = currency
		}
	}
	if req.BeneficiaryName != nil {
		beneficiary := strings.TrimSpace(*req.BeneficiaryName)
		if beneficiary == "" {
			return nil, domain.ErrInvalidBeneficiary
		}
		app.BeneficiaryName = beneficiary
	}
	if req.BeneficiaryDetails != nil {
		app.BeneficiaryDetails = datatypes.JSONMap(req.BeneficiaryDetails)
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrInvalidTitle
		}
		app.Title = title
	}
	if req.Description != nil {
		app.Description = trimPtr(req.Description)
	}
	if req.Purpose != nil {
		app.Purpose = trimPtr(req.Purpose)
	}
	if req.ExpiryDate != nil {
		app.ExpiryDate = req.ExpiryDate
	}

	app.UpdatedAt = s.clock.Now()
	rows, err := s.repo.UpdateDraft(ctx, s.db, app)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// The draft moved on between the read and the write.
		return nil, domain.ErrInvalidState
	}
	return app, nil
}

// Submit moves a draft to submitted. The write is a compare-and-set on the
// draft status, so of two concurrent submissions exactly one wins.
func (s *Service) Submit(ctx context.Context, applicationID, userID string) (*domain.Application, error) {
	app, err := s.findOwned(ctx, applicationID, userID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.StatusDraft {
		return nil, domain.ErrInvalidState
	}

	docs, err := s.repo.CountDocuments(ctx, s.db, app.ID)
	if err != nil {
		return nil, err
	}
	if docs == 0 {
		return nil, domain.ErrMissingDocument
	}

	now := s.clock.Now()
	rows, err := s.repo.Transition(ctx, s.db, app.ID, userID,
		[]domain.ApplicationStatus{domain.StatusDraft},
		domain.StatusSubmitted,
		domain.TransitionPatch{SubmittedDate: &now},
		now,
	)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrInvalidState
	}

	app.Status = domain.StatusSubmitted
	app.SubmittedDate = &now
	app.UpdatedAt = now

	s.metrics.RecordTransition(ctx, string(domain.StatusSubmitted))
	s.log.Info("application submitted", zap.String("reference", app.ReferenceNumber))
	return app, nil
}

// Withdraw pulls back an application that is submitted or under review. The
// external ledger is not touched; credit restoration belongs downstream.
func (s *Service) Withdraw(ctx context.Context, applicationID, userID string) (*domain.Application, error) {
	app, err := s.findOwned(ctx, applicationID, userID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.StatusSubmitted && app.Status != domain.StatusUnderReview {
		return nil, domain.ErrInvalidState
	}

	now := s.clock.Now()
	rows, err := s.repo.Transition(ctx, s.db, app.ID, userID,
		[]domain.ApplicationStatus{domain.StatusSubmitted, domain.StatusUnderReview},
		domain.StatusWithdrawn,
		domain.TransitionPatch{},
		now,
	)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrInvalidState
	}

	app.Status = domain.StatusWithdrawn
	app.UpdatedAt = now

	s.metrics.RecordTransition(ctx, string(domain.StatusWithdrawn))
	s.log.Info("application withdrawn", zap.String("reference", app.ReferenceNumber))
	return app, nil
}

func (s *Service) Get(ctx context.Context, applicationID, userID string) (*domain.Application, error) {
	return s.findOwned(ctx, applicationID, userID)
}

func (s *Service) List(ctx context.Context, userID string, filter domain.ListRequest) (*domain.ListResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}

	query := domain.ListQuery{
		Status: filter.Status,
		Limit:  normalizePageSize(filter.PageSize),
	}
	if filter.PageToken != "" {
		cursor, err := pagination.DecodeCursor(filter.PageToken)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidPageToken
		}
		query.AfterID = id
	}

	apps, err := s.repo.ListForUser(ctx, s.db, userID, query)
	if err != nil {
		return nil, err
	}

	page, info, err := pagination.BuildCursorPage(apps, query.Limit, func(app domain.Application) pagination.Cursor {
		return pagination.Cursor{ID: app.ID.String()}
	})
	if err != nil {
		return nil, err
	}

	return &domain.ListResponse{Applications: page, PageInfo: info}, nil
}

func normalizePageSize(size int) int {
	const (
		defaultPageSize = 20
		maxPageSize     = 100
	)
	if size <= 0 {
		return defaultPageSize
	}
	if size > maxPageSize {
		return maxPageSize
	}
	return size
}

// Summary aggregates the querying user's facilities and echoes the external
// credit limit. Absent a limit record the credit fields are zero.
func (s *Service) Summary(ctx context.Context, userID string) (*domain.SummaryResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}

	aggregates, err := s.repo.Summarize(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	active := aggregates[domain.StatusActive]
	submitted := aggregates[domain.StatusSubmitted]
	underReview := aggregates[domain.StatusUnderReview]

	summary := &domain.SummaryResponse{
		ActiveFacilitiesCount:    active.Count,
		ActiveFacilitiesTotal:    active.Total,
		PendingApplicationsCount: submitted.Count + underReview.Count,
		PendingApplicationsTotal: submitted.Total + underReview.Total,
		Currency:                 defaultCurrency,
	}

	limit, err := s.creditRepo.FindActiveByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if limit != nil {
		summary.CreditLimit = limit.TotalLimit
		summary.UsedLimit = limit.UsedLimit
		summary.AvailableLimit = limit.AvailableLimit()
		summary.Currency = limit.Currency
	}

	return summary, nil
}

// AttachDocument records uploaded evidence against a draft. The file bytes
// live in the external storage collaborator.
func (s *Service) AttachDocument(ctx context.Context, applicationID, userID string, req domain.AttachDocumentRequest) (*domain.Document, error) {
	app, err := s.findOwned(ctx, applicationID, userID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.StatusDraft {
		return nil, domain.ErrInvalidState
	}

	fileName := strings.TrimSpace(req.FileName)
	storagePath := strings.TrimSpace(req.StoragePath)
	if fileName == "" || storagePath == "" {
		return nil, domain.ErrInvalidDocument
	}

	doc := &domain.Document{
		ID:            s.genID.Generate(),
		ApplicationID: app.ID,
		UserID:        app.UserID,
		FileName:      fileName,
		ContentType:   trimPtr(req.ContentType),
		SizeBytes:     req.SizeBytes,
		StoragePath:   storagePath,
		UploadedAt:    s.clock.Now(),
	}
	if err := s.repo.CreateDocument(ctx, s.db, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) ListDocuments(ctx context.Context, applicationID, userID string) ([]domain.Document, error) {
	app, err := s.findOwned(ctx, applicationID, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListDocuments(ctx, s.db, app.ID)
}

func (s *Service) ListTransactions(ctx context.Context, applicationID, userID string) ([]domain.Transaction, error) {
	app, err := s.findOwned(ctx, applicationID, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, s.db, app.ID)
}

// findOwned resolves an application the user owns. A malformed ID, a missing
// row and a row owned by someone else all report ErrNotFound.
func (s *Service) findOwned(ctx context.Context, applicationID, userID string) (*domain.Application, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	id, err := snowflake.ParseString(strings.TrimSpace(applicationID))
	if err != nil || id == 0 {
		return nil, domain.ErrNotFound
	}

	app, err := s.repo.FindByIDForUser(ctx, s.db, id, userID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, domain.ErrNotFound
	}
	return app, nil
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
