package domain

import (
	"context"
	"errors"
	"time"

	"github.com/seftec/platform/pkg/db/pagination"
)

// Service owns the application lifecycle. Reviewer-side transitions
// (under_review, approved, rejected, active, completed) belong to an external
// back-office system; they are accepted states here but no operation performs
// them.
type Service interface {
	Create(ctx context.Context, userID string, req CreateRequest) (*Application, error)
	Update(ctx context.Context, applicationID, userID string, req UpdateRequest) (*Application, error)
	Submit(ctx context.Context, applicationID, userID string) (*Application, error)
	Withdraw(ctx context.Context, applicationID, userID string) (*Application, error)
	Get(ctx context.Context, applicationID, userID string) (*Application, error)
	List(ctx context.Context, userID string, filter ListRequest) (*ListResponse, error)
	Summary(ctx context.Context, userID string) (*SummaryResponse, error)
	AttachDocument(ctx context.Context, applicationID, userID string, req AttachDocumentRequest) (*Document, error)
	ListDocuments(ctx context.Context, applicationID, userID string) ([]Document, error)
	ListTransactions(ctx context.Context, applicationID, userID string) ([]Transaction, error)
}

type CreateRequest struct {
	FacilityType       FacilityType   `json:"facility_type"`
	Amount             int64          `json:"amount"`
	Currency           string         `json:"currency"`
	BeneficiaryName    string         `json:"beneficiary_name"`
	BeneficiaryDetails map[string]any `json:"beneficiary_details,omitempty"`
	Title              string         `json:"title"`
	Description        *string        `json:"description,omitempty"`
	Purpose            *string        `json:"purpose,omitempty"`
	ExpiryDate         *time.Time     `json:"expiry_date,omitempty"`
}

type UpdateRequest struct {
	Amount             *int64         `json:"amount,omitempty"`
	Currency           *string        `json:"currency,omitempty"`
	BeneficiaryName    *string        `json:"beneficiary_name,omitempty"`
	BeneficiaryDetails map[string]any `json:"beneficiary_details,omitempty"`
	Title              *string        `json:"title,omitempty"`
	Description        *string        `json:"description,omitempty"`
	Purpose            *string        `json:"purpose,omitempty"`
	ExpiryDate         *time.Time     `json:"expiry_date,omitempty"`
}

type ListRequest struct {
	Status    ApplicationStatus
	PageToken string
	PageSize  int
}

// ListResponse pages newest-first by keyset cursor so admins scrolling a long
// history never see rows shift under concurrent inserts.
type ListResponse struct {
	Applications []Application       `json:"applications"`
	PageInfo     pagination.PageInfo `json:"page_info"`
}

type AttachDocumentRequest struct {
	FileName    string  `json:"file_name"`
	ContentType *string `json:"content_type,omitempty"`
	SizeBytes   int64   `json:"size_bytes"`
	StoragePath string  `json:"storage_path"`
}

// SummaryResponse aggregates the querying user's facilities. Active covers
// the active status; pending covers submitted and under_review.
type SummaryResponse struct {
	ActiveFacilitiesCount    int64  `json:"active_facilities_count"`
	ActiveFacilitiesTotal    int64  `json:"active_facilities_total"`
	PendingApplicationsCount int64  `json:"pending_applications_count"`
	PendingApplicationsTotal int64  `json:"pending_applications_total"`
	CreditLimit              int64  `json:"credit_limit"`
	UsedLimit                int64  `json:"used_limit"`
	AvailableLimit           int64  `json:"available_limit"`
	Currency                 string `json:"currency"`
}

var (
	ErrNotFound           = errors.New("application_not_found")
	ErrInvalidState       = errors.New("invalid_application_state")
	ErrInsufficientCredit = errors.New("insufficient_credit")
	ErrMissingDocument    = errors.New("missing_document")

	ErrInvalidFacilityType = errors.New("invalid_facility_type")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidBeneficiary  = errors.New("invalid_beneficiary_name")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidDocument     = errors.New("invalid_document")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
)
