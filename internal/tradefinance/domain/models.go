package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// FacilityType is the category of trade-finance instrument.
type FacilityType string

const (
	FacilityLetterOfCredit       FacilityType = "letter_of_credit"
	FacilityInvoiceFinancing     FacilityType = "invoice_financing"
	FacilityTradeGuarantee       FacilityType = "trade_guarantee"
	FacilityExportFinancing      FacilityType = "export_financing"
	FacilityImportFinancing      FacilityType = "import_financing"
	FacilitySupplyChainFinancing FacilityType = "supply_chain_financing"
)

// ReferencePrefix returns the short code used in generated reference numbers.
func (f FacilityType) ReferencePrefix() string {
	switch f {
	case FacilityLetterOfCredit:
		return "LC"
	case FacilityInvoiceFinancing:
		return "IF"
	case FacilityTradeGuarantee:
		return "TG"
	case FacilityExportFinancing:
		return "EF"
	case FacilityImportFinancing:
		return "IM"
	case FacilitySupplyChainFinancing:
		return "SC"
	default:
		return "TF"
	}
}

// Valid reports whether the facility type is a known instrument.
func (f FacilityType) Valid() bool {
	switch f {
	case FacilityLetterOfCredit, FacilityInvoiceFinancing, FacilityTradeGuarantee,
		FacilityExportFinancing, FacilityImportFinancing, FacilitySupplyChainFinancing:
		return true
	default:
		return false
	}
}

// ApplicationStatus represents lifecycle states for an application.
type ApplicationStatus string

const (
	StatusDraft       ApplicationStatus = "draft"
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusActive      ApplicationStatus = "active"
	StatusRejected    ApplicationStatus = "rejected"
	StatusWithdrawn   ApplicationStatus = "withdrawn"
	StatusCompleted   ApplicationStatus = "completed"
	StatusCancelled   ApplicationStatus = "cancelled"
)

// Valid reports whether the status is a known lifecycle state.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved,
		StatusActive, StatusRejected, StatusWithdrawn, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are permitted.
func (s ApplicationStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusWithdrawn, StatusCancelled:
		return true
	default:
		return false
	}
}

// Application is a credit-backed trade finance application. Amounts are held
// in currency minor units.
type Application struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	UserID          string       `gorm:"type:text;not null;index"`
	ReferenceNumber string       `gorm:"type:text;not null;uniqueIndex:ux_tf_applications_reference"`

	FacilityType FacilityType `gorm:"type:text;not null"`
	Amount       int64        `gorm:"not null"`
	Currency     string       `gorm:"type:char(3);not null;default:'NGN'"`

	BeneficiaryName    string            `gorm:"type:text;not null"`
	BeneficiaryDetails datatypes.JSONMap `gorm:"type:jsonb"`

	Title       string     `gorm:"type:text;not null"`
	Description *string    `gorm:"type:text"`
	Purpose     *string    `gorm:"type:text"`
	ExpiryDate  *time.Time `gorm:""`

	Status ApplicationStatus `gorm:"type:text;not null;index"`

	ApplicationDate time.Time  `gorm:"not null"`
	SubmittedDate   *time.Time `gorm:""`
	ReviewedDate    *time.Time `gorm:""`
	ApprovedDate    *time.Time `gorm:""`
	ActivationDate  *time.Time `gorm:""`
	CompletionDate  *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Application) TableName() string { return "trade_finance_applications" }

// Document is uploaded evidence attached to an application. The bytes live in
// the external storage collaborator; only the pointer is recorded here.
type Document struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	ApplicationID snowflake.ID `gorm:"not null;index"`
	UserID        string       `gorm:"type:text;not null"`
	FileName      string       `gorm:"type:text;not null"`
	ContentType   *string      `gorm:"type:text"`
	SizeBytes     int64        `gorm:"not null;default:0"`
	StoragePath   string       `gorm:"type:text;not null"`
	UploadedAt    time.Time    `gorm:"not null"`
}

func (Document) TableName() string { return "trade_finance_documents" }

// TransactionType classifies movements against an activated facility.
type TransactionType string

const (
	TransactionDisbursement TransactionType = "disbursement"
	TransactionRepayment    TransactionType = "repayment"
)

// Transaction records a disbursement or repayment against a facility. Rows
// are written by the downstream settlement system; this service reads them
// for display.
type Transaction struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	ApplicationID snowflake.ID    `gorm:"not null;index"`
	Type          TransactionType `gorm:"column:transaction_type;type:text;not null"`
	Amount        int64           `gorm:"not null"`
	Currency      string          `gorm:"type:char(3);not null;default:'NGN'"`
	Reference     *string         `gorm:"type:text"`
	OccurredAt    time.Time       `gorm:"not null"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Transaction) TableName() string { return "trade_finance_transactions" }
