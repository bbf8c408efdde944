package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/seftec/platform/internal/clock"
	creditrepository "github.com/seftec/platform/internal/creditlimit/repository"
	"github.com/seftec/platform/internal/tradefinance/domain"
	"github.com/seftec/platform/internal/tradefinance/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var referencePattern = regexp.MustCompile(`^[A-Z]{2}\d{6}$`)

func newTestService(t *testing.T) (*Service, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	// Create tables manually to match production schema.
	db.Exec(`CREATE TABLE IF NOT EXISTS trade_finance_applications (
		id BIGINT PRIMARY KEY,
		user_id TEXT NOT NULL,
		reference_number TEXT NOT NULL,
		facility_type TEXT NOT NULL,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'NGN',
		beneficiary_name TEXT NOT NULL,
		beneficiary_details TEXT,
		title TEXT NOT NULL,
		description TEXT,
		purpose TEXT,
		expiry_date TIMESTAMP,
		status TEXT NOT NULL,
		application_date TIMESTAMP NOT NULL,
		submitted_date TIMESTAMP,
		reviewed_date TIMESTAMP,
		approved_date TIMESTAMP,
		activation_date TIMESTAMP,
		completion_date TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS ux_tf_applications_reference ON trade_finance_applications(reference_number)")

	db.Exec(`CREATE TABLE IF NOT EXISTS trade_finance_documents (
		id BIGINT PRIMARY KEY,
		application_id BIGINT NOT NULL,
		user_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		content_type TEXT,
		size_bytes BIGINT NOT NULL DEFAULT 0,
		storage_path TEXT NOT NULL,
		uploaded_at TIMESTAMP NOT NULL
	)`)

	db.Exec(`CREATE TABLE IF NOT EXISTS trade_finance_transactions (
		id BIGINT PRIMARY KEY,
		application_id BIGINT NOT NULL,
		transaction_type TEXT NOT NULL,
		amount BIGINT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'NGN',
		reference TEXT,
		occurred_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`)

	db.Exec(`CREATE TABLE IF NOT EXISTS credit_limits (
		id BIGINT PRIMARY KEY,
		user_id TEXT NOT NULL,
		total_limit BIGINT NOT NULL,
		used_limit BIGINT NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'NGN',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Clock:      clk,
		GenID:      node,
		Repo:       repository.Provide(),
		CreditRepo: creditrepository.Provide(),
	}).(*Service)

	return svc, db, node, clk
}

func seedCreditLimit(t *testing.T, db *gorm.DB, node *snowflake.Node, userID string, total, used int64) {
	t.Helper()
	err := db.Exec(
		`INSERT INTO credit_limits (id, user_id, total_limit, used_limit, currency, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'NGN', TRUE, ?, ?)`,
		node.Generate(), userID, total, used,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	).Error
	require.NoError(t, err)
}

func attachTestDocument(t *testing.T, svc *Service, ctx context.Context, appID, userID string) {
	t.Helper()
	_, err := svc.AttachDocument(ctx, appID, userID, domain.AttachDocumentRequest{
		FileName:    "invoice.pdf",
		StoragePath: "uploads/invoice.pdf",
		SizeBytes:   2048,
	})
	require.NoError(t, err)
}

func TestCreateDraftApplication(t *testing.T) {
	svc, db, node, clk := newTestService(t)
	ctx := context.Background()
	seedCreditLimit(t, db, node, "user_1", 1_000_000, 0)

	app, err := svc.Create(ctx, "user_1", domain.CreateRequest{
		FacilityType:    domain.FacilityLetterOfCredit,
		Amount:          500_000,
		BeneficiaryName: "Acme Exports Ltd",
		Title:           "Raw material import",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDraft, app.Status)
	assert.Regexp(t, referencePattern, app.ReferenceNumber)
	assert.Equal(t, "LC", app.ReferenceNumber[:2])
	assert.Equal(t, "NGN", app.Currency)
	assert.Equal(t, clk.Now(), app.ApplicationDate)
	assert.Nil(t, app.SubmittedDate)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{
			name: "unknown facility type",
			req: domain.CreateRequest{
				FacilityType:    "mortgage",
				Amount:          1000,
				BeneficiaryName: "Acme",
				Title:           "t",
			},
			want: domain.ErrInvalidFacilityType,
		},
		{
			name: "non-positive amount",
			req: domain.CreateRequest{
				FacilityType:    domain.FacilityInvoiceFinancing,
				Amount:          0,
				BeneficiaryName: "Acme",
				Title:           "t",
			},
			want: domain.ErrInvalidAmount,
		},
		{
			name: "blank beneficiary",
			req: domain.CreateRequest{
				FacilityType:    domain.FacilityInvoiceFinancing,
				Amount:          1000,
				BeneficiaryName: "   ",
				Title:           "t",
			},
			want: domain.ErrInvalidBeneficiary,
		},
		{
			name: "blank title",
			req: domain.CreateRequest{
				FacilityType:    domain.FacilityInvoiceFinancing,
				Amount:          1000,
				BeneficiaryName: "Acme",
				Title:           "",
			},
			want: domain.ErrInvalidTitle,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "user_1", tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateCreditGate(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	ctx := context.Background()
	seedCreditLimit(t, db, node, "user_1", 1_000_000, 400_000)

	t.Run("amount above available is rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, "user_1", domain.CreateRequest{
			FacilityType:    domain.FacilityInvoiceFinancing,
			Amount:          600_001,
			BeneficiaryName: "Acme",
			Title:           "Working capital",
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientCredit)
	})

	t.Run("amount equal to available passes", func(t *testing.T) {
		app, err := svc.Create(ctx, "user_1", domain.CreateRequest{
			FacilityType:    domain.FacilityInvoiceFinancing,
			Amount:          600_000,
			BeneficiaryName: "Acme",
			Title:           "Working capital",
		})
		require.NoError(t, err)
		assert.Equal(t, "IF", app.ReferenceNumber[:2])
	})

	t.Run("no credit record means no gate", func(t *testing.T) {
		app, err := svc.Create(ctx, "user_without_limit", domain.CreateRequest{
			FacilityType:    domain.FacilityTradeGuarantee,
			Amount:          50_000_000,
			BeneficiaryName: "Acme",
			Title:           "Guarantee",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDraft, app.Status)
	})
}

func TestSubmitRequiresDocument(t *testing.T) {
	svc, _, _, clk := newTestService(t)
	ctx := context.Background()

	app, err := svc.Create(ctx, "user_1", domain.CreateRequest{
		FacilityType:    domain.FacilityExportFinancing,
		Amount:          250_000,
		BeneficiaryName: "Acme",
		Title:           "Export pre-finance",
	})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, app.ID.String(), "user_1")
	assert.ErrorIs(t, err, domain.ErrMissingDocument)

	attachTestDocument(t, svc, ctx, app.ID.String(), "user_1")
	clk.Advance(time.Hour)

	submitted, err := svc.Submit(ctx, app.ID.String(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedDate)
	assert.Equal(t, clk.Now(), *submitted.SubmittedDate)
}

func TestSubmitIsNotRepeatable(t *testing.T) {
	svc, db, _, clk := newTestService(t)
	ctx := context.Background()

	app, err := svc.Create(ctx, "user_1", domain.CreateRequest{
		FacilityType:    domain.FacilityImportFinancing,
		Amount:          100_000,
		BeneficiaryName: "Acme",
		Title:           "Import finance",
	})
	require.NoError(t, err)
	attachTestDocument(t, svc, ctx, app.ID.String(), "user_1")

	_, err = svc.Submit(ctx, app.ID.String(), "user_1")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, app.ID.String(), "user_1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// The compare-and-set behind Submit: a stale writer matches zero rows.
	rows, err := repository.Provide().Transition(ctx, db, app.ID, "user_1",
		[]domain.ApplicationStatus{domain.StatusDraft},
		domain.StatusSubmitted,
		domain.TransitionPatch{},
		clk.Now(),
	)
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestWithdrawTransitions(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	ctx := context.Background()

	app, err := svc.Create(ctx, "user_1", domain.CreateRequest{
		FacilityType:    domain.FacilitySupplyChainFinancing,
		Amount:          75_000,
		BeneficiaryName: "Acme",
		Title:           "Supplier early payment",
	})
	require.NoError(t, err)

	t.Run("draft cannot be withdrawn", func(t *testing.T) {
		_, err := svc.Withdraw(ctx, app.ID.String(), "user_1")
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	attachTestDocument(t, svc, ctx, app.ID.String(), "user_1")
	_, err = svc.Submit(ctx, app.ID.String(), "user_1")
	require.NoError(t, err)

	t.Run("submitted can be withdrawn", func(t *testing.T) {
		withdrawn, err := svc.Withdraw(ctx, app.ID.String(), "user_1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusWithdrawn, withdrawn.Status)
	})

	t.Run("withdrawn is terminal", func(t *testing.T) {
		_, err := svc.Withdraw(ctx, app.ID.String(), "user_1")
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("under review can be withdrawn", func(t *testing.T) {
		reviewed, err := svc.Create(ctx, "user_1", domain.CreateRequest{
			FacilityType:    domain.FacilitySupplyChainFinancing,
			Amount:          40_000,
			BeneficiaryName: "Acme",
			Title:           "Supplier early payment 2",
		})
		require.NoError(t, err)
		attachTestDocument(t, svc, ctx, reviewed.ID.String(), "user_1")
		_, err = svc.Submit(ctx, reviewed.ID.String(), "user_1")
		require.NoError(t, err)

		// Reviewer transitions happen in the external back office; emulate one.
		require.NoError(t, db.Exec(
			"UPDATE trade_finance_applications SET status = ? WHERE id = ?",
			domain.StatusUnderReview, reviewed.ID,
		).Error)

		withdrawn, err := svc.Withdraw(ctx, reviewed.ID.String(), "user_1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusWithdrawn, withdrawn.Status)
	})
}

func TestUpdateDraftOnly(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	app, err := svc.Create(ctx, "user_1", domain.CreateRequest{
		FacilityType:    domain.FacilityLetterOfCredit,
		Amount:          120_000,
		BeneficiaryName: "Acme",
		Title:           "LC for machinery",
	})
	require.NoError(t, err)

	newAmount := int64(150_000)
	updated, err := svc.Update(ctx, app.ID.String(), "user_1", domain.UpdateRequest{Amount: &newAmount})
	require.NoError(t, err)
	assert.Equal(t, newAmount, updated.Amount)

	attachTestDocument(t, svc, ctx, app.ID.String(), "user_1")
	_, err = svc.Submit(ctx, app.ID.String(), "user_1")
	require.NoError(t, err)

	_, err = svc.Update(ctx, app.ID.String(), "user_1", domain.UpdateRequest{Amount: &newAmount})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestOwnershipIsIndistinguishableFromAbsence(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	app, err := svc.Create(ctx, "user_1", domain.CreateRequest{
		FacilityType:    domain.FacilityLetterOfCredit,
		Amount:          10_000,
		BeneficiaryName: "Acme",
		Title:           "LC",
	})
	require.NoError(t, err)

	t.Run("other user's lookup", func(t *testing.T) {
		_, err := svc.Get(ctx, app.ID.String(), "user_2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("missing row", func(t *testing.T) {
		_, err := svc.Get(ctx, "999999999999999999", "user_1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := svc.Get(ctx, "not-a-snowflake", "user_1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	draft, err := svc.Create(ctx, "user_1", domain.CreateRequest{
		FacilityType:    domain.FacilityInvoiceFinancing,
		Amount:          10_000,
		BeneficiaryName: "Acme",
		Title:           "First",
	})
	require.NoError(t, err)

	second, err := svc.Create(ctx, "user_1", domain.CreateRequest{
		FacilityType:    domain.FacilityInvoiceFinancing,
		Amount:          20_000,
		BeneficiaryName: "Acme",
		Title:           "Second",
	})
	require.NoError(t, err)
	attachTestDocument(t, svc, ctx, second.ID.String(), "user_1")
	_, err = svc.Submit(ctx, second.ID.String(), "user_1")
	require.NoError(t, err)

	all, err := svc.List(ctx, "user_1", domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Applications, 2)
	assert.False(t, all.PageInfo.HasMore)

	drafts, err := svc.List(ctx, "user_1", domain.ListRequest{Status: domain.StatusDraft})
	require.NoError(t, err)
	require.Len(t, drafts.Applications, 1)
	assert.Equal(t, draft.ID, drafts.Applications[0].ID)

	other, err := svc.List(ctx, "user_2", domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, other.Applications)
}

func TestListPagination(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, "user_1", domain.CreateRequest{
			FacilityType:    domain.FacilityInvoiceFinancing,
			Amount:          int64(1000 * (i + 1)),
			BeneficiaryName: "Acme",
			Title:           "Batch",
		})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, "user_1", domain.ListRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Applications, 2)
	require.True(t, first.PageInfo.HasMore)
	require.NotEmpty(t, first.PageInfo.NextPageToken)

	second, err := svc.List(ctx, "user_1", domain.ListRequest{
		PageSize:  2,
		PageToken: first.PageInfo.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, second.Applications, 2)

	// Keyset paging: no overlap between pages.
	seen := map[string]bool{}
	for _, app := range append(first.Applications, second.Applications...) {
		assert.False(t, seen[app.ID.String()])
		seen[app.ID.String()] = true
	}

	third, err := svc.List(ctx, "user_1", domain.ListRequest{
		PageSize:  2,
		PageToken: second.PageInfo.NextPageToken,
	})
	require.NoError(t, err)
	assert.Len(t, third.Applications, 1)
	assert.False(t, third.PageInfo.HasMore)

	_, err = svc.List(ctx, "user_1", domain.ListRequest{PageToken: "%%%not-base64%%%"})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}

func TestSummaryAggregatesAndIsIdempotent(t *testing.T) {
	svc, db, node, _ := newTestService(t)
	ctx := context.Background()
	seedCreditLimit(t, db, node, "user_1", 2_000_000, 500_000)

	submitted, err := svc.Create(ctx, "user_1", domain.CreateRequest{
		FacilityType:    domain.FacilityLetterOfCredit,
		Amount:          300_000,
		BeneficiaryName: "Acme",
		Title:           "Pending one",
	})
	require.NoError(t, err)
	attachTestDocument(t, svc, ctx, submitted.ID.String(), "user_1")
	_, err = svc.Submit(ctx, submitted.ID.String(), "user_1")
	require.NoError(t, err)

	active, err := svc.Create(ctx, "user_1", domain.CreateRequest{
		FacilityType:    domain.FacilityInvoiceFinancing,
		Amount:          450_000,
		BeneficiaryName: "Acme",
		Title:           "Active one",
	})
	require.NoError(t, err)
	// Reviewer transitions happen in the external back office; emulate one.
	require.NoError(t, db.Exec(
		"UPDATE trade_finance_applications SET status = ? WHERE id = ?",
		domain.StatusActive, active.ID,
	).Error)

	summary, err := svc.Summary(ctx, "user_1")
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.ActiveFacilitiesCount)
	assert.Equal(t, int64(450_000), summary.ActiveFacilitiesTotal)
	assert.Equal(t, int64(1), summary.PendingApplicationsCount)
	assert.Equal(t, int64(300_000), summary.PendingApplicationsTotal)
	assert.Equal(t, int64(2_000_000), summary.CreditLimit)
	assert.Equal(t, int64(500_000), summary.UsedLimit)
	assert.Equal(t, int64(1_500_000), summary.AvailableLimit)
	assert.Equal(t, "NGN", summary.Currency)

	// A read model: repeating the query must not change anything.
	again, err := svc.Summary(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, summary, again)
}

func TestAttachDocumentValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	app, err := svc.Create(ctx, "user_1", domain.CreateRequest{
		FacilityType:    domain.FacilityLetterOfCredit,
		Amount:          10_000,
		BeneficiaryName: "Acme",
		Title:           "LC",
	})
	require.NoError(t, err)

	_, err = svc.AttachDocument(ctx, app.ID.String(), "user_1", domain.AttachDocumentRequest{
		FileName:    "",
		StoragePath: "uploads/doc.pdf",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)

	doc, err := svc.AttachDocument(ctx, app.ID.String(), "user_1", domain.AttachDocumentRequest{
		FileName:    "contract.pdf",
		StoragePath: "uploads/contract.pdf",
		SizeBytes:   1024,
	})
	require.NoError(t, err)
	assert.Equal(t, app.ID, doc.ApplicationID)

	docs, err := svc.ListDocuments(ctx, app.ID.String(), "user_1")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
