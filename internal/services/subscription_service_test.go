package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tradehub_backend/internal/billing"
	"tradehub_backend/internal/dto"
	"tradehub_backend/internal/models"
	"tradehub_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subscriptionFixture struct {
	svc         SubscriptionService
	subRepo     *fakeSubscriptionRepo
	companyRepo *fakeCompanyRepo
	planRepo    *fakePlanRepo
	provider    *fakeBillingProvider
	company     *models.Company
}

func newSubscriptionFixture(t *testing.T, provider billing.Provider) *subscriptionFixture {
	t.Helper()

	company := &models.Company{Name: "Acme Plumbing", BillingEmail: "owner@acme.dev"}
	company.ID = "company-1"
	companyRepo := newFakeCompanyRepo(company)

	planRepo := newFakePlanRepo()
	plan := teamPlan()
	price := monthlyPrice(plan.ID)
	plan.Prices = []models.PlanPrice{*price}
	planRepo.plans[plan.ID] = plan
	planRepo.prices[price.ID] = price

	subRepo := &fakeSubscriptionRepo{}
	addonRepo := newFakeAddOnRepo()
	snapshots := NewSnapshotService(planRepo, addonRepo)

	fix := &subscriptionFixture{
		subRepo:     subRepo,
		companyRepo: companyRepo,
		planRepo:    planRepo,
		company:     company,
	}
	if fp, ok := provider.(*fakeBillingProvider); ok {
		fix.provider = fp
	}
	fix.svc = NewSubscriptionService(subRepo, companyRepo, planRepo, snapshots, provider)
	return fix
}

func TestCreateSubscriptionDegradedMode(t *testing.T) {
	fix := newSubscriptionFixture(t, nil)

	resp, err := fix.svc.CreateSubscription(context.Background(), nil, "company-1",
		&dto.CreateSubscriptionRequest{PlanID: "plan-team"})
	require.NoError(t, err)

	require.NotNil(t, resp.Subscription)
	assert.False(t, resp.RequiresAction)
	assert.Equal(t, models.SubscriptionStatusIncomplete, resp.Subscription.Status)
	assert.Empty(t, resp.Subscription.StripeSubscriptionID)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Subscription.Metadata, &meta))
	assert.Equal(t, true, meta["stripe_disabled"])
}

func TestCreateSubscriptionUnknownPlan(t *testing.T) {
	fix := newSubscriptionFixture(t, nil)

	_, err := fix.svc.CreateSubscription(context.Background(), nil, "company-1",
		&dto.CreateSubscriptionRequest{PlanID: "plan-ghost"})

	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
	assert.Empty(t, fix.subRepo.subs)
}

func TestCreateSubscriptionPaidImmediately(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	provider := &fakeBillingProvider{
		createdSubscription: &billing.Subscription{
			ID:                 "sub_remote",
			CustomerID:         "cus_test",
			Status:             "active",
			CurrentPeriodStart: start,
			CurrentPeriodEnd:   end,
			LatestInvoice: &billing.Invoice{
				ID:          "in_1",
				Paid:        true,
				AmountCents: 9900,
				Currency:    "usd",
				PeriodStart: start,
				PeriodEnd:   end,
			},
		},
	}
	fix := newSubscriptionFixture(t, provider)

	resp, err := fix.svc.CreateSubscription(context.Background(), nil, "company-1",
		&dto.CreateSubscriptionRequest{PlanID: "plan-team", PaymentMethodID: "pm_1"})
	require.NoError(t, err)

	sub := resp.Subscription
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, "sub_remote", sub.StripeSubscriptionID)
	require.NotNil(t, sub.SubscriptionExpiresAt)
	assert.True(t, sub.SubscriptionExpiresAt.Equal(end))

	// Идентификатор клиента сохранен на компании
	assert.Equal(t, "cus_test", fix.company.StripeCustomerID)
	assert.Equal(t, []string{"pm_1"}, fix.provider.attachedPMs)

	// Оплаченное окно записано
	periods, err := fix.subRepo.ListPeriods(nil, sub.ID)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, "in_1", periods[0].InvoiceID)

	// Зеркало статуса на компании
	assert.Equal(t, models.SubscriptionStatusActive, fix.company.SubscriptionStatus)
}

func TestCreateSubscriptionRequiresAction(t *testing.T) {
	provider := &fakeBillingProvider{
		createdSubscription: &billing.Subscription{
			ID:                        "sub_3ds",
			Status:                    "incomplete",
			PaymentIntentStatus:       "requires_action",
			PaymentIntentClientSecret: "pi_secret",
		},
	}
	fix := newSubscriptionFixture(t, provider)

	resp, err := fix.svc.CreateSubscription(context.Background(), nil, "company-1",
		&dto.CreateSubscriptionRequest{PlanID: "plan-team"})
	require.NoError(t, err)

	assert.True(t, resp.RequiresAction)
	assert.Equal(t, "pi_secret", resp.ClientSecret)
	assert.Equal(t, models.SubscriptionStatusIncomplete, resp.Subscription.Status)

	// Окно не применяется, пока клиент не завершил 3DS
	periods, _ := fix.subRepo.ListPeriods(nil, resp.Subscription.ID)
	assert.Empty(t, periods)
}

func TestConfirmSubscriptionRepeatsClientSecret(t *testing.T) {
	provider := &fakeBillingProvider{
		subscriptionsByID: map[string]*billing.Subscription{
			"sub_3ds": {
				ID:                        "sub_3ds",
				Status:                    "incomplete",
				PaymentIntentStatus:       "requires_action",
				PaymentIntentClientSecret: "pi_secret",
			},
		},
	}
	fix := newSubscriptionFixture(t, provider)

	sub := &models.CompanySubscription{
		CompanyID:            "company-1",
		StripeSubscriptionID: "sub_3ds",
		Status:               models.SubscriptionStatusIncomplete,
	}
	require.NoError(t, fix.subRepo.Create(nil, sub))

	// Повторный confirm до завершения 3DS снова отдает client_secret
	resp, err := fix.svc.ConfirmSubscription(context.Background(), nil, "sub_3ds")
	require.NoError(t, err)
	assert.True(t, resp.RequiresAction)
	assert.Equal(t, "pi_secret", resp.ClientSecret)
	assert.Equal(t, models.SubscriptionStatusIncomplete, resp.Subscription.Status)

	periods, _ := fix.subRepo.ListPeriods(nil, sub.ID)
	assert.Empty(t, periods)
}

func TestConfirmSubscriptionActivatesAfterPayment(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	provider := &fakeBillingProvider{
		subscriptionsByID: map[string]*billing.Subscription{
			"sub_3ds": {
				ID:                 "sub_3ds",
				Status:             "active",
				CurrentPeriodStart: start,
				CurrentPeriodEnd:   end,
				LatestInvoice: &billing.Invoice{
					ID:          "in_3ds",
					Paid:        true,
					AmountCents: 9900,
					Currency:    "usd",
					PeriodStart: start,
					PeriodEnd:   end,
				},
			},
		},
	}
	fix := newSubscriptionFixture(t, provider)

	sub := &models.CompanySubscription{
		CompanyID:            "company-1",
		StripeSubscriptionID: "sub_3ds",
		Status:               models.SubscriptionStatusIncomplete,
	}
	require.NoError(t, fix.subRepo.Create(nil, sub))

	resp, err := fix.svc.ConfirmSubscription(context.Background(), nil, "sub_3ds")
	require.NoError(t, err)

	assert.False(t, resp.RequiresAction)
	assert.Equal(t, models.SubscriptionStatusActive, resp.Subscription.Status)

	periods, _ := fix.subRepo.ListPeriods(nil, sub.ID)
	require.Len(t, periods, 1)
	assert.Equal(t, "in_3ds", periods[0].InvoiceID)
	assert.Equal(t, models.SubscriptionStatusActive, fix.company.SubscriptionStatus)
}

func TestConfirmSubscriptionUnknown(t *testing.T) {
	fix := newSubscriptionFixture(t, &fakeBillingProvider{})

	_, err := fix.svc.ConfirmSubscription(context.Background(), nil, "sub_ghost")
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestApplyPaidInvoiceIsIdempotent(t *testing.T) {
	fix := newSubscriptionFixture(t, nil)

	sub := &models.CompanySubscription{
		CompanyID: "company-1",
		Status:    models.SubscriptionStatusIncomplete,
	}
	require.NoError(t, fix.subRepo.Create(nil, sub))

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	inv := &billing.Invoice{
		ID:          "in_repeat",
		AmountCents: 9900,
		Currency:    "usd",
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0),
	}

	require.NoError(t, fix.svc.ApplyPaidInvoice(context.Background(), nil, sub, inv))
	require.NoError(t, fix.svc.ApplyPaidInvoice(context.Background(), nil, sub, inv))

	periods, err := fix.subRepo.ListPeriods(nil, sub.ID)
	require.NoError(t, err)
	assert.Len(t, periods, 1)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)

	var meta map[string]interface{}
	stored, _ := fix.subRepo.FindByID(nil, sub.ID)
	require.NoError(t, json.Unmarshal(stored.Metadata, &meta))
	assert.Equal(t, "in_repeat", meta["last_invoice_id"])
}

func TestApplyPaidInvoicePrefersSubscriptionLinePeriod(t *testing.T) {
	fix := newSubscriptionFixture(t, nil)

	sub := &models.CompanySubscription{CompanyID: "company-1"}
	require.NoError(t, fix.subRepo.Create(nil, sub))

	lineStart := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)
	inv := &billing.Invoice{
		ID:          "in_lines",
		PeriodStart: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		Lines: []billing.InvoiceLine{
			{SubscriptionID: "sub_x", PeriodStart: lineStart, PeriodEnd: lineStart.AddDate(0, 1, 0)},
		},
	}

	require.NoError(t, fix.svc.ApplyPaidInvoice(context.Background(), nil, sub, inv))

	periods, _ := fix.subRepo.ListPeriods(nil, sub.ID)
	require.Len(t, periods, 1)
	assert.True(t, periods[0].PeriodStart.Equal(lineStart))
}

func TestApplyPaidInvoiceRecordsPeriodPerLine(t *testing.T) {
	fix := newSubscriptionFixture(t, nil)

	sub := &models.CompanySubscription{CompanyID: "company-1"}
	require.NoError(t, fix.subRepo.Create(nil, sub))

	// Строки с разными окнами (пропорциональный доплатный период и полный)
	prorationStart := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	fullStart := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	fullEnd := fullStart.AddDate(0, 1, 0)
	inv := &billing.Invoice{
		ID: "in_multi",
		Lines: []billing.InvoiceLine{
			{SubscriptionID: "sub_x", PeriodStart: prorationStart, PeriodEnd: fullStart},
			{SubscriptionID: "sub_x", PeriodStart: fullStart, PeriodEnd: fullEnd},
		},
	}

	require.NoError(t, fix.svc.ApplyPaidInvoice(context.Background(), nil, sub, inv))
	require.NoError(t, fix.svc.ApplyPaidInvoice(context.Background(), nil, sub, inv))

	periods, _ := fix.subRepo.ListPeriods(nil, sub.ID)
	require.Len(t, periods, 2)

	// Окно подписки сдвинуто к самому позднему оплаченному периоду
	require.NotNil(t, sub.SubscriptionExpiresAt)
	assert.True(t, sub.SubscriptionExpiresAt.Equal(fullEnd))
	require.NotNil(t, sub.CurrentPeriodStart)
	assert.True(t, sub.CurrentPeriodStart.Equal(fullStart))
}

func TestUpsertFromRemoteCreatesFromMetadata(t *testing.T) {
	fix := newSubscriptionFixture(t, &fakeBillingProvider{})

	remote := &billing.Subscription{
		ID:         "sub_new",
		CustomerID: "cus_test",
		Status:     "trialing",
		Items:      []billing.SubscriptionItem{{ID: "si_1", PriceID: "price_team_month"}},
		Metadata:   map[string]string{"company_id": "company-1"},
	}

	sub, err := fix.svc.UpsertFromRemote(context.Background(), nil, remote)
	require.NoError(t, err)
	require.NotNil(t, sub)

	assert.Equal(t, "company-1", sub.CompanyID)
	assert.Equal(t, models.SubscriptionStatusTrialing, sub.Status)
	// План восстановлен по stripe price id
	assert.Equal(t, "plan-team", sub.PlanID)
	assert.Equal(t, models.SubscriptionStatusTrialing, fix.company.SubscriptionStatus)
}

func TestUpsertFromRemoteSkipsUnattributable(t *testing.T) {
	fix := newSubscriptionFixture(t, &fakeBillingProvider{})

	sub, err := fix.svc.UpsertFromRemote(context.Background(), nil, &billing.Subscription{
		ID:     "sub_orphan",
		Status: "active",
	})
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Empty(t, fix.subRepo.subs)
}

func TestUpsertFromRemoteDoesNotTouchSnapshot(t *testing.T) {
	fix := newSubscriptionFixture(t, &fakeBillingProvider{})

	snapshot := json.RawMessage(`{"plan_code":"team"}`)
	existing := &models.CompanySubscription{
		CompanyID:            "company-1",
		StripeSubscriptionID: "sub_known",
		PlanSnapshot:         []byte(snapshot),
		Status:               models.SubscriptionStatusActive,
	}
	require.NoError(t, fix.subRepo.Create(nil, existing))

	_, err := fix.svc.UpsertFromRemote(context.Background(), nil, &billing.Subscription{
		ID:     "sub_known",
		Status: "past_due",
	})
	require.NoError(t, err)

	stored, _ := fix.subRepo.FindByStripeID(nil, "sub_known")
	assert.Equal(t, models.SubscriptionStatusPastDue, stored.Status)
	assert.JSONEq(t, string(snapshot), string(stored.PlanSnapshot))
}

func TestCancelSubscriptionWithoutProvider(t *testing.T) {
	fix := newSubscriptionFixture(t, nil)

	sub := &models.CompanySubscription{
		CompanyID: "company-1",
		Status:    models.SubscriptionStatusActive,
	}
	require.NoError(t, fix.subRepo.Create(nil, sub))

	canceled, err := fix.svc.CancelSubscription(context.Background(), nil, "company-1")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCanceled, canceled.Status)
	assert.Equal(t, models.SubscriptionStatusCanceled, fix.company.SubscriptionStatus)
}

func TestGetCurrentSubscriptionNotFound(t *testing.T) {
	fix := newSubscriptionFixture(t, nil)

	_, err := fix.svc.GetCurrentSubscription(context.Background(), nil, "company-1")
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
