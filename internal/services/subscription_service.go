package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tradehub_backend/internal/billing"
	"tradehub_backend/internal/dto"
	"tradehub_backend/internal/logger"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/repositories"
	"tradehub_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubscriptionService управляет жизненным циклом подписки компании
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, db *gorm.DB, companyID string, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	// ConfirmSubscription идемпотентно перечитывает состояние из Stripe
	// после завершения 3DS на клиенте. Если аутентификация еще не пройдена,
	// client_secret возвращается повторно.
	ConfirmSubscription(ctx context.Context, db *gorm.DB, stripeSubscriptionID string) (*dto.SubscriptionResponse, error)
	GetCurrentSubscription(ctx context.Context, db *gorm.DB, companyID string) (*models.CompanySubscription, error)
	GetSubscriptionHistory(ctx context.Context, db *gorm.DB, companyID string) ([]dto.SubscriptionWithPeriods, error)
	CancelSubscription(ctx context.Context, db *gorm.DB, companyID string) (*models.CompanySubscription, error)

	// UpsertFromRemote синхронизирует локальную запись с удаленной подпиской.
	// Обновляет только статус и окно; снапшот не трогает.
	UpsertFromRemote(ctx context.Context, db *gorm.DB, remote *billing.Subscription) (*models.CompanySubscription, error)
	// ApplyPaidInvoice применяет оплаченный invoice: окно, статус ACTIVE, metadata.
	ApplyPaidInvoice(ctx context.Context, db *gorm.DB, sub *models.CompanySubscription, inv *billing.Invoice) error
}

type SubscriptionServiceImpl struct {
	subRepo     repositories.SubscriptionRepository
	companyRepo repositories.CompanyRepository
	planRepo    repositories.PlanRepository
	snapshots   *SnapshotService
	provider    billing.Provider // nil - degraded-режим без Stripe
}

func NewSubscriptionService(
	subRepo repositories.SubscriptionRepository,
	companyRepo repositories.CompanyRepository,
	planRepo repositories.PlanRepository,
	snapshots *SnapshotService,
	provider billing.Provider,
) SubscriptionService {
	return &SubscriptionServiceImpl{
		subRepo:     subRepo,
		companyRepo: companyRepo,
		planRepo:    planRepo,
		snapshots:   snapshots,
		provider:    provider,
	}
}

func (s *SubscriptionServiceImpl) CreateSubscription(ctx context.Context, db *gorm.DB, companyID string, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	company, err := s.companyRepo.FindByID(db, companyID)
	if err != nil {
		if err == repositories.ErrCompanyNotFound {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, err
	}

	snap, err := s.snapshots.Build(db, req.PlanID, req.PriceID, req.AddOnIDs, req.ExtraSeats, req.HasWebsite)
	if err != nil {
		return nil, err
	}
	if snap.Empty() {
		return nil, apperrors.ErrNotFound(repositories.ErrPlanNotFound)
	}

	planJSON, addonsJSON, addonIDsJSON, err := snap.JSONColumns()
	if err != nil {
		return nil, err
	}

	sub := &models.CompanySubscription{
		CompanyID:      company.ID,
		PlanID:         snap.Plan.PlanID,
		PriceID:        snap.Plan.PriceID,
		StripePriceID:  snap.Plan.StripePriceID,
		PlanSnapshot:   planJSON,
		AddonsSnapshot: addonsJSON,
		AddonIDs:       addonIDsJSON,
		MaxUsers:       snap.MaxUsers,
		Status:         models.SubscriptionStatusIncomplete,
	}

	// Degraded-режим: Stripe не сконфигурирован, подписка создается
	// только локально и помечается в metadata.
	if s.provider == nil {
		meta, _ := json.Marshal(map[string]interface{}{"stripe_disabled": true})
		sub.Metadata = datatypes.JSON(meta)
		if err := s.subRepo.Create(db, sub); err != nil {
			return nil, err
		}
		logger.CtxWarn(ctx, "billing provider disabled, subscription created locally",
			"company_id", company.ID, "subscription_id", sub.ID)
		return &dto.SubscriptionResponse{Subscription: sub}, nil
	}

	customerID, err := s.provider.EnsureCustomer(ctx, billing.CustomerParams{
		ExistingID: company.StripeCustomerID,
		Email:      company.BillingEmail,
		Name:       company.Name,
		CompanyID:  company.ID,
	})
	if err != nil {
		return nil, apperrors.ErrBillingProvider(err, "Failed to ensure billing customer")
	}
	if customerID != company.StripeCustomerID {
		if err := s.companyRepo.SetStripeCustomerID(db, company.ID, customerID); err != nil {
			return nil, err
		}
	}

	if req.PaymentMethodID != "" {
		if err := s.provider.AttachPaymentMethod(ctx, customerID, req.PaymentMethodID); err != nil {
			return nil, apperrors.ErrBillingProvider(err, "Failed to attach payment method")
		}
	}

	// Позиции подписки: базовый тариф + платные add-on'ы со своей ценой.
	// Included add-on'ы бесплатны и в Stripe не отправляются.
	priceIDs := []string{snap.Plan.StripePriceID}
	for _, entry := range snap.Addons {
		if !entry.Included && entry.StripePriceID != "" {
			priceIDs = append(priceIDs, entry.StripePriceID)
		}
	}

	remote, err := s.provider.CreateSubscription(ctx, billing.SubscriptionParams{
		CustomerID:      customerID,
		PriceIDs:        priceIDs,
		PaymentMethodID: req.PaymentMethodID,
		CouponID:        req.CouponID,
		Metadata: map[string]string{
			"company_id": company.ID,
			"plan_id":    snap.Plan.PlanID,
		},
		IdempotencyKey: fmt.Sprintf("sub-create-%s-%s-%s", company.ID, snap.Plan.PlanID, snap.Plan.PriceID),
	})
	if err != nil {
		return nil, apperrors.ErrBillingProvider(err, "Failed to create subscription")
	}

	sub.StripeCustomerID = customerID
	sub.StripeSubscriptionID = remote.ID
	sub.Status = models.SubscriptionStatus(remote.Status)
	applyRemoteWindow(sub, remote)

	if err := s.subRepo.Create(db, sub); err != nil {
		return nil, err
	}

	// 3DS: подписка остается incomplete, клиент завершает оплату
	// по client_secret и вызывает confirm.
	if remote.PaymentIntentStatus == "requires_action" || remote.PaymentIntentStatus == "requires_confirmation" {
		logger.CtxInfo(ctx, "subscription requires customer action",
			"subscription_id", sub.ID, "stripe_subscription_id", remote.ID)
		return &dto.SubscriptionResponse{
			RequiresAction: true,
			ClientSecret:   remote.PaymentIntentClientSecret,
			Subscription:   sub,
		}, nil
	}

	// Платеж мог пройти сразу, без 3DS
	if remote.LatestInvoice != nil && remote.LatestInvoice.Paid {
		if err := s.ApplyPaidInvoice(ctx, db, sub, remote.LatestInvoice); err != nil {
			return nil, err
		}
	}

	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *SubscriptionServiceImpl) ConfirmSubscription(ctx context.Context, db *gorm.DB, stripeSubscriptionID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.subRepo.FindByStripeID(db, stripeSubscriptionID)
	if err != nil {
		if err == repositories.ErrSubscriptionNotFound {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, err
	}

	if s.provider == nil {
		return nil, apperrors.ErrBillingDisabled
	}

	remote, err := s.provider.GetSubscription(ctx, stripeSubscriptionID)
	if err != nil {
		return nil, apperrors.ErrBillingProvider(err, "Failed to fetch subscription state")
	}

	sub.Status = models.SubscriptionStatus(remote.Status)
	applyRemoteWindow(sub, remote)
	if err := s.subRepo.Update(db, sub); err != nil {
		return nil, err
	}

	// Аутентификация еще не завершена: отдаем client_secret повторно
	if remote.PaymentIntentStatus == "requires_action" || remote.PaymentIntentStatus == "requires_confirmation" {
		return &dto.SubscriptionResponse{
			RequiresAction: true,
			ClientSecret:   remote.PaymentIntentClientSecret,
			Subscription:   sub,
		}, nil
	}

	if remote.LatestInvoice != nil && remote.LatestInvoice.Paid {
		if err := s.ApplyPaidInvoice(ctx, db, sub, remote.LatestInvoice); err != nil {
			return nil, err
		}
	} else {
		s.mirrorCompanyStatus(ctx, db, sub.CompanyID, sub.Status)
	}

	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *SubscriptionServiceImpl) GetCurrentSubscription(ctx context.Context, db *gorm.DB, companyID string) (*models.CompanySubscription, error) {
	sub, err := s.subRepo.FindCurrentByCompany(db, companyID)
	if err != nil {
		if err == repositories.ErrSubscriptionNotFound {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionServiceImpl) GetSubscriptionHistory(ctx context.Context, db *gorm.DB, companyID string) ([]dto.SubscriptionWithPeriods, error) {
	subs, err := s.subRepo.ListByCompany(db, companyID)
	if err != nil {
		return nil, err
	}

	history := make([]dto.SubscriptionWithPeriods, 0, len(subs))
	for _, sub := range subs {
		periods, err := s.subRepo.ListPeriods(db, sub.ID)
		if err != nil {
			return nil, err
		}
		history = append(history, dto.SubscriptionWithPeriods{
			Subscription: sub,
			Periods:      periods,
		})
	}
	return history, nil
}

func (s *SubscriptionServiceImpl) CancelSubscription(ctx context.Context, db *gorm.DB, companyID string) (*models.CompanySubscription, error) {
	sub, err := s.subRepo.FindCurrentByCompany(db, companyID)
	if err != nil {
		if err == repositories.ErrSubscriptionNotFound {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, err
	}

	if s.provider != nil && sub.StripeSubscriptionID != "" {
		remote, err := s.provider.CancelSubscription(ctx, sub.StripeSubscriptionID)
		if err != nil {
			return nil, apperrors.ErrBillingProvider(err, "Failed to cancel subscription")
		}
		sub.Status = models.SubscriptionStatus(remote.Status)
	} else {
		sub.Status = models.SubscriptionStatusCanceled
	}

	if err := s.subRepo.UpdateStatus(db, sub.ID, sub.Status); err != nil {
		return nil, err
	}
	s.mirrorCompanyStatus(ctx, db, sub.CompanyID, sub.Status)
	return sub, nil
}

// UpsertFromRemote - общая точка синхронизации для webhook-событий.
// Неизвестная подписка создается из metadata.company_id; без него событие
// логируется и пропускается (nil, nil).
func (s *SubscriptionServiceImpl) UpsertFromRemote(ctx context.Context, db *gorm.DB, remote *billing.Subscription) (*models.CompanySubscription, error) {
	sub, err := s.subRepo.FindByStripeID(db, remote.ID)
	if err != nil && err != repositories.ErrSubscriptionNotFound {
		return nil, err
	}

	if err == repositories.ErrSubscriptionNotFound {
		companyID := remote.Metadata["company_id"]
		if companyID == "" {
			logger.CtxWarn(ctx, "remote subscription has no company attribution, skipping",
				"stripe_subscription_id", remote.ID)
			return nil, nil
		}

		sub = &models.CompanySubscription{
			CompanyID:            companyID,
			StripeCustomerID:     remote.CustomerID,
			StripeSubscriptionID: remote.ID,
			StripePriceID:        remote.PriceID(),
			Status:               models.SubscriptionStatus(remote.Status),
		}
		if planID := remote.Metadata["plan_id"]; planID != "" {
			sub.PlanID = planID
		}
		if price, pErr := s.planRepo.FindPriceByStripeID(db, remote.PriceID()); pErr == nil {
			sub.PriceID = price.ID
			if sub.PlanID == "" {
				sub.PlanID = price.PlanID
			}
		}
		applyRemoteWindow(sub, remote)

		if err := s.subRepo.Create(db, sub); err != nil {
			return nil, err
		}
		logger.CtxInfo(ctx, "created local subscription from remote state",
			"subscription_id", sub.ID, "stripe_subscription_id", remote.ID)
	} else {
		// Обновляем только статус и окно. Снапшот фиксируется при покупке
		// и вебхуками не перезаписывается.
		sub.Status = models.SubscriptionStatus(remote.Status)
		applyRemoteWindow(sub, remote)
		if err := s.subRepo.Update(db, sub); err != nil {
			return nil, err
		}
	}

	s.mirrorCompanyStatus(ctx, db, sub.CompanyID, sub.Status)
	return sub, nil
}

func (s *SubscriptionServiceImpl) ApplyPaidInvoice(ctx context.Context, db *gorm.DB, sub *models.CompanySubscription, inv *billing.Invoice) error {
	windows := invoicePeriods(inv)

	// Окно подписки двигается к самому позднему оплаченному периоду
	var periodStart, periodEnd time.Time
	for _, w := range windows {
		period := &models.SubscriptionPeriod{
			SubscriptionID: sub.ID,
			CompanyID:      sub.CompanyID,
			InvoiceID:      inv.ID,
			PeriodStart:    w.start,
			PeriodEnd:      w.end,
			AmountCents:    inv.AmountCents,
			Currency:       inv.Currency,
		}
		created, err := s.subRepo.CreatePeriodIfAbsent(db, period)
		if err != nil {
			return err
		}
		if !created {
			logger.CtxDebug(ctx, "paid period already recorded",
				"invoice_id", inv.ID, "subscription_id", sub.ID)
		}
		if w.end.After(periodEnd) {
			periodStart, periodEnd = w.start, w.end
		}
	}

	expiresAt := periodEnd
	if err := s.subRepo.UpdateStatusAndPeriod(db, sub.ID, models.SubscriptionStatusActive,
		&periodStart, &periodEnd, &expiresAt); err != nil {
		return err
	}
	sub.Status = models.SubscriptionStatusActive
	sub.CurrentPeriodStart = &periodStart
	sub.CurrentPeriodEnd = &periodEnd
	sub.SubscriptionExpiresAt = &expiresAt

	if err := s.subRepo.MergeMetadata(db, sub.ID, map[string]interface{}{
		"last_invoice_id":      inv.ID,
		"last_invoice_paid_at": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}

	s.mirrorCompanyStatus(ctx, db, sub.CompanyID, models.SubscriptionStatusActive)
	return nil
}

// mirrorCompanyStatus - best-effort обновление зеркала статуса на компании.
// Ошибка логируется, но обработку не прерывает.
func (s *SubscriptionServiceImpl) mirrorCompanyStatus(ctx context.Context, db *gorm.DB, companyID string, status models.SubscriptionStatus) {
	if err := s.companyRepo.UpdateSubscriptionStatus(db, companyID, status); err != nil {
		logger.CtxWithError(ctx, "failed to mirror subscription status onto company", err,
			"company_id", companyID, "status", status)
	}
}

// applyRemoteWindow переносит биллинговое окно удаленной подписки в локальную
func applyRemoteWindow(sub *models.CompanySubscription, remote *billing.Subscription) {
	if !remote.CurrentPeriodStart.IsZero() {
		start := remote.CurrentPeriodStart
		sub.CurrentPeriodStart = &start
	}
	if !remote.CurrentPeriodEnd.IsZero() {
		end := remote.CurrentPeriodEnd
		sub.CurrentPeriodEnd = &end
		sub.SubscriptionExpiresAt = &end
	}
}

type billedWindow struct {
	start, end time.Time
}

// invoicePeriods собирает различные окна из строк подписки в invoice;
// invoice без таких строк дает одно окно целиком
func invoicePeriods(inv *billing.Invoice) []billedWindow {
	var out []billedWindow
	seen := map[int64]bool{}
	for _, line := range inv.Lines {
		if line.SubscriptionID == "" || line.PeriodStart.IsZero() || seen[line.PeriodStart.Unix()] {
			continue
		}
		seen[line.PeriodStart.Unix()] = true
		out = append(out, billedWindow{start: line.PeriodStart, end: line.PeriodEnd})
	}
	if len(out) == 0 {
		out = append(out, billedWindow{start: inv.PeriodStart, end: inv.PeriodEnd})
	}
	return out
}
