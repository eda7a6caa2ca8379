package services

import (
	"context"
	"time"

	"tradehub_backend/internal/billing"
	"tradehub_backend/internal/logger"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/repositories"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookService обрабатывает верифицированные события биллинга.
// Ошибка из HandleEvent означает 500 наружу и повторную доставку от Stripe,
// поэтому возвращается только при реальном сбое; неизвестные и
// неатрибутируемые события поглощаются с логом.
type WebhookService interface {
	HandleEvent(ctx context.Context, db *gorm.DB, event *billing.Event) error
}

type WebhookServiceImpl struct {
	subService  SubscriptionService
	subRepo     repositories.SubscriptionRepository
	companyRepo repositories.CompanyRepository
	txnRepo     repositories.TransactionRepository
	provider    billing.Provider
	email       EmailService
}

func NewWebhookService(
	subService SubscriptionService,
	subRepo repositories.SubscriptionRepository,
	companyRepo repositories.CompanyRepository,
	txnRepo repositories.TransactionRepository,
	provider billing.Provider,
	email EmailService,
) WebhookService {
	return &WebhookServiceImpl{
		subService:  subService,
		subRepo:     subRepo,
		companyRepo: companyRepo,
		txnRepo:     txnRepo,
		provider:    provider,
		email:       email,
	}
}

func (s *WebhookServiceImpl) HandleEvent(ctx context.Context, db *gorm.DB, event *billing.Event) error {
	logger.CtxDebug(ctx, "processing billing event", "event_id", event.ID, "event_type", event.Type)

	switch event.Type {
	case "invoice.payment_succeeded", "invoice.paid":
		return s.handleInvoicePaid(ctx, db, event)
	case "invoice.payment_failed":
		return s.handleInvoiceFailed(ctx, db, event)
	case "customer.subscription.created", "customer.subscription.updated":
		if event.Subscription == nil {
			return nil
		}
		_, err := s.subService.UpsertFromRemote(ctx, db, event.Subscription)
		return err
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, db, event)
	case "charge.succeeded", "charge.refunded":
		return s.handleCharge(ctx, db, event)
	case "payment_intent.succeeded":
		return s.handlePaymentIntent(ctx, db, event)
	default:
		logger.CtxDebug(ctx, "ignoring unhandled billing event", "event_type", event.Type)
		return nil
	}
}

func (s *WebhookServiceImpl) handleInvoicePaid(ctx context.Context, db *gorm.DB, event *billing.Event) error {
	inv := event.Invoice
	if inv == nil {
		return nil
	}

	sub, err := s.resolveSubscription(ctx, db, inv)
	if err != nil {
		return err
	}
	if sub == nil {
		logger.CtxWarn(ctx, "paid invoice could not be attributed to a subscription",
			"invoice_id", inv.ID, "customer_id", inv.CustomerID)
		return nil
	}

	paidAt := inv.Created
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	txn := &models.Transaction{
		CompanyID:      &sub.CompanyID,
		SubscriptionID: &sub.ID,
		StripeObjectID: inv.ID,
		ObjectType:     "invoice",
		EventType:      event.Type,
		AmountCents:    inv.AmountCents,
		Currency:       inv.Currency,
		Status:         models.TransactionStatusSucceeded,
		Description:    "Subscription invoice payment",
		PaidAt:         &paidAt,
		RawPayload:     datatypes.JSON(event.Raw),
	}
	created, err := s.txnRepo.RecordIfAbsent(db, txn)
	if err != nil {
		return err
	}
	if !created {
		logger.CtxDebug(ctx, "invoice already in ledger", "invoice_id", inv.ID)
	}

	// Применение оплаты идемпотентно, поэтому выполняется и при
	// повторной доставке.
	return s.subService.ApplyPaidInvoice(ctx, db, sub, inv)
}

func (s *WebhookServiceImpl) handleInvoiceFailed(ctx context.Context, db *gorm.DB, event *billing.Event) error {
	inv := event.Invoice
	if inv == nil {
		return nil
	}

	sub, err := s.resolveSubscription(ctx, db, inv)
	if err != nil {
		return err
	}
	if sub == nil {
		logger.CtxWarn(ctx, "failed invoice could not be attributed to a subscription",
			"invoice_id", inv.ID, "customer_id", inv.CustomerID)
		return nil
	}

	txn := &models.Transaction{
		CompanyID:      &sub.CompanyID,
		SubscriptionID: &sub.ID,
		StripeObjectID: inv.ID,
		ObjectType:     "invoice",
		EventType:      event.Type,
		AmountCents:    inv.AmountCents,
		Currency:       inv.Currency,
		Status:         models.TransactionStatusFailed,
		Description:    "Subscription invoice payment failed",
		RawPayload:     datatypes.JSON(event.Raw),
	}
	if _, err := s.txnRepo.RecordIfAbsent(db, txn); err != nil {
		return err
	}

	if err := s.subRepo.UpdateStatus(db, sub.ID, models.SubscriptionStatusPastDue); err != nil {
		return err
	}
	if err := s.companyRepo.UpdateSubscriptionStatus(db, sub.CompanyID, models.SubscriptionStatusPastDue); err != nil {
		logger.CtxWithError(ctx, "failed to mirror past_due status onto company", err,
			"company_id", sub.CompanyID)
	}

	// Уведомление best-effort
	if s.email != nil {
		if company, cErr := s.companyRepo.FindByID(db, sub.CompanyID); cErr == nil && company.BillingEmail != "" {
			if mErr := s.email.SendPaymentFailedNotice(company.BillingEmail, company.Name); mErr != nil {
				logger.CtxWithError(ctx, "failed to send payment failure notice", mErr,
					"company_id", company.ID)
			}
		}
	}

	return nil
}

func (s *WebhookServiceImpl) handleSubscriptionDeleted(ctx context.Context, db *gorm.DB, event *billing.Event) error {
	remote := event.Subscription
	if remote == nil {
		return nil
	}

	sub, err := s.subRepo.FindByStripeID(db, remote.ID)
	if err != nil {
		if err == repositories.ErrSubscriptionNotFound {
			logger.CtxWarn(ctx, "deletion event for unknown subscription",
				"stripe_subscription_id", remote.ID)
			return nil
		}
		return err
	}

	if err := s.subRepo.UpdateStatus(db, sub.ID, models.SubscriptionStatusCanceled); err != nil {
		return err
	}
	if err := s.companyRepo.UpdateSubscriptionStatus(db, sub.CompanyID, models.SubscriptionStatusCanceled); err != nil {
		logger.CtxWithError(ctx, "failed to mirror canceled status onto company", err,
			"company_id", sub.CompanyID)
	}
	logger.CtxInfo(ctx, "subscription canceled by remote event",
		"subscription_id", sub.ID, "stripe_subscription_id", remote.ID)
	return nil
}

func (s *WebhookServiceImpl) handleCharge(ctx context.Context, db *gorm.DB, event *billing.Event) error {
	charge := event.Charge
	if charge == nil {
		return nil
	}

	status := models.TransactionStatusSucceeded
	if charge.Refunded || event.Type == "charge.refunded" {
		status = models.TransactionStatusRefunded
	}

	txn := &models.Transaction{
		StripeObjectID: charge.ID,
		ObjectType:     "charge",
		EventType:      event.Type,
		AmountCents:    charge.AmountCents,
		Currency:       charge.Currency,
		Status:         status,
		Description:    charge.Description,
		RawPayload:     datatypes.JSON(event.Raw),
	}
	if !charge.Created.IsZero() {
		paidAt := charge.Created
		txn.PaidAt = &paidAt
	}
	s.attributeByCustomer(ctx, db, charge.CustomerID, txn)

	_, err := s.txnRepo.RecordIfAbsent(db, txn)
	return err
}

func (s *WebhookServiceImpl) handlePaymentIntent(ctx context.Context, db *gorm.DB, event *billing.Event) error {
	pi := event.PaymentIntent
	if pi == nil {
		return nil
	}

	txn := &models.Transaction{
		StripeObjectID: pi.ID,
		ObjectType:     "payment_intent",
		EventType:      event.Type,
		AmountCents:    pi.AmountCents,
		Currency:       pi.Currency,
		Status:         models.TransactionStatusSucceeded,
		RawPayload:     datatypes.JSON(event.Raw),
	}
	if !pi.Created.IsZero() {
		paidAt := pi.Created
		txn.PaidAt = &paidAt
	}
	s.attributeByCustomer(ctx, db, pi.CustomerID, txn)

	_, err := s.txnRepo.RecordIfAbsent(db, txn)
	return err
}

// resolveSubscription находит локальную подписку для invoice в три этапа:
//  1. прямая ссылка на самом invoice;
//  2. ссылка в строках invoice;
//  3. перебор подписок клиента: совпадение окна с invoice, иначе самая
//     свежая active/trialing (логируется как эвристика).
//
// Нужная подписка синхронизируется через UpsertFromRemote. nil без ошибки
// означает, что атрибуция невозможна.
func (s *WebhookServiceImpl) resolveSubscription(ctx context.Context, db *gorm.DB, inv *billing.Invoice) (*models.CompanySubscription, error) {
	stripeSubID := inv.SubscriptionID
	if stripeSubID == "" {
		stripeSubID = inv.LineSubscriptionID()
	}

	if stripeSubID != "" {
		if s.provider != nil {
			remote, err := s.provider.GetSubscription(ctx, stripeSubID)
			if err != nil {
				logger.CtxWithError(ctx, "failed to fetch subscription for invoice attribution", err,
					"stripe_subscription_id", stripeSubID)
			} else {
				return s.subService.UpsertFromRemote(ctx, db, remote)
			}
		}
		// Без провайдера или при сбое запроса работаем с локальной записью
		sub, err := s.subRepo.FindByStripeID(db, stripeSubID)
		if err == repositories.ErrSubscriptionNotFound {
			return nil, nil
		}
		return sub, err
	}

	// Этап 3: invoice без ссылок, ищем по клиенту
	if s.provider == nil || inv.CustomerID == "" {
		return nil, nil
	}
	candidates, err := s.provider.ListSubscriptions(ctx, inv.CustomerID)
	if err != nil {
		logger.CtxWithError(ctx, "failed to list customer subscriptions for attribution", err,
			"customer_id", inv.CustomerID)
		return nil, nil
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var match *billing.Subscription
	for _, cand := range candidates {
		if !inv.PeriodStart.IsZero() &&
			cand.CurrentPeriodStart.Equal(inv.PeriodStart) &&
			cand.CurrentPeriodEnd.Equal(inv.PeriodEnd) {
			match = cand
			break
		}
	}
	if match == nil {
		for _, cand := range candidates {
			if cand.Status == "active" || cand.Status == "trialing" {
				match = cand
				break
			}
		}
	}
	if match == nil {
		return nil, nil
	}

	logger.CtxWarn(ctx, "invoice attributed by customer heuristic",
		"invoice_id", inv.ID, "customer_id", inv.CustomerID,
		"stripe_subscription_id", match.ID)
	return s.subService.UpsertFromRemote(ctx, db, match)
}

// attributeByCustomer - best-effort привязка записи журнала к компании
// и ее текущей подписке
func (s *WebhookServiceImpl) attributeByCustomer(ctx context.Context, db *gorm.DB, customerID string, txn *models.Transaction) {
	if customerID == "" {
		return
	}
	company, err := s.companyRepo.FindByStripeCustomerID(db, customerID)
	if err != nil {
		if err != repositories.ErrCompanyNotFound {
			logger.CtxWithError(ctx, "failed to attribute ledger entry to company", err,
				"customer_id", customerID)
		}
		return
	}
	txn.CompanyID = &company.ID

	sub, err := s.subRepo.FindCurrentByCompany(db, company.ID)
	if err != nil {
		if err != repositories.ErrSubscriptionNotFound {
			logger.CtxWithError(ctx, "failed to attribute ledger entry to subscription", err,
				"company_id", company.ID)
		}
		return
	}
	txn.SubscriptionID = &sub.ID
}
