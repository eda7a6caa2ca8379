package services

import (
	"context"
	"fmt"

	"tradehub_backend/internal/billing"
	"tradehub_backend/internal/logger"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/repositories"
	"tradehub_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// AddOnService управляет add-on'ами компании. Локальная запись - источник
// истины о включенности; привязка к позициям Stripe-подписки выполняется
// сверкой (reconciliation) и может отставать.
type AddOnService interface {
	ListCatalog(ctx context.Context, db *gorm.DB) ([]models.AddOn, error)
	ListForCompany(ctx context.Context, db *gorm.DB, companyID string) ([]models.CompanyAddOn, error)
	EnableForCompany(ctx context.Context, db *gorm.DB, companyID, addOnID string) (*models.CompanyAddOn, error)
	DisableForCompany(ctx context.Context, db *gorm.DB, companyID, addOnID string) error

	// AttachEnabledAddOns сверяет включенные add-on'ы компании с позициями
	// активной Stripe-подписки и довешивает недостающие. Сбой по одному
	// add-on не прерывает остальные.
	AttachEnabledAddOns(ctx context.Context, db *gorm.DB, companyID string) error
}

type AddOnServiceImpl struct {
	addonRepo repositories.AddOnRepository
	subRepo   repositories.SubscriptionRepository
	planRepo  repositories.PlanRepository
	provider  billing.Provider
}

func NewAddOnService(
	addonRepo repositories.AddOnRepository,
	subRepo repositories.SubscriptionRepository,
	planRepo repositories.PlanRepository,
	provider billing.Provider,
) AddOnService {
	return &AddOnServiceImpl{
		addonRepo: addonRepo,
		subRepo:   subRepo,
		planRepo:  planRepo,
		provider:  provider,
	}
}

func (s *AddOnServiceImpl) ListCatalog(ctx context.Context, db *gorm.DB) ([]models.AddOn, error) {
	return s.addonRepo.FindActive(db)
}

func (s *AddOnServiceImpl) ListForCompany(ctx context.Context, db *gorm.DB, companyID string) ([]models.CompanyAddOn, error) {
	return s.addonRepo.ListByCompany(db, companyID)
}

func (s *AddOnServiceImpl) EnableForCompany(ctx context.Context, db *gorm.DB, companyID, addOnID string) (*models.CompanyAddOn, error) {
	addon, err := s.addonRepo.FindByID(db, addOnID)
	if err != nil {
		if err == repositories.ErrAddOnNotFound {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, err
	}
	if !addon.IsActive {
		return nil, apperrors.ErrAddOnNotAvailable
	}

	link := &models.CompanyAddOn{
		CompanyID:       companyID,
		AddOnID:         addon.ID,
		StripeProductID: addon.StripeProductID,
	}
	if err := s.addonRepo.EnableForCompany(db, link); err != nil {
		return nil, err
	}

	// Привязка к подписке выполняется сразу, но ее сбой не откатывает
	// включение: следующая сверка довесит позицию.
	if err := s.AttachEnabledAddOns(ctx, db, companyID); err != nil {
		logger.CtxWithError(ctx, "add-on enabled locally, attachment deferred", err,
			"company_id", companyID, "addon_id", addOnID)
	}

	return link, nil
}

func (s *AddOnServiceImpl) DisableForCompany(ctx context.Context, db *gorm.DB, companyID, addOnID string) error {
	link, err := s.addonRepo.FindCompanyAddOn(db, companyID, addOnID)
	if err != nil {
		if err == repositories.ErrCompanyAddOnNotFound {
			return apperrors.ErrNotFound(err)
		}
		return err
	}

	// Снятие позиции в Stripe best-effort: локальная запись - источник
	// истины о включенности, сбой удаленного вызова не блокирует выключение
	if s.provider != nil && link.StripeItemID != "" {
		if err := s.provider.RemoveSubscriptionItem(ctx, link.StripeItemID); err != nil {
			logger.CtxWithError(ctx, "failed to detach subscription item, disabling locally anyway", err,
				"company_id", companyID, "addon_id", addOnID, "stripe_item_id", link.StripeItemID)
		}
	}

	return s.addonRepo.DisableForCompany(db, companyID, addOnID)
}

func (s *AddOnServiceImpl) AttachEnabledAddOns(ctx context.Context, db *gorm.DB, companyID string) error {
	if s.provider == nil {
		return nil
	}

	sub, err := s.subRepo.FindCurrentByCompany(db, companyID)
	if err != nil {
		if err == repositories.ErrSubscriptionNotFound {
			// Нечего сверять: add-on останется локальным до появления подписки
			return nil
		}
		return err
	}
	if sub.StripeSubscriptionID == "" {
		return nil
	}

	remote, err := s.provider.GetSubscription(ctx, sub.StripeSubscriptionID)
	if err != nil {
		return apperrors.ErrBillingProvider(err, "Failed to fetch subscription for reconciliation")
	}

	links, err := s.addonRepo.ListByCompany(db, companyID)
	if err != nil {
		return err
	}

	planLinks := s.planAddOnIndex(db, sub.PlanID)

	var lastErr error
	for i := range links {
		link := &links[i]
		if link.StripeItemID != "" {
			continue
		}
		addon := link.AddOn

		// Биллинговая цена: переопределение тарифа важнее каталожной.
		// Included add-on входит в тариф бесплатно, позиция не нужна.
		priceID := addon.StripePriceID
		if planLink, ok := planLinks[link.AddOnID]; ok {
			if planLink.Included {
				continue
			}
			if planLink.OverrideStripePrice != "" {
				priceID = planLink.OverrideStripePrice
			}
		}
		if priceID == "" {
			continue
		}

		// Позиция с такой ценой могла появиться раньше (например, при
		// оформлении подписки) - тогда просто усыновляем ее id.
		if itemID, ok := remote.HasItemWithPrice(priceID); ok {
			if err := s.addonRepo.SetStripeItemID(db, link.ID, itemID); err != nil {
				lastErr = err
				logger.CtxWithError(ctx, "failed to adopt existing subscription item", err,
					"company_id", companyID, "addon_id", link.AddOnID)
			}
			continue
		}

		item, err := s.provider.AddSubscriptionItem(ctx, billing.ItemParams{
			SubscriptionID: sub.StripeSubscriptionID,
			PriceID:        priceID,
			Quantity:       1,
			IdempotencyKey: fmt.Sprintf("addon-attach-%s-%s-%s-%s", sub.StripeSubscriptionID, priceID, companyID, link.AddOnID),
		})
		if err != nil {
			lastErr = err
			logger.CtxWithError(ctx, "failed to attach add-on to subscription", err,
				"company_id", companyID, "addon_id", link.AddOnID)
			continue
		}
		if err := s.addonRepo.SetStripeItemID(db, link.ID, item.ID); err != nil {
			lastErr = err
			logger.CtxWithError(ctx, "attached add-on but failed to store item id", err,
				"company_id", companyID, "addon_id", link.AddOnID)
		}
	}

	return lastErr
}

// planAddOnIndex возвращает связи тарифа по addon_id. Сбой загрузки
// не блокирует привязку: остаются каталожные цены.
func (s *AddOnServiceImpl) planAddOnIndex(db *gorm.DB, planID string) map[string]models.PlanAddOn {
	index := map[string]models.PlanAddOn{}
	if planID == "" {
		return index
	}
	planLinks, err := s.planRepo.ListPlanAddOns(db, planID)
	if err != nil {
		logger.Warn("failed to load plan add-on overrides", "plan_id", planID, "error", err)
		return index
	}
	for _, pl := range planLinks {
		index[pl.AddOnID] = pl
	}
	return index
}
