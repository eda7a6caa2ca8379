package services

import (
	"encoding/json"

	"tradehub_backend/internal/models"
	"tradehub_backend/internal/repositories"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlanSnapshot - зафиксированное на момент покупки описание тарифа.
// Хранится в company_subscriptions.plan_snapshot и больше не меняется.
type PlanSnapshot struct {
	PlanID        string          `json:"plan_id"`
	PlanCode      string          `json:"plan_code"`
	PlanName      string          `json:"plan_name"`
	Tier          models.PlanTier `json:"tier"`
	PriceID       string          `json:"price_id"`
	StripePriceID string          `json:"stripe_price_id"`
	AmountCents   int64           `json:"amount_cents"`
	Currency      string          `json:"currency"`
	Interval      string          `json:"interval"`
	Features      json.RawMessage `json:"features,omitempty"`
}

// AddonSnapshotEntry - зафиксированная конфигурация одного add-on
type AddonSnapshotEntry struct {
	AddOnID             string `json:"addon_id"`
	Code                string `json:"code"`
	Name                string `json:"name"`
	Included            bool   `json:"included"`
	EffectivePriceCents int64  `json:"effective_price_cents"`
	Currency            string `json:"currency"`
	ExtraSeats          int    `json:"extra_seats"`
	StripePriceID       string `json:"stripe_price_id"`
}

// Snapshot - результат работы снапшот-билдера
type Snapshot struct {
	Plan     *PlanSnapshot        `json:"plan,omitempty"`
	Addons   []AddonSnapshotEntry `json:"addons"`
	AddonIDs []string             `json:"addon_ids"`
	// nil - безлимит
	MaxUsers *int `json:"max_users"`
}

// Empty сообщает, что план не был найден и снапшот пуст
func (s *Snapshot) Empty() bool {
	return s.Plan == nil
}

// JSONColumns сериализует снапшот в значения для JSONB-колонок подписки
func (s *Snapshot) JSONColumns() (plan, addons, addonIDs datatypes.JSON, err error) {
	if s.Plan != nil {
		raw, mErr := json.Marshal(s.Plan)
		if mErr != nil {
			return nil, nil, nil, mErr
		}
		plan = datatypes.JSON(raw)
	}

	rawAddons, mErr := json.Marshal(s.Addons)
	if mErr != nil {
		return nil, nil, nil, mErr
	}
	addons = datatypes.JSON(rawAddons)

	rawIDs, mErr := json.Marshal(s.AddonIDs)
	if mErr != nil {
		return nil, nil, nil, mErr
	}
	addonIDs = datatypes.JSON(rawIDs)

	return plan, addons, addonIDs, nil
}

// BuildSnapshot - чистая функция: собирает снапшот тарифа из загруженных
// строк каталога. Неизвестный план дает пустой снапшот без ошибки.
//
// Правила:
//   - состав add-on'ов = выбранные пользователем + включенные в тариф (union);
//   - цена add-on'а: included = 0, иначе override тарифа, иначе каталог;
//   - max_users = база тарифа + места из add-on'ов + явные extraSeats;
//     безлимит (enterprise) поглощает любые добавки.
func BuildSnapshot(
	plan *models.Plan,
	price *models.PlanPrice,
	planAddOns []models.PlanAddOn,
	addOns []models.AddOn,
	selectedIDs []string,
	extraSeats int,
) *Snapshot {
	snap := &Snapshot{
		Addons:   []AddonSnapshotEntry{},
		AddonIDs: []string{},
	}
	if plan == nil {
		return snap
	}

	snap.Plan = &PlanSnapshot{
		PlanID:   plan.ID,
		PlanCode: plan.Code,
		PlanName: plan.Name,
		Tier:     plan.Tier,
		Features: json.RawMessage(plan.Features),
	}
	if price != nil {
		snap.Plan.PriceID = price.ID
		snap.Plan.StripePriceID = price.StripePriceID
		snap.Plan.AmountCents = price.AmountCents
		snap.Plan.Currency = price.Currency
		snap.Plan.Interval = price.Interval
	}

	// Индексы по каталогу
	byID := make(map[string]*models.AddOn, len(addOns))
	for i := range addOns {
		byID[addOns[i].ID] = &addOns[i]
	}
	links := make(map[string]*models.PlanAddOn, len(planAddOns))
	for i := range planAddOns {
		links[planAddOns[i].AddOnID] = &planAddOns[i]
	}

	// Union: выбранные + включенные в тариф. Порядок детерминированный:
	// сначала выбранные, затем included, без дублей.
	seen := make(map[string]bool)
	ordered := make([]string, 0, len(selectedIDs)+len(planAddOns))
	for _, id := range selectedIDs {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}
	for i := range planAddOns {
		if planAddOns[i].Included && !seen[planAddOns[i].AddOnID] {
			seen[planAddOns[i].AddOnID] = true
			ordered = append(ordered, planAddOns[i].AddOnID)
		}
	}

	extraSeatTotal := extraSeats

	for _, id := range ordered {
		addon, ok := byID[id]
		if !ok {
			// Неизвестный add-on молча пропускается
			continue
		}

		entry := AddonSnapshotEntry{
			AddOnID:             addon.ID,
			Code:                addon.Code,
			Name:                addon.Name,
			EffectivePriceCents: addon.PriceCents,
			Currency:            addon.Currency,
			ExtraSeats:          addon.ExtraSeats,
			StripePriceID:       addon.StripePriceID,
		}

		if link, linked := links[id]; linked {
			if link.Included {
				entry.Included = true
				entry.EffectivePriceCents = 0
			} else if link.OverridePriceCents != nil {
				entry.EffectivePriceCents = *link.OverridePriceCents
			}
			if link.OverrideStripePrice != "" {
				entry.StripePriceID = link.OverrideStripePrice
			}
		}

		extraSeatTotal += addon.ExtraSeats
		snap.Addons = append(snap.Addons, entry)
		snap.AddonIDs = append(snap.AddonIDs, addon.ID)
	}

	// Лимит мест: база тарифа + добавки. Безлимит поглощает добавки.
	base := models.BaseSeatAllowance(plan.Tier)
	if base != nil {
		limit := *base + extraSeatTotal
		snap.MaxUsers = &limit
	}

	return snap
}

// SnapshotService загружает строки каталога и делегирует чистому билдеру
type SnapshotService struct {
	planRepo  repositories.PlanRepository
	addonRepo repositories.AddOnRepository
}

func NewSnapshotService(planRepo repositories.PlanRepository, addonRepo repositories.AddOnRepository) *SnapshotService {
	return &SnapshotService{planRepo: planRepo, addonRepo: addonRepo}
}

// Build собирает снапшот для тарифа и выбранных add-on'ов.
// hasWebsite добавляет к выборке add-on с кодом "website", если он есть в каталоге.
func (s *SnapshotService) Build(db *gorm.DB, planID, priceID string, selectedAddonIDs []string, extraSeats int, hasWebsite bool) (*Snapshot, error) {
	plan, err := s.planRepo.FindPlanByID(db, planID)
	if err != nil {
		if err == repositories.ErrPlanNotFound {
			return BuildSnapshot(nil, nil, nil, nil, nil, 0), nil
		}
		return nil, err
	}

	var price *models.PlanPrice
	if priceID != "" {
		price, err = s.planRepo.FindPriceByID(db, priceID)
		if err != nil && err != repositories.ErrPlanPriceNotFound {
			return nil, err
		}
	}
	if price == nil {
		// Берем первую активную цену плана
		for i := range plan.Prices {
			if plan.Prices[i].IsActive {
				price = &plan.Prices[i]
				break
			}
		}
	}

	planAddOns, err := s.planRepo.ListPlanAddOns(db, plan.ID)
	if err != nil {
		return nil, err
	}

	selected := append([]string{}, selectedAddonIDs...)
	if hasWebsite {
		if website, wErr := s.addonRepo.FindByCode(db, "website"); wErr == nil {
			selected = append(selected, website.ID)
		}
	}

	// Загружаем каталог: выбранные + все связанные с тарифом
	ids := append([]string{}, selected...)
	for i := range planAddOns {
		ids = append(ids, planAddOns[i].AddOnID)
	}
	addOns, err := s.addonRepo.FindByIDs(db, ids)
	if err != nil {
		return nil, err
	}

	return BuildSnapshot(plan, price, planAddOns, addOns, selected, extraSeats), nil
}
