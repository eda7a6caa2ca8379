package services

import (
	"encoding/json"
	"testing"

	"tradehub_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamPlan() *models.Plan {
	plan := &models.Plan{
		Code: "team",
		Name: "Team",
		Tier: models.PlanTierTeam,
	}
	plan.ID = "plan-team"
	return plan
}

func monthlyPrice(planID string) *models.PlanPrice {
	price := &models.PlanPrice{
		PlanID:        planID,
		AmountCents:   9900,
		Currency:      "usd",
		Interval:      "month",
		IsActive:      true,
		StripePriceID: "price_team_month",
	}
	price.ID = "price-team-month"
	return price
}

func catalogAddOn(id, code string, priceCents int64, extraSeats int) models.AddOn {
	addon := models.AddOn{
		Code:          code,
		Name:          code,
		PriceCents:    priceCents,
		Currency:      "usd",
		ExtraSeats:    extraSeats,
		IsActive:      true,
		StripePriceID: "price_" + code,
	}
	addon.ID = id
	return addon
}

func TestBuildSnapshotNilPlanGivesEmptySnapshot(t *testing.T) {
	snap := BuildSnapshot(nil, nil, nil, nil, []string{"addon-1"}, 5)

	assert.True(t, snap.Empty())
	assert.Nil(t, snap.Plan)
	assert.Empty(t, snap.Addons)
	assert.Empty(t, snap.AddonIDs)
}

func TestBuildSnapshotCapturesPlanAndPrice(t *testing.T) {
	plan := teamPlan()
	price := monthlyPrice(plan.ID)

	snap := BuildSnapshot(plan, price, nil, nil, nil, 0)

	require.False(t, snap.Empty())
	assert.Equal(t, "plan-team", snap.Plan.PlanID)
	assert.Equal(t, "team", snap.Plan.PlanCode)
	assert.Equal(t, int64(9900), snap.Plan.AmountCents)
	assert.Equal(t, "price_team_month", snap.Plan.StripePriceID)
	assert.Equal(t, "month", snap.Plan.Interval)

	// team = 5 мест
	require.NotNil(t, snap.MaxUsers)
	assert.Equal(t, 5, *snap.MaxUsers)
}

func TestBuildSnapshotUnionSelectedAndIncluded(t *testing.T) {
	plan := teamPlan()
	website := catalogAddOn("addon-website", "website", 2900, 0)
	booster := catalogAddOn("addon-booster", "review_booster", 1900, 0)
	links := []models.PlanAddOn{
		{PlanID: plan.ID, AddOnID: website.ID, Included: true},
	}

	snap := BuildSnapshot(plan, nil, links, []models.AddOn{website, booster},
		[]string{booster.ID, booster.ID}, 0)

	// Дубликаты выбора схлопываются, included добавляется после выбранных
	require.Len(t, snap.Addons, 2)
	assert.Equal(t, []string{"addon-booster", "addon-website"}, snap.AddonIDs)

	assert.False(t, snap.Addons[0].Included)
	assert.Equal(t, int64(1900), snap.Addons[0].EffectivePriceCents)

	// Included add-on бесплатен в снапшоте
	assert.True(t, snap.Addons[1].Included)
	assert.Equal(t, int64(0), snap.Addons[1].EffectivePriceCents)
}

func TestBuildSnapshotPlanOverridesCatalogPrice(t *testing.T) {
	plan := teamPlan()
	booster := catalogAddOn("addon-booster", "review_booster", 1900, 0)
	override := int64(990)
	links := []models.PlanAddOn{
		{
			PlanID:              plan.ID,
			AddOnID:             booster.ID,
			OverridePriceCents:  &override,
			OverrideStripePrice: "price_booster_team",
		},
	}

	snap := BuildSnapshot(plan, nil, links, []models.AddOn{booster}, []string{booster.ID}, 0)

	require.Len(t, snap.Addons, 1)
	assert.Equal(t, int64(990), snap.Addons[0].EffectivePriceCents)
	assert.Equal(t, "price_booster_team", snap.Addons[0].StripePriceID)
}

func TestBuildSnapshotSeatMath(t *testing.T) {
	plan := teamPlan()
	seats := catalogAddOn("addon-seats", "extra_seats", 500, 3)

	snap := BuildSnapshot(plan, nil, nil, []models.AddOn{seats}, []string{seats.ID}, 2)

	// 5 базовых + 3 от add-on + 2 явных
	require.NotNil(t, snap.MaxUsers)
	assert.Equal(t, 10, *snap.MaxUsers)
}

func TestBuildSnapshotEnterpriseIsUnlimited(t *testing.T) {
	plan := teamPlan()
	plan.Tier = models.PlanTierEnterprise
	seats := catalogAddOn("addon-seats", "extra_seats", 500, 3)

	snap := BuildSnapshot(plan, nil, nil, []models.AddOn{seats}, []string{seats.ID}, 50)

	// Безлимит поглощает любые добавки
	assert.Nil(t, snap.MaxUsers)
}

func TestBuildSnapshotSkipsUnknownAddOns(t *testing.T) {
	plan := teamPlan()

	snap := BuildSnapshot(plan, nil, nil, nil, []string{"addon-ghost"}, 0)

	assert.Empty(t, snap.Addons)
	assert.Empty(t, snap.AddonIDs)
	require.NotNil(t, snap.MaxUsers)
	assert.Equal(t, 5, *snap.MaxUsers)
}

func TestSnapshotJSONColumns(t *testing.T) {
	plan := teamPlan()
	price := monthlyPrice(plan.ID)
	booster := catalogAddOn("addon-booster", "review_booster", 1900, 0)

	snap := BuildSnapshot(plan, price, nil, []models.AddOn{booster}, []string{booster.ID}, 0)

	planJSON, addonsJSON, idsJSON, err := snap.JSONColumns()
	require.NoError(t, err)

	var decodedPlan PlanSnapshot
	require.NoError(t, json.Unmarshal(planJSON, &decodedPlan))
	assert.Equal(t, snap.Plan.PlanID, decodedPlan.PlanID)
	assert.Equal(t, snap.Plan.AmountCents, decodedPlan.AmountCents)

	var decodedIDs []string
	require.NoError(t, json.Unmarshal(idsJSON, &decodedIDs))
	assert.Equal(t, []string{"addon-booster"}, decodedIDs)

	var decodedAddons []AddonSnapshotEntry
	require.NoError(t, json.Unmarshal(addonsJSON, &decodedAddons))
	require.Len(t, decodedAddons, 1)
	assert.Equal(t, int64(1900), decodedAddons[0].EffectivePriceCents)
}

func TestSnapshotServiceBuildFallsBackToFirstActivePrice(t *testing.T) {
	planRepo := newFakePlanRepo()
	addonRepo := newFakeAddOnRepo()

	plan := teamPlan()
	inactive := models.PlanPrice{PlanID: plan.ID, AmountCents: 100, Interval: "month"}
	inactive.ID = "price-old"
	active := *monthlyPrice(plan.ID)
	plan.Prices = []models.PlanPrice{inactive, active}
	planRepo.plans[plan.ID] = plan

	svc := NewSnapshotService(planRepo, addonRepo)

	snap, err := svc.Build(nil, plan.ID, "", nil, 0, false)
	require.NoError(t, err)
	require.False(t, snap.Empty())
	assert.Equal(t, "price-team-month", snap.Plan.PriceID)
}

func TestSnapshotServiceBuildUnknownPlanIsEmptyNotError(t *testing.T) {
	svc := NewSnapshotService(newFakePlanRepo(), newFakeAddOnRepo())

	snap, err := svc.Build(nil, "plan-ghost", "", nil, 0, false)
	require.NoError(t, err)
	assert.True(t, snap.Empty())
}

func TestSnapshotServiceBuildHasWebsiteSelectsWebsiteAddOn(t *testing.T) {
	planRepo := newFakePlanRepo()
	plan := teamPlan()
	plan.Prices = []models.PlanPrice{*monthlyPrice(plan.ID)}
	planRepo.plans[plan.ID] = plan

	website := catalogAddOn("addon-website", "website", 2900, 0)
	addonRepo := newFakeAddOnRepo(&website)

	svc := NewSnapshotService(planRepo, addonRepo)

	snap, err := svc.Build(nil, plan.ID, "", nil, 0, true)
	require.NoError(t, err)
	require.Len(t, snap.Addons, 1)
	assert.Equal(t, "website", snap.Addons[0].Code)
}
