package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tradehub_backend/internal/billing"
	"tradehub_backend/internal/models"
	"tradehub_backend/internal/repositories"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// In-memory фейки репозиториев. db игнорируется: сервисы передают его
// насквозь, а состояние живет в самом фейке.

type fakeSubscriptionRepo struct {
	subs    []*models.CompanySubscription
	periods []*models.SubscriptionPeriod
	nextID  int
}

func (f *fakeSubscriptionRepo) Create(_ *gorm.DB, sub *models.CompanySubscription) error {
	if sub.ID == "" {
		f.nextID++
		sub.ID = fmt.Sprintf("sub-%d", f.nextID)
	}
	sub.CreatedAt = time.Now()
	f.subs = append(f.subs, sub)
	return nil
}

func (f *fakeSubscriptionRepo) FindByID(_ *gorm.DB, id string) (*models.CompanySubscription, error) {
	for _, s := range f.subs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repositories.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionRepo) FindByStripeID(_ *gorm.DB, stripeID string) (*models.CompanySubscription, error) {
	for _, s := range f.subs {
		if s.StripeSubscriptionID == stripeID {
			return s, nil
		}
	}
	return nil, repositories.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionRepo) FindCurrentByCompany(_ *gorm.DB, companyID string) (*models.CompanySubscription, error) {
	for i := len(f.subs) - 1; i >= 0; i-- {
		s := f.subs[i]
		if s.CompanyID == companyID && models.IsPayingStatus(s.Status) {
			return s, nil
		}
	}
	return nil, repositories.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionRepo) FindLatestByCompany(_ *gorm.DB, companyID string) (*models.CompanySubscription, error) {
	for i := len(f.subs) - 1; i >= 0; i-- {
		if f.subs[i].CompanyID == companyID {
			return f.subs[i], nil
		}
	}
	return nil, repositories.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionRepo) ListByCompany(_ *gorm.DB, companyID string) ([]models.CompanySubscription, error) {
	var out []models.CompanySubscription
	for i := len(f.subs) - 1; i >= 0; i-- {
		if f.subs[i].CompanyID == companyID {
			out = append(out, *f.subs[i])
		}
	}
	return out, nil
}

func (f *fakeSubscriptionRepo) Update(_ *gorm.DB, sub *models.CompanySubscription) error {
	for i, s := range f.subs {
		if s.ID == sub.ID {
			f.subs[i] = sub
			return nil
		}
	}
	return repositories.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionRepo) UpdateStatus(_ *gorm.DB, id string, status models.SubscriptionStatus) error {
	sub, err := f.FindByID(nil, id)
	if err != nil {
		return err
	}
	sub.Status = status
	return nil
}

func (f *fakeSubscriptionRepo) UpdateStatusAndPeriod(_ *gorm.DB, id string, status models.SubscriptionStatus,
	periodStart, periodEnd, expiresAt *time.Time) error {
	sub, err := f.FindByID(nil, id)
	if err != nil {
		return err
	}
	sub.Status = status
	if periodStart != nil {
		sub.CurrentPeriodStart = periodStart
	}
	if periodEnd != nil {
		sub.CurrentPeriodEnd = periodEnd
	}
	if expiresAt != nil {
		sub.SubscriptionExpiresAt = expiresAt
	}
	return nil
}

func (f *fakeSubscriptionRepo) MergeMetadata(_ *gorm.DB, id string, patch map[string]interface{}) error {
	sub, err := f.FindByID(nil, id)
	if err != nil {
		return err
	}
	meta := map[string]interface{}{}
	if len(sub.Metadata) > 0 {
		if err := json.Unmarshal(sub.Metadata, &meta); err != nil {
			return err
		}
	}
	for k, v := range patch {
		meta[k] = v
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	sub.Metadata = datatypes.JSON(raw)
	return nil
}

func (f *fakeSubscriptionRepo) CreatePeriodIfAbsent(_ *gorm.DB, period *models.SubscriptionPeriod) (bool, error) {
	for _, p := range f.periods {
		if p.InvoiceID == period.InvoiceID && p.PeriodStart.Equal(period.PeriodStart) {
			*period = *p
			return false, nil
		}
	}
	f.nextID++
	period.ID = fmt.Sprintf("period-%d", f.nextID)
	f.periods = append(f.periods, period)
	return true, nil
}

func (f *fakeSubscriptionRepo) ListPeriods(_ *gorm.DB, subscriptionID string) ([]models.SubscriptionPeriod, error) {
	var out []models.SubscriptionPeriod
	for _, p := range f.periods {
		if p.SubscriptionID == subscriptionID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeCompanyRepo struct {
	companies map[string]*models.Company
}

func newFakeCompanyRepo(companies ...*models.Company) *fakeCompanyRepo {
	f := &fakeCompanyRepo{companies: map[string]*models.Company{}}
	for _, c := range companies {
		f.companies[c.ID] = c
	}
	return f
}

func (f *fakeCompanyRepo) Create(_ *gorm.DB, company *models.Company) error {
	if company.ID == "" {
		company.ID = fmt.Sprintf("company-%d", len(f.companies)+1)
	}
	f.companies[company.ID] = company
	return nil
}

func (f *fakeCompanyRepo) FindByID(_ *gorm.DB, id string) (*models.Company, error) {
	if c, ok := f.companies[id]; ok {
		return c, nil
	}
	return nil, repositories.ErrCompanyNotFound
}

func (f *fakeCompanyRepo) FindByStripeCustomerID(_ *gorm.DB, customerID string) (*models.Company, error) {
	for _, c := range f.companies {
		if c.StripeCustomerID == customerID {
			return c, nil
		}
	}
	return nil, repositories.ErrCompanyNotFound
}

func (f *fakeCompanyRepo) Update(_ *gorm.DB, company *models.Company) error {
	if _, ok := f.companies[company.ID]; !ok {
		return repositories.ErrCompanyNotFound
	}
	f.companies[company.ID] = company
	return nil
}

func (f *fakeCompanyRepo) SetStripeCustomerID(_ *gorm.DB, companyID, customerID string) error {
	c, err := f.FindByID(nil, companyID)
	if err != nil {
		return err
	}
	c.StripeCustomerID = customerID
	return nil
}

func (f *fakeCompanyRepo) UpdateSubscriptionStatus(_ *gorm.DB, companyID string, status models.SubscriptionStatus) error {
	c, err := f.FindByID(nil, companyID)
	if err != nil {
		return err
	}
	c.SubscriptionStatus = status
	return nil
}

func (f *fakeCompanyRepo) MarkOnboardingCompleted(_ *gorm.DB, companyID string) error {
	c, err := f.FindByID(nil, companyID)
	if err != nil {
		return err
	}
	c.OnboardingCompleted = true
	return nil
}

type fakePlanRepo struct {
	plans      map[string]*models.Plan
	prices     map[string]*models.PlanPrice
	planAddOns []models.PlanAddOn
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{
		plans:  map[string]*models.Plan{},
		prices: map[string]*models.PlanPrice{},
	}
}

func (f *fakePlanRepo) CreatePlan(_ *gorm.DB, plan *models.Plan) error {
	f.plans[plan.ID] = plan
	return nil
}

func (f *fakePlanRepo) FindPlanByID(_ *gorm.DB, id string) (*models.Plan, error) {
	if p, ok := f.plans[id]; ok {
		return p, nil
	}
	return nil, repositories.ErrPlanNotFound
}

func (f *fakePlanRepo) FindPlanByCode(_ *gorm.DB, code string) (*models.Plan, error) {
	for _, p := range f.plans {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, repositories.ErrPlanNotFound
}

func (f *fakePlanRepo) FindActivePlans(_ *gorm.DB) ([]models.Plan, error) {
	var out []models.Plan
	for _, p := range f.plans {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePlanRepo) UpdatePlan(_ *gorm.DB, plan *models.Plan) error {
	if _, ok := f.plans[plan.ID]; !ok {
		return repositories.ErrPlanNotFound
	}
	f.plans[plan.ID] = plan
	return nil
}

func (f *fakePlanRepo) DeactivatePlan(_ *gorm.DB, id string) error {
	p, ok := f.plans[id]
	if !ok {
		return repositories.ErrPlanNotFound
	}
	p.IsActive = false
	return nil
}

func (f *fakePlanRepo) CreatePrice(_ *gorm.DB, price *models.PlanPrice) error {
	f.prices[price.ID] = price
	return nil
}

func (f *fakePlanRepo) FindPriceByID(_ *gorm.DB, id string) (*models.PlanPrice, error) {
	if p, ok := f.prices[id]; ok {
		return p, nil
	}
	return nil, repositories.ErrPlanPriceNotFound
}

func (f *fakePlanRepo) FindPriceByStripeID(_ *gorm.DB, stripePriceID string) (*models.PlanPrice, error) {
	for _, p := range f.prices {
		if p.StripePriceID == stripePriceID {
			return p, nil
		}
	}
	return nil, repositories.ErrPlanPriceNotFound
}

func (f *fakePlanRepo) ListPlanAddOns(_ *gorm.DB, planID string) ([]models.PlanAddOn, error) {
	var out []models.PlanAddOn
	for _, link := range f.planAddOns {
		if link.PlanID == planID {
			out = append(out, link)
		}
	}
	return out, nil
}

type fakeAddOnRepo struct {
	addons map[string]*models.AddOn
	links  []*models.CompanyAddOn
	nextID int
}

func newFakeAddOnRepo(addons ...*models.AddOn) *fakeAddOnRepo {
	f := &fakeAddOnRepo{addons: map[string]*models.AddOn{}}
	for _, a := range addons {
		f.addons[a.ID] = a
	}
	return f
}

func (f *fakeAddOnRepo) FindByID(_ *gorm.DB, id string) (*models.AddOn, error) {
	if a, ok := f.addons[id]; ok {
		return a, nil
	}
	return nil, repositories.ErrAddOnNotFound
}

func (f *fakeAddOnRepo) FindByIDs(_ *gorm.DB, ids []string) ([]models.AddOn, error) {
	var out []models.AddOn
	seen := map[string]bool{}
	for _, id := range ids {
		if a, ok := f.addons[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAddOnRepo) FindByCode(_ *gorm.DB, code string) (*models.AddOn, error) {
	for _, a := range f.addons {
		if a.Code == code {
			return a, nil
		}
	}
	return nil, repositories.ErrAddOnNotFound
}

func (f *fakeAddOnRepo) FindActive(_ *gorm.DB) ([]models.AddOn, error) {
	var out []models.AddOn
	for _, a := range f.addons {
		if a.IsActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAddOnRepo) EnableForCompany(_ *gorm.DB, link *models.CompanyAddOn) error {
	for _, l := range f.links {
		if l.CompanyID == link.CompanyID && l.AddOnID == link.AddOnID {
			*link = *l
			return nil
		}
	}
	f.nextID++
	link.ID = fmt.Sprintf("link-%d", f.nextID)
	f.links = append(f.links, link)
	return nil
}

func (f *fakeAddOnRepo) DisableForCompany(_ *gorm.DB, companyID, addOnID string) error {
	for i, l := range f.links {
		if l.CompanyID == companyID && l.AddOnID == addOnID {
			f.links = append(f.links[:i], f.links[i+1:]...)
			return nil
		}
	}
	return repositories.ErrCompanyAddOnNotFound
}

func (f *fakeAddOnRepo) FindCompanyAddOn(_ *gorm.DB, companyID, addOnID string) (*models.CompanyAddOn, error) {
	for _, l := range f.links {
		if l.CompanyID == companyID && l.AddOnID == addOnID {
			out := *l
			if a, ok := f.addons[l.AddOnID]; ok {
				out.AddOn = *a
			}
			return &out, nil
		}
	}
	return nil, repositories.ErrCompanyAddOnNotFound
}

func (f *fakeAddOnRepo) ListByCompany(_ *gorm.DB, companyID string) ([]models.CompanyAddOn, error) {
	var out []models.CompanyAddOn
	for _, l := range f.links {
		if l.CompanyID == companyID {
			entry := *l
			if a, ok := f.addons[l.AddOnID]; ok {
				entry.AddOn = *a
			}
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeAddOnRepo) SetStripeItemID(_ *gorm.DB, id, stripeItemID string) error {
	for _, l := range f.links {
		if l.ID == id {
			l.StripeItemID = stripeItemID
			return nil
		}
	}
	return repositories.ErrCompanyAddOnNotFound
}

type fakeTransactionRepo struct {
	txns   []*models.Transaction
	nextID int
}

func (f *fakeTransactionRepo) RecordIfAbsent(_ *gorm.DB, txn *models.Transaction) (bool, error) {
	for _, t := range f.txns {
		if t.StripeObjectID == txn.StripeObjectID {
			*txn = *t
			return false, nil
		}
	}
	f.nextID++
	txn.ID = fmt.Sprintf("txn-%d", f.nextID)
	f.txns = append(f.txns, txn)
	return true, nil
}

func (f *fakeTransactionRepo) FindByStripeObjectID(_ *gorm.DB, stripeObjectID string) (*models.Transaction, error) {
	for _, t := range f.txns {
		if t.StripeObjectID == stripeObjectID {
			return t, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (f *fakeTransactionRepo) ListByCompany(_ *gorm.DB, companyID string, limit, offset int) ([]models.Transaction, int64, error) {
	var out []models.Transaction
	for _, t := range f.txns {
		if t.CompanyID != nil && *t.CompanyID == companyID {
			out = append(out, *t)
		}
	}
	return out, int64(len(out)), nil
}

type fakeUserRepo struct {
	users  map[string]*models.User
	nextID int
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(_ *gorm.DB, user *models.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return repositories.ErrUserAlreadyExists
		}
	}
	if user.ID == "" {
		f.nextID++
		user.ID = fmt.Sprintf("user-%d", f.nextID)
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) FindByID(_ *gorm.DB, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) FindByEmail(_ *gorm.DB, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) FindByInviteToken(_ *gorm.DB, token string) (*models.User, error) {
	for _, u := range f.users {
		if u.InviteToken == token {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) ListByCompany(_ *gorm.DB, companyID string) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.CompanyID == companyID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) CountActiveByCompany(_ *gorm.DB, companyID string) (int64, error) {
	var count int64
	for _, u := range f.users {
		if u.CompanyID == companyID && u.Status != models.UserStatusSuspended {
			count++
		}
	}
	return count, nil
}

func (f *fakeUserRepo) Update(_ *gorm.DB, user *models.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdateStatus(_ *gorm.DB, userID string, status models.UserStatus) error {
	u, err := f.FindByID(nil, userID)
	if err != nil {
		return err
	}
	u.Status = status
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ *gorm.DB, userID string) error {
	u, err := f.FindByID(nil, userID)
	if err != nil {
		return err
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

func (f *fakeUserRepo) Delete(_ *gorm.DB, companyID, userID string) error {
	u, ok := f.users[userID]
	if !ok || u.CompanyID != companyID {
		return repositories.ErrUserNotFound
	}
	delete(f.users, userID)
	return nil
}

func (f *fakeUserRepo) CreateRefreshToken(_ *gorm.DB, _ *models.RefreshToken) error { return nil }
func (f *fakeUserRepo) FindRefreshToken(_ *gorm.DB, _ string) (*models.RefreshToken, error) {
	return nil, repositories.ErrRefreshTokenNotFound
}
func (f *fakeUserRepo) RevokeRefreshToken(_ *gorm.DB, _ string) error { return nil }
func (f *fakeUserRepo) DeleteExpiredRefreshTokens(_ *gorm.DB) error   { return nil }

// fakeBillingProvider отдает заранее заданные ответы и пишет вызовы
type fakeBillingProvider struct {
	customerID string

	createdSubscription *billing.Subscription
	subscriptionsByID   map[string]*billing.Subscription
	customerSubs        []*billing.Subscription

	createParams   []billing.SubscriptionParams
	attachedItems  []billing.ItemParams
	removedItemIDs []string
	attachedPMs    []string

	createErr error
	getErr    error
	removeErr error
}

func (f *fakeBillingProvider) EnsureCustomer(_ context.Context, params billing.CustomerParams) (string, error) {
	if params.ExistingID != "" {
		return params.ExistingID, nil
	}
	if f.customerID == "" {
		f.customerID = "cus_test"
	}
	return f.customerID, nil
}

func (f *fakeBillingProvider) AttachPaymentMethod(_ context.Context, customerID, paymentMethodID string) error {
	f.attachedPMs = append(f.attachedPMs, paymentMethodID)
	return nil
}

func (f *fakeBillingProvider) CreateSubscription(_ context.Context, params billing.SubscriptionParams) (*billing.Subscription, error) {
	f.createParams = append(f.createParams, params)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createdSubscription, nil
}

func (f *fakeBillingProvider) GetSubscription(_ context.Context, subscriptionID string) (*billing.Subscription, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if sub, ok := f.subscriptionsByID[subscriptionID]; ok {
		return sub, nil
	}
	return nil, fmt.Errorf("no such subscription: %s", subscriptionID)
}

func (f *fakeBillingProvider) ListSubscriptions(_ context.Context, customerID string) ([]*billing.Subscription, error) {
	return f.customerSubs, nil
}

func (f *fakeBillingProvider) CancelSubscription(_ context.Context, subscriptionID string) (*billing.Subscription, error) {
	sub, ok := f.subscriptionsByID[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("no such subscription: %s", subscriptionID)
	}
	sub.Status = "canceled"
	return sub, nil
}

func (f *fakeBillingProvider) AddSubscriptionItem(_ context.Context, params billing.ItemParams) (*billing.SubscriptionItem, error) {
	f.attachedItems = append(f.attachedItems, params)
	return &billing.SubscriptionItem{
		ID:      fmt.Sprintf("si_%d", len(f.attachedItems)),
		PriceID: params.PriceID,
	}, nil
}

func (f *fakeBillingProvider) RemoveSubscriptionItem(_ context.Context, itemID string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removedItemIDs = append(f.removedItemIDs, itemID)
	return nil
}

func (f *fakeBillingProvider) ParseWebhook(payload []byte, sigHeader string) (*billing.Event, error) {
	return nil, fmt.Errorf("not implemented in fake")
}

type fakeEmailService struct {
	invites        []string
	welcomes       []string
	failureNotices []string
}

func (f *fakeEmailService) SendInvite(to, companyName, inviteToken string) error {
	f.invites = append(f.invites, to)
	return nil
}

func (f *fakeEmailService) SendWelcome(to, userName string) error {
	f.welcomes = append(f.welcomes, to)
	return nil
}

func (f *fakeEmailService) SendPaymentFailedNotice(to, companyName string) error {
	f.failureNotices = append(f.failureNotices, to)
	return nil
}
