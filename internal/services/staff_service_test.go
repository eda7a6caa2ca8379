package services

import (
	"context"
	"testing"

	"tradehub_backend/internal/dto"
	"tradehub_backend/internal/models"
	"tradehub_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staffFixture struct {
	svc      StaffService
	userRepo *fakeUserRepo
	subRepo  *fakeSubscriptionRepo
	email    *fakeEmailService
	owner    *models.User
}

func newStaffFixture(t *testing.T) *staffFixture {
	t.Helper()

	company := &models.Company{Name: "Acme Plumbing"}
	company.ID = "company-1"

	owner := &models.User{
		CompanyID: "company-1",
		Name:      "Owner",
		Email:     "owner@acme.dev",
		Role:      models.UserRoleOwner,
		Status:    models.UserStatusActive,
	}
	owner.ID = "user-owner"

	userRepo := newFakeUserRepo(owner)
	subRepo := &fakeSubscriptionRepo{}
	email := &fakeEmailService{}

	svc := NewStaffService(userRepo, newFakeCompanyRepo(company), subRepo, email)
	return &staffFixture{svc: svc, userRepo: userRepo, subRepo: subRepo, email: email, owner: owner}
}

func (f *staffFixture) seedSeatLimit(t *testing.T, maxUsers *int) {
	t.Helper()
	sub := &models.CompanySubscription{
		CompanyID: "company-1",
		MaxUsers:  maxUsers,
		Status:    models.SubscriptionStatusActive,
	}
	require.NoError(t, f.subRepo.Create(nil, sub))
}

func TestInviteSendsEmailAndCreatesInvitedUser(t *testing.T) {
	fix := newStaffFixture(t)
	five := 5
	fix.seedSeatLimit(t, &five)

	user, err := fix.svc.Invite(context.Background(), nil, "company-1",
		&dto.InviteStaffRequest{Name: "Tech", Email: "tech@acme.dev", Role: "staff"})
	require.NoError(t, err)

	assert.Equal(t, models.UserStatusInvited, user.Status)
	assert.NotEmpty(t, user.InviteToken)
	require.NotNil(t, user.InviteExpiresAt)
	assert.Equal(t, []string{"tech@acme.dev"}, fix.email.invites)
}

func TestInviteWithoutSubscriptionLimitedToOneSeat(t *testing.T) {
	fix := newStaffFixture(t)

	// Владелец уже занимает единственное место
	_, err := fix.svc.Invite(context.Background(), nil, "company-1",
		&dto.InviteStaffRequest{Name: "Tech", Email: "tech@acme.dev", Role: "staff"})

	assert.ErrorIs(t, err, apperrors.ErrSeatLimitReached)
}

func TestInviteSeatLimitReached(t *testing.T) {
	fix := newStaffFixture(t)
	one := 1
	fix.seedSeatLimit(t, &one)

	_, err := fix.svc.Invite(context.Background(), nil, "company-1",
		&dto.InviteStaffRequest{Name: "Tech", Email: "tech@acme.dev", Role: "staff"})

	assert.ErrorIs(t, err, apperrors.ErrSeatLimitReached)
}

func TestInviteUnlimitedPlan(t *testing.T) {
	fix := newStaffFixture(t)
	fix.seedSeatLimit(t, nil) // enterprise: безлимит

	for _, email := range []string{"a@acme.dev", "b@acme.dev", "c@acme.dev"} {
		_, err := fix.svc.Invite(context.Background(), nil, "company-1",
			&dto.InviteStaffRequest{Name: "Tech", Email: email, Role: "staff"})
		require.NoError(t, err)
	}
}

func TestInviteDuplicateEmail(t *testing.T) {
	fix := newStaffFixture(t)
	five := 5
	fix.seedSeatLimit(t, &five)

	_, err := fix.svc.Invite(context.Background(), nil, "company-1",
		&dto.InviteStaffRequest{Name: "Copy", Email: "owner@acme.dev", Role: "staff"})

	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestSuspendedSeatFreesUpAndActivateRechecksLimit(t *testing.T) {
	fix := newStaffFixture(t)
	two := 2
	fix.seedSeatLimit(t, &two)

	tech, err := fix.svc.Invite(context.Background(), nil, "company-1",
		&dto.InviteStaffRequest{Name: "Tech", Email: "tech@acme.dev", Role: "staff"})
	require.NoError(t, err)

	require.NoError(t, fix.svc.Suspend(context.Background(), nil, "company-1", tech.ID))

	// Освободившееся место можно занять
	other, err := fix.svc.Invite(context.Background(), nil, "company-1",
		&dto.InviteStaffRequest{Name: "Other", Email: "other@acme.dev", Role: "staff"})
	require.NoError(t, err)
	_ = other

	// Возвращение из suspended снова требует места
	err = fix.svc.Activate(context.Background(), nil, "company-1", tech.ID)
	assert.ErrorIs(t, err, apperrors.ErrSeatLimitReached)
}

func TestOwnerIsProtected(t *testing.T) {
	fix := newStaffFixture(t)

	err := fix.svc.Suspend(context.Background(), nil, "company-1", fix.owner.ID)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPermissions)

	err = fix.svc.Remove(context.Background(), nil, "company-1", fix.owner.ID)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPermissions)

	_, err = fix.svc.Update(context.Background(), nil, "company-1", fix.owner.ID,
		&dto.UpdateStaffRequest{Role: "staff"})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPermissions)
}

func TestStaffFromAnotherCompanyIsInvisible(t *testing.T) {
	fix := newStaffFixture(t)

	stranger := &models.User{CompanyID: "company-2", Email: "x@other.dev", Role: models.UserRoleStaff}
	stranger.ID = "user-stranger"
	fix.userRepo.users[stranger.ID] = stranger

	err := fix.svc.Suspend(context.Background(), nil, "company-1", stranger.ID)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
