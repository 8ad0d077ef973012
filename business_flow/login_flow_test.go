package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/glowdesk/invite-engine/app/dto"
	"github.com/glowdesk/invite-engine/app/services"
	"github.com/glowdesk/invite-engine/models"
	"github.com/glowdesk/invite-engine/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newLoginFixture(t *testing.T) (LoginFlow, *fakeOperatorRepo, *fakeSalonRepo, *fakeAuditRepo) {
	t.Helper()

	operators := newFakeOperatorRepo()
	salons := newFakeSalonRepo()
	audits := newFakeAuditRepo()

	tokenService, err := services.NewTokenService(
		15*time.Minute, 7*24*time.Hour,
		"invite-engine-test", "invite-engine-test",
		false, "", "", "test-secret-key-32-characters-long",
	)
	require.NoError(t, err)

	flow := NewLoginFlow(operators, salons, audits, tokenService, 15*time.Minute)
	return flow, operators, salons, audits
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLogin_Success(t *testing.T) {
	flow, operators, salons, audits := newLoginFixture(t)
	ctx := context.Background()

	salons.add(&models.Salon{ID: 1, UUID: uuid.New(), Name: "Glow", IsActive: utils.ToPtr(true)})
	operators.add(&models.Operator{
		ID:           1,
		UUID:         uuid.New(),
		SalonID:      1,
		Email:        "ana@glow.example",
		PasswordHash: hashPassword(t, "s3cret"),
		DisplayName:  "Ana",
		Status:       "active",
	})

	result, err := flow.Login(ctx, &dto.LoginRequest{Email: "ana@glow.example", Password: "s3cret"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "ana@glow.example", result.Operator.Email)
	assert.Equal(t, uint(1), result.Operator.SalonID)
	assert.NotEmpty(t, result.Token.AccessToken)
	assert.NotEmpty(t, result.Token.RefreshToken)
	assert.Equal(t, "Bearer", result.Token.TokenType)
	assert.Equal(t, int((15 * time.Minute).Seconds()), result.Token.ExpiresIn)

	updated, _ := operators.ByID(ctx, 1)
	assert.NotNil(t, updated.LastLoginAt)
	assert.Contains(t, audits.actions(), models.AuditActionLoginSuccessful)
}

func TestLogin_IncorrectPassword(t *testing.T) {
	flow, operators, salons, audits := newLoginFixture(t)

	salons.add(&models.Salon{ID: 1, UUID: uuid.New(), Name: "Glow", IsActive: utils.ToPtr(true)})
	operators.add(&models.Operator{
		ID:           1,
		UUID:         uuid.New(),
		SalonID:      1,
		Email:        "ana@glow.example",
		PasswordHash: hashPassword(t, "s3cret"),
		Status:       "active",
	})

	_, err := flow.Login(context.Background(), &dto.LoginRequest{Email: "ana@glow.example", Password: "wrong"}, nil)
	require.Error(t, err)
	assert.True(t, IsIncorrectPassword(err))
	assert.Contains(t, audits.actions(), models.AuditActionLoginFailed)
}

func TestLogin_UnknownEmail(t *testing.T) {
	flow, _, _, _ := newLoginFixture(t)

	_, err := flow.Login(context.Background(), &dto.LoginRequest{Email: "nobody@glow.example", Password: "x"}, nil)
	require.Error(t, err)
	assert.True(t, IsOperatorNotFound(err))
}

func TestLogin_SuspendedOperator(t *testing.T) {
	flow, operators, salons, _ := newLoginFixture(t)

	salons.add(&models.Salon{ID: 1, UUID: uuid.New(), Name: "Glow", IsActive: utils.ToPtr(true)})
	operators.add(&models.Operator{
		ID:           1,
		UUID:         uuid.New(),
		SalonID:      1,
		Email:        "ana@glow.example",
		PasswordHash: hashPassword(t, "s3cret"),
		Status:       "suspended",
	})

	_, err := flow.Login(context.Background(), &dto.LoginRequest{Email: "ana@glow.example", Password: "s3cret"}, nil)
	require.Error(t, err)
	assert.True(t, IsOperatorSuspended(err))
}

func TestLogin_InactiveSalon(t *testing.T) {
	flow, operators, salons, _ := newLoginFixture(t)

	salons.add(&models.Salon{ID: 1, UUID: uuid.New(), Name: "Glow", IsActive: utils.ToPtr(false)})
	operators.add(&models.Operator{
		ID:           1,
		UUID:         uuid.New(),
		SalonID:      1,
		Email:        "ana@glow.example",
		PasswordHash: hashPassword(t, "s3cret"),
		Status:       "active",
	})

	_, err := flow.Login(context.Background(), &dto.LoginRequest{Email: "ana@glow.example", Password: "s3cret"}, nil)
	require.Error(t, err)

	var businessErr *BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, "SALON_INACTIVE", businessErr.Code)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	flow, operators, salons, _ := newLoginFixture(t)

	salons.add(&models.Salon{ID: 1, UUID: uuid.New(), Name: "Glow", IsActive: utils.ToPtr(true)})
	operators.add(&models.Operator{
		ID:           1,
		UUID:         uuid.New(),
		SalonID:      1,
		Email:        "ana@glow.example",
		PasswordHash: hashPassword(t, "s3cret"),
		Status:       "active",
	})

	result, err := flow.Login(context.Background(), &dto.LoginRequest{Email: "ana@glow.example", Password: "s3cret"}, nil)
	require.NoError(t, err)

	refreshed, err := flow.RefreshToken(context.Background(), result.Token.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEmpty(t, refreshed.RefreshToken)
}
