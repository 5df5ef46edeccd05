package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/koino/internal/models"
	"github.com/example/koino/internal/utils"
)

func TestRegisterCreatesChainAccountAndRecord(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.request(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name":     "Corner Cafe",
		"email":    "cafe@example.com",
		"password": "password123",
		"role":     "merchant",
		"sector":   "food",
	})
	require.Equal(t, http.StatusCreated, status)

	payload := data(t, body)
	user, ok := payload["user"].(map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, user["account_address"])
	require.Equal(t, "corner-cafe", user["slug"])
	require.NotEmpty(t, payload["token"])

	var stored models.User
	require.NoError(t, env.db.First(&stored, "email = ?", "cafe@example.com").Error)
	require.Equal(t, models.RoleMerchant, stored.Role)
	require.NotEmpty(t, stored.AccountAddress)

	var record models.LoyaltyTransaction
	require.NoError(t, env.db.First(&record, "to_id = ?", stored.ID).Error)
	require.Equal(t, models.TxRegisterPartner, record.Type)
	require.Equal(t, "0xregister", record.Tx)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, models.RoleCustomer, "taken@example.com")

	status, body := env.request(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name":     "Someone",
		"email":    "taken@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "user already exists", body["message"])
}

func TestRegisterChainFailureWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.chain.failOn("/members")

	status, _ := env.request(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name":     "Unlucky",
		"email":    "unlucky@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)

	var users, records int64
	env.db.Model(&models.User{}).Count(&users)
	env.db.Model(&models.LoyaltyTransaction{}).Count(&records)
	require.Zero(t, users)
	require.Zero(t, records)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.request(t, http.MethodPost, "/auth/register", "", map[string]any{
		"name":     "No Email",
		"password": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Contains(t, body["message"], "validation failed")
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	user := models.User{
		Name:         "Jo",
		Email:        "jo@example.com",
		PasswordHash: hash,
		Role:         models.RoleCustomer,
	}
	require.NoError(t, env.db.Create(&user).Error)

	status, body := env.request(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "jo@example.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "invalid credentials", body["message"])

	status, body = env.request(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "jo@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status)

	token, ok := data(t, body)["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	// The issued token works against an authenticated route.
	status, _ = env.request(t, http.MethodGet, "/loyalty/balance", token, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)

	hash, err := utils.HashPassword("old-password")
	require.NoError(t, err)
	user := models.User{Name: "Ann", Email: "ann@example.com", PasswordHash: hash}
	require.NoError(t, env.db.Create(&user).Error)

	status, body := env.request(t, http.MethodPost, "/auth/forgot_pass", "", map[string]any{
		"email": "ann@example.com",
	})
	require.Equal(t, http.StatusOK, status)

	resetToken, ok := data(t, body)["reset_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, resetToken)

	status, _ = env.request(t, http.MethodPost, "/auth/reset_pass", "", map[string]any{
		"email":    "ann@example.com",
		"token":    resetToken,
		"password": "new-password",
	})
	require.Equal(t, http.StatusOK, status)

	var reloaded models.User
	require.NoError(t, env.db.First(&reloaded, "email = ?", "ann@example.com").Error)
	require.True(t, utils.CheckPassword(reloaded.PasswordHash, "new-password"))
	require.False(t, utils.CheckPassword(reloaded.PasswordHash, "old-password"))

	// The token is single-use.
	status, _ = env.request(t, http.MethodPost, "/auth/reset_pass", "", map[string]any{
		"email":    "ann@example.com",
		"token":    resetToken,
		"password": "another-password",
	})
	require.Equal(t, http.StatusNotFound, status)
}
