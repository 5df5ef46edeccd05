package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/koino/internal/models"
)

func promisePath(merchant models.User, campaign models.Campaign) string {
	return "/microcredit/earn/" + merchant.ID.String() + "/" + campaign.ID.String()
}

func supportPath(merchant models.User, campaign models.Campaign, support models.Support, action string) string {
	return "/microcredit/supports/" + merchant.ID.String() + "/" + campaign.ID.String() +
		"/" + support.ID.String() + "/" + action
}

func TestPromiseCreatesOrderSupport(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.createUser(t, models.RoleMerchant, "shop@example.com")
	backer := env.createUser(t, models.RoleCustomer, "buyer@example.com")
	campaign := env.createCampaign(t, merchant, "Fundable", models.AccessPublic)

	status, body := env.request(t, http.MethodPost, promisePath(merchant, campaign), env.token(t, backer), map[string]any{
		"_amount":    50,
		"payment_id": "pay-123",
	})
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "0xpromise", data(t, body)["tx"])

	var support models.Support
	require.NoError(t, env.db.First(&support, "campaign_id = ?", campaign.ID).Error)
	require.Equal(t, models.SupportOrder, support.Status)
	require.Equal(t, backer.ID, support.BackerID)
	require.Equal(t, 50.0, support.InitialTokens)
	require.Equal(t, "pay-123", support.PaymentID)

	var record models.MicrocreditTransaction
	require.NoError(t, env.db.First(&record, "support_id = ?", support.ID).Error)
	require.Equal(t, models.FundPromise, record.Type)
	require.Equal(t, 3, record.ContractIndex)
}

func TestPromiseChainFailureWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.createUser(t, models.RoleMerchant, "shop@example.com")
	backer := env.createUser(t, models.RoleCustomer, "buyer@example.com")
	campaign := env.createCampaign(t, merchant, "Fundable", models.AccessPublic)
	env.chain.failOn("/funds/promise")

	status, _ := env.request(t, http.MethodPost, promisePath(merchant, campaign), env.token(t, backer), map[string]any{
		"_amount": 50,
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)

	var supports, records int64
	env.db.Model(&models.Support{}).Count(&supports)
	env.db.Model(&models.MicrocreditTransaction{}).Count(&records)
	require.Zero(t, supports)
	require.Zero(t, records)
}

func TestConfirmTransitionsOrderToConfirmation(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.createUser(t, models.RoleMerchant, "shop@example.com")
	backer := env.createUser(t, models.RoleCustomer, "buyer@example.com")
	campaign := env.createCampaign(t, merchant, "Fundable", models.AccessPublic)

	support := models.Support{
		CampaignID:    campaign.ID,
		BackerID:      backer.ID,
		InitialTokens: 50,
		Status:        models.SupportOrder,
	}
	require.NoError(t, env.db.Create(&support).Error)

	status, _ := env.request(t, http.MethodPut, supportPath(merchant, campaign, support, "confirm"), env.token(t, merchant), nil)
	require.Equal(t, http.StatusOK, status)

	var reloaded models.Support
	require.NoError(t, env.db.First(&reloaded, "id = ?", support.ID).Error)
	require.Equal(t, models.SupportConfirmation, reloaded.Status)

	var record models.MicrocreditTransaction
	require.NoError(t, env.db.First(&record, "support_id = ?", support.ID).Error)
	require.Equal(t, models.FundReceive, record.Type)

	// Confirming again is rejected: the support is no longer pending.
	status, body := env.request(t, http.MethodPut, supportPath(merchant, campaign, support, "confirm"), env.token(t, merchant), nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, "support is not pending confirmation", body["message"])
}

func TestRevertRequiresConfirmedSupport(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.createUser(t, models.RoleMerchant, "shop@example.com")
	backer := env.createUser(t, models.RoleCustomer, "buyer@example.com")
	campaign := env.createCampaign(t, merchant, "Fundable", models.AccessPublic)

	support := models.Support{
		CampaignID:    campaign.ID,
		BackerID:      backer.ID,
		InitialTokens: 50,
		Status:        models.SupportOrder,
	}
	require.NoError(t, env.db.Create(&support).Error)

	status, _ := env.request(t, http.MethodPut, supportPath(merchant, campaign, support, "revert"), env.token(t, merchant), nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)

	require.NoError(t, env.db.Model(&support).Update("status", models.SupportConfirmation).Error)

	status, _ = env.request(t, http.MethodPut, supportPath(merchant, campaign, support, "revert"), env.token(t, merchant), nil)
	require.Equal(t, http.StatusOK, status)

	var reloaded models.Support
	require.NoError(t, env.db.First(&reloaded, "id = ?", support.ID).Error)
	require.Equal(t, models.SupportOrder, reloaded.Status)
}

func TestSpendPartialThenComplete(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.createUser(t, models.RoleMerchant, "shop@example.com")
	backer := env.createUser(t, models.RoleCustomer, "buyer@example.com")
	campaign := env.createCampaign(t, merchant, "Fundable", models.AccessPublic)

	support := models.Support{
		CampaignID:    campaign.ID,
		BackerID:      backer.ID,
		InitialTokens: 50,
		Status:        models.SupportConfirmation,
	}
	require.NoError(t, env.db.Create(&support).Error)

	redeemPath := "/microcredit/redeem/" + merchant.ID.String() + "/" + campaign.ID.String() + "/" + support.ID.String()
	token := env.token(t, merchant)

	status, _ := env.request(t, http.MethodPost, redeemPath, token, map[string]any{"_tokens": 20})
	require.Equal(t, http.StatusOK, status)

	var reloaded models.Support
	require.NoError(t, env.db.First(&reloaded, "id = ?", support.ID).Error)
	require.Equal(t, 20.0, reloaded.RedeemedTokens)
	require.Equal(t, models.SupportConfirmation, reloaded.Status)

	status, _ = env.request(t, http.MethodPost, redeemPath, token, map[string]any{"_tokens": 30})
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, env.db.First(&reloaded, "id = ?", support.ID).Error)
	require.Equal(t, 50.0, reloaded.RedeemedTokens)
	require.Equal(t, models.SupportComplete, reloaded.Status)

	// A completed support cannot be spent from again.
	status, _ = env.request(t, http.MethodPost, redeemPath, token, map[string]any{"_tokens": 1})
	require.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestSpendRejectsOverdraw(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.createUser(t, models.RoleMerchant, "shop@example.com")
	backer := env.createUser(t, models.RoleCustomer, "buyer@example.com")
	campaign := env.createCampaign(t, merchant, "Fundable", models.AccessPublic)

	support := models.Support{
		CampaignID:    campaign.ID,
		BackerID:      backer.ID,
		InitialTokens: 50,
		Status:        models.SupportConfirmation,
	}
	require.NoError(t, env.db.Create(&support).Error)

	redeemPath := "/microcredit/redeem/" + merchant.ID.String() + "/" + campaign.ID.String() + "/" + support.ID.String()
	status, body := env.request(t, http.MethodPost, redeemPath, env.token(t, merchant), map[string]any{"_tokens": 60})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, "insufficient tokens", body["message"])

	var reloaded models.Support
	require.NoError(t, env.db.First(&reloaded, "id = ?", support.ID).Error)
	require.Zero(t, reloaded.RedeemedTokens)
}

func TestConfirmRequiresOwningMerchant(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.createUser(t, models.RoleMerchant, "shop@example.com")
	other := env.createUser(t, models.RoleMerchant, "other@example.com")
	backer := env.createUser(t, models.RoleCustomer, "buyer@example.com")
	campaign := env.createCampaign(t, merchant, "Fundable", models.AccessPublic)

	support := models.Support{
		CampaignID:    campaign.ID,
		BackerID:      backer.ID,
		InitialTokens: 50,
		Status:        models.SupportOrder,
	}
	require.NoError(t, env.db.Create(&support).Error)

	status, body := env.request(t, http.MethodPut, supportPath(merchant, campaign, support, "confirm"), env.token(t, other), nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "access denied", body["message"])
}
