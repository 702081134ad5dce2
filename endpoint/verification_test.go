package endpoint

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/genesishealth/genesis-api/model"
)

func TestVerifyIdentityActivatesAccount(t *testing.T) {
	r, db := setupEndpointTest(t)
	user, token := createUser(t, db, model.ProfilePatient, model.StatusPending)

	code := model.VerificationCode{Code: "04217", UserID: user.ID}
	assert.NoError(t, db.Create(&code).Error)

	w := doRequest(t, r, http.MethodPost, "/user/verify_identity", VerifyIdentityRequest{Code: "04217"}, token)
	assert.Equal(t, http.StatusOK, w.Code)

	var updated model.User
	assert.NoError(t, db.First(&updated, user.ID).Error)
	assert.Equal(t, model.StatusActive, updated.AccountStatus)

	// The code row is consumed, not just marked.
	var count int64
	db.Model(&model.VerificationCode{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestVerifyIdentityWrongCode(t *testing.T) {
	r, db := setupEndpointTest(t)
	user, token := createUser(t, db, model.ProfilePatient, model.StatusPending)

	code := model.VerificationCode{Code: "04217", UserID: user.ID}
	assert.NoError(t, db.Create(&code).Error)

	w := doRequest(t, r, http.MethodPost, "/user/verify_identity", VerifyIdentityRequest{Code: "99999"}, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Account stays pending and the code stays consumable.
	var updated model.User
	assert.NoError(t, db.First(&updated, user.ID).Error)
	assert.Equal(t, model.StatusPending, updated.AccountStatus)

	var count int64
	db.Model(&model.VerificationCode{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestVerifyIdentityExpiredCode(t *testing.T) {
	r, db := setupEndpointTest(t)
	user, token := createUser(t, db, model.ProfilePatient, model.StatusPending)

	code := model.VerificationCode{Code: "04217", UserID: user.ID}
	assert.NoError(t, db.Create(&code).Error)

	stale := time.Now().Add(-2 * model.VerificationCodeTTL)
	assert.NoError(t, db.Model(&code).UpdateColumn("updated_at", stale).Error)

	w := doRequest(t, r, http.MethodPost, "/user/verify_identity", VerifyIdentityRequest{Code: "04217"}, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var updated model.User
	assert.NoError(t, db.First(&updated, user.ID).Error)
	assert.Equal(t, model.StatusPending, updated.AccountStatus)
}

func TestVerifyIdentityNoOutstandingCode(t *testing.T) {
	r, db := setupEndpointTest(t)
	_, token := createUser(t, db, model.ProfilePatient, model.StatusPending)

	w := doRequest(t, r, http.MethodPost, "/user/verify_identity", VerifyIdentityRequest{Code: "04217"}, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyIdentityAlreadyVerified(t *testing.T) {
	r, db := setupEndpointTest(t)
	_, token := createPatient(t, db)

	w := doRequest(t, r, http.MethodPost, "/user/verify_identity", VerifyIdentityRequest{Code: "04217"}, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResendVerificationCodeRefreshesInPlace(t *testing.T) {
	r, db := setupEndpointTest(t)
	user, token := createUser(t, db, model.ProfilePatient, model.StatusPending)

	code := model.VerificationCode{Code: "04217", UserID: user.ID}
	assert.NoError(t, db.Create(&code).Error)
	stale := time.Now().Add(-2 * model.VerificationCodeTTL)
	assert.NoError(t, db.Model(&code).UpdateColumn("updated_at", stale).Error)

	w := doRequest(t, r, http.MethodGet, "/user/resend_verification_code", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	// Still one row per user; the value and expiry are fresh.
	var codes []model.VerificationCode
	db.Where("user_id = ?", user.ID).Find(&codes)
	assert.Len(t, codes, 1)
	assert.Equal(t, code.ID, codes[0].ID)
	assert.False(t, codes[0].IsExpired(time.Now()))
}

func TestResendVerificationCodeCreatesRowWhenMissing(t *testing.T) {
	r, db := setupEndpointTest(t)
	user, token := createUser(t, db, model.ProfilePatient, model.StatusPending)

	w := doRequest(t, r, http.MethodGet, "/user/resend_verification_code", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&model.VerificationCode{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}
