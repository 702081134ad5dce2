package endpoint

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/genesishealth/genesis-api/model"
	"github.com/genesishealth/genesis-api/util"
)

func TestSignUpCreatesPendingPatient(t *testing.T) {
	r, db := setupEndpointTest(t)

	w := doRequest(t, r, http.MethodPost, "/user/sign_up", SignUpRequest{
		Name:      "  Jane   Doe ",
		Username:  "janedoe",
		Email:     "jane@example.com",
		Password:  "secretpassword",
		BirthDate: "1990-04-21",
		ProfileID: model.ProfilePatient,
	}, "")

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])

	var user model.User
	assert.NoError(t, db.Where("username = ?", "janedoe").First(&user).Error)
	assert.Equal(t, model.StatusPending, user.AccountStatus)
	assert.Equal(t, "Jane Doe", user.Name)

	// A verification code row was issued alongside the account.
	var code model.VerificationCode
	assert.NoError(t, db.Where("user_id = ?", user.ID).First(&code).Error)
	assert.Len(t, code.Code, 5)
}

func TestSignUpDuplicateIdentity(t *testing.T) {
	r, db := setupEndpointTest(t)
	existing, _ := createPatient(t, db)

	w := doRequest(t, r, http.MethodPost, "/user/sign_up", SignUpRequest{
		Name:      "Someone Else",
		Username:  existing.Username,
		Email:     "different@example.com",
		Password:  "secretpassword",
		BirthDate: "1985-01-01",
		ProfileID: model.ProfilePatient,
	}, "")

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSignUpRejectsBadBirthDate(t *testing.T) {
	r, _ := setupEndpointTest(t)

	w := doRequest(t, r, http.MethodPost, "/user/sign_up", SignUpRequest{
		Name:      "Jane Doe",
		Username:  "janedoe",
		Email:     "jane@example.com",
		Password:  "secretpassword",
		BirthDate: "21-04-1990",
		ProfileID: model.ProfilePatient,
	}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignUpDoctorLicenseChecked(t *testing.T) {
	r, db := setupEndpointTest(t)

	util.SetLicenseVerifier(&util.StaticLicenseVerifier{Match: false})
	w := doRequest(t, r, http.MethodPost, "/user/sign_up", SignUpRequest{
		Name:      "Gregory House",
		Username:  "ghouse",
		Email:     "house@example.com",
		Password:  "secretpassword",
		BirthDate: "1959-06-11",
		ProfileID: model.ProfileDoctor,
		Cedula:    "MED-12345",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	util.SetLicenseVerifier(&util.StaticLicenseVerifier{Match: true})
	defer util.SetLicenseVerifier(&util.StaticLicenseVerifier{Match: false})

	w = doRequest(t, r, http.MethodPost, "/user/sign_up", SignUpRequest{
		Name:      "Gregory House",
		Username:  "ghouse",
		Email:     "house@example.com",
		Password:  "secretpassword",
		BirthDate: "1959-06-11",
		ProfileID: model.ProfileDoctor,
		Cedula:    "MED-12345",
	}, "")
	assert.Equal(t, http.StatusCreated, w.Code)

	var doctor model.User
	assert.NoError(t, db.Where("username = ?", "ghouse").First(&doctor).Error)
	assert.True(t, doctor.IsDoctor())
}

func TestSignUpPatientCedulaChecked(t *testing.T) {
	r, db := setupEndpointTest(t)

	// A license id on a patient account still has to match the registry.
	util.SetLicenseVerifier(&util.StaticLicenseVerifier{Match: false})
	w := doRequest(t, r, http.MethodPost, "/user/sign_up", SignUpRequest{
		Name:      "Lisa Cuddy",
		Username:  "lcuddy",
		Email:     "cuddy@example.com",
		Password:  "secretpassword",
		BirthDate: "1968-03-25",
		ProfileID: model.ProfilePatient,
		Cedula:    "MED-99999",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	assert.NoError(t, db.Model(&model.User{}).Where("username = ?", "lcuddy").Count(&count).Error)
	assert.Zero(t, count)

	util.SetLicenseVerifier(&util.StaticLicenseVerifier{Match: true})
	defer util.SetLicenseVerifier(&util.StaticLicenseVerifier{Match: false})

	w = doRequest(t, r, http.MethodPost, "/user/sign_up", SignUpRequest{
		Name:      "Lisa Cuddy",
		Username:  "lcuddy",
		Email:     "cuddy@example.com",
		Password:  "secretpassword",
		BirthDate: "1968-03-25",
		ProfileID: model.ProfilePatient,
		Cedula:    "MED-99999",
	}, "")
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSignUpDoctorRequiresCedula(t *testing.T) {
	r, _ := setupEndpointTest(t)

	w := doRequest(t, r, http.MethodPost, "/user/sign_up", SignUpRequest{
		Name:      "Gregory House",
		Username:  "ghouse",
		Email:     "house@example.com",
		Password:  "secretpassword",
		BirthDate: "1959-06-11",
		ProfileID: model.ProfileDoctor,
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignInSuccess(t *testing.T) {
	r, db := setupEndpointTest(t)
	user, _ := createPatient(t, db)

	w := doRequest(t, r, http.MethodPost, "/user/sign_in", SignInRequest{
		Username: user.Username,
		Password: "secretpassword",
	}, "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse(t, w)
	data := resp["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])
}

func TestSignInWrongPassword(t *testing.T) {
	r, db := setupEndpointTest(t)
	user, _ := createPatient(t, db)

	w := doRequest(t, r, http.MethodPost, "/user/sign_in", SignInRequest{
		Username: user.Username,
		Password: "wrongpassword",
	}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignInUnknownUser(t *testing.T) {
	r, _ := setupEndpointTest(t)

	w := doRequest(t, r, http.MethodPost, "/user/sign_in", SignInRequest{
		Username: "ghost",
		Password: "whatever",
	}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignInPendingAccountRejected(t *testing.T) {
	r, db := setupEndpointTest(t)
	user, _ := createUser(t, db, model.ProfilePatient, model.StatusPending)

	w := doRequest(t, r, http.MethodPost, "/user/sign_in", SignInRequest{
		Username: user.Username,
		Password: "secretpassword",
	}, "")

	// Indistinguishable from wrong credentials.
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeReturnsCurrentUser(t *testing.T) {
	r, db := setupEndpointTest(t)
	user, token := createPatient(t, db)

	w := doRequest(t, r, http.MethodGet, "/user/me", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, user.Username, data["username"])
	// Credential material never leaves the API.
	assert.NotContains(t, data, "password_hash")
	assert.NotContains(t, data, "password_salt")
}

func TestUpdateUserRequiresCurrentPassword(t *testing.T) {
	r, db := setupEndpointTest(t)
	_, token := createPatient(t, db)

	w := doRequest(t, r, http.MethodPatch, "/user", UpdateUserRequest{
		Name:            "New Name",
		CurrentPassword: "wrongpassword",
	}, token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateUserChangesFields(t *testing.T) {
	r, db := setupEndpointTest(t)
	user, token := createPatient(t, db)

	w := doRequest(t, r, http.MethodPatch, "/user", UpdateUserRequest{
		Name:            "  Renamed   Person ",
		Email:           "renamed@example.com",
		CurrentPassword: "secretpassword",
	}, token)
	assert.Equal(t, http.StatusOK, w.Code)

	var updated model.User
	assert.NoError(t, db.First(&updated, user.ID).Error)
	assert.Equal(t, "Renamed Person", updated.Name)
	assert.Equal(t, "renamed@example.com", updated.Email)
}

func TestUpdateUserDuplicateEmail(t *testing.T) {
	r, db := setupEndpointTest(t)
	other, _ := createPatient(t, db)
	_, token := createPatient(t, db)

	w := doRequest(t, r, http.MethodPatch, "/user", UpdateUserRequest{
		Email:           other.Email,
		CurrentPassword: "secretpassword",
	}, token)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestChangePassword(t *testing.T) {
	r, db := setupEndpointTest(t)
	user, token := createPatient(t, db)

	w := doRequest(t, r, http.MethodPatch, "/user/password", ChangePasswordRequest{
		CurrentPassword: "secretpassword",
		NewPassword:     "evenmoresecret",
	}, token)
	assert.Equal(t, http.StatusOK, w.Code)

	// Old password no longer signs in; new one does.
	w = doRequest(t, r, http.MethodPost, "/user/sign_in", SignInRequest{
		Username: user.Username,
		Password: "secretpassword",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, r, http.MethodPost, "/user/sign_in", SignInRequest{
		Username: user.Username,
		Password: "evenmoresecret",
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeactivateUser(t *testing.T) {
	r, db := setupEndpointTest(t)
	user, token := createPatient(t, db)

	w := doRequest(t, r, http.MethodDelete, "/user", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	var updated model.User
	assert.NoError(t, db.First(&updated, user.ID).Error)
	assert.False(t, updated.Active)

	// The token now resolves to no live account.
	w = doRequest(t, r, http.MethodGet, "/user/me", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPatientsListsAssociated(t *testing.T) {
	r, db := setupEndpointTest(t)
	doctor, token := createDoctor(t, db)
	patientA, _ := createPatient(t, db)
	patientB, _ := createPatient(t, db)
	stranger, _ := createPatient(t, db)

	associate(t, db, doctor, patientA)
	associate(t, db, doctor, patientB)

	w := doRequest(t, r, http.MethodGet, "/user/patients", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse(t, w)
	patients := resp["data"].([]interface{})
	assert.Len(t, patients, 2)
	for _, p := range patients {
		username := p.(map[string]interface{})["username"]
		assert.NotEqual(t, stranger.Username, username)
	}
}

func TestGetUserByUsername(t *testing.T) {
	r, db := setupEndpointTest(t)
	target, _ := createPatient(t, db)
	_, token := createPatient(t, db)

	w := doRequest(t, r, http.MethodGet, "/user?username="+target.Username, nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, target.Username, data["username"])
	// Only the public identity travels: no email, no status.
	assert.NotContains(t, data, "email")
	assert.NotContains(t, data, "account_status")

	w = doRequest(t, r, http.MethodGet, "/user?username=ghost", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, r, http.MethodGet, "/user", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPatientsRejectsPatientCaller(t *testing.T) {
	r, db := setupEndpointTest(t)
	_, token := createPatient(t, db)

	w := doRequest(t, r, http.MethodGet, "/user/patients", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
