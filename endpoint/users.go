package endpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/genesishealth/genesis-api/middleware"
	"github.com/genesishealth/genesis-api/model"
	"github.com/genesishealth/genesis-api/util"
)

type SignUpRequest struct {
	Name      string `json:"name" binding:"required" example:"John Doe"`
	Username  string `json:"username" binding:"required" example:"johndoe"`
	Email     string `json:"email" binding:"required,email" example:"john@example.com"`
	Password  string `json:"password" binding:"required,min=8" example:"secretpassword"`
	BirthDate string `json:"birth_date" binding:"required" example:"1990-04-21"`
	ProfileID uint   `json:"profile_id" binding:"required" example:"1"`
	Cedula    string `json:"cedula" example:"MED-12345"`
}

type SignInRequest struct {
	Username string `json:"username" binding:"required" example:"johndoe"`
	Password string `json:"password" binding:"required" example:"secretpassword"`
}

// identityTaken reports whether another active user already holds the
// username or email.
func identityTaken(db *gorm.DB, username, email string, excludeID uint) (bool, error) {
	var count int64
	err := db.Model(&model.User{}).
		Where("(username = ? OR email = ?) AND id <> ?", username, email, excludeID).
		Count(&count).Error
	return count > 0, err
}

// issueVerificationCode creates or refreshes the single verification code
// row for the user and returns the new code value. A refresh overwrites the
// code in place so the per-user uniqueness holds.
func issueVerificationCode(db *gorm.DB, userID uint) (string, error) {
	code, err := util.GenerateVerificationCode()
	if err != nil {
		return "", err
	}

	var existing model.VerificationCode
	err = db.Where("user_id = ?", userID).First(&existing).Error
	switch {
	case err == nil:
		existing.Code = code
		if err := db.Save(&existing).Error; err != nil {
			return "", err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Create(&model.VerificationCode{Code: code, UserID: userID}).Error; err != nil {
			return "", err
		}
	default:
		return "", err
	}
	return code, nil
}

// SignUp godoc
// @Summary      Register a new account
// @Description  Create a patient or doctor account in pending status and email a verification code
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        request body SignUpRequest true "Registration details"
// @Success      201 {object} util.APIResponse "Account created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      409 {object} util.APIResponse "Username or email already registered"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /user/sign_up [post]
func SignUp(c *gin.Context) {
	var req SignUpRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	req.Name = util.NormalizeName(req.Name)
	if !util.ValidDate(req.BirthDate) {
		util.CallError(c, util.APIErrorParams{
			Msg: "Birth date must be in YYYY-MM-DD format",
			Err: util.ErrInvalidRequestParameters,
		})
		return
	}
	if req.ProfileID != model.ProfilePatient && req.ProfileID != model.ProfileDoctor {
		util.CallError(c, util.APIErrorParams{
			Msg: "Profile must be patient or doctor",
			Err: util.ErrInvalidRequestParameters,
		})
		return
	}

	if req.ProfileID == model.ProfileDoctor && req.Cedula == "" {
		util.CallError(c, util.APIErrorParams{
			Msg: "Doctors must provide a license id",
			Err: util.ErrInvalidRequestParameters,
		})
		return
	}
	// Any supplied license id is checked against the registry, not just
	// doctors': a cedula never persists unverified.
	if req.Cedula != "" {
		match, err := util.VerifyDoctorLicense(c.Request.Context(), req.Name, req.Cedula)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "License registry unavailable", Err: err})
			return
		}
		if !match {
			util.CallError(c, util.APIErrorParams{
				Msg: "License id does not match the registry",
				Err: util.ErrIdentityValidationFailed,
			})
			return
		}
	}

	taken, err := identityTaken(db, req.Username, req.Email, 0)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to validate identity uniqueness", Err: err})
		return
	}
	if taken {
		util.CallError(c, util.APIErrorParams{
			Msg: "Username or email already registered",
			Err: util.ErrDuplicateIdentity,
		})
		return
	}

	salt, err := util.GenerateSalt()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to generate password salt", Err: err})
		return
	}
	hash, err := util.HashPassword(req.Password, salt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return
	}

	user := model.User{
		Name:          req.Name,
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hash,
		PasswordSalt:  salt,
		BirthDate:     req.BirthDate,
		Cedula:        req.Cedula,
		ProfileID:     req.ProfileID,
		AccountStatus: model.StatusPending,
	}

	var code string
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		code, err = issueVerificationCode(tx, user.ID)
		return err
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create account", Err: err})
		return
	}

	util.QueueMail(util.VerificationCodeMail(user.Email, user.Name, code))

	token, err := util.IssueToken(user)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to issue token", Err: err})
		return
	}

	util.LogAuditEvent(util.AuditEvent{
		EventType: util.EventSignupSuccess,
		UserID:    fmt.Sprintf("%d", user.ID),
		Email:     user.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   "Account registered, pending verification",
	})

	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg: "Account created. Check your email for the verification code.",
		Data: gin.H{
			"user":  user,
			"token": token,
		},
	})
}

// SignIn godoc
// @Summary      Sign in
// @Description  Exchange username and password for a bearer token
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        request body SignInRequest true "Credentials"
// @Success      200 {object} util.APIResponse "Signed in"
// @Failure      401 {object} util.APIResponse "Incorrect credentials"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /user/sign_in [post]
func SignIn(c *gin.Context) {
	var req SignInRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var user model.User
	err := db.Where("username = ? AND active = ?", req.Username, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.LogLoginFailure(req.Username, c.ClientIP(), c.Request.UserAgent(), "unknown username")
		util.CallError(c, util.APIErrorParams{Msg: "Incorrect credentials", Err: util.ErrIncorrectCredentials})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to look up user", Err: err})
		return
	}

	match, err := util.VerifyPassword(req.Password, user.PasswordHash, user.PasswordSalt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to verify password", Err: err})
		return
	}
	if !match {
		util.LogLoginFailure(req.Username, c.ClientIP(), c.Request.UserAgent(), "wrong password")
		util.CallError(c, util.APIErrorParams{Msg: "Incorrect credentials", Err: util.ErrIncorrectCredentials})
		return
	}

	if !user.IsVerified() {
		// Pending accounts authenticate through the token issued at sign-up;
		// the credential response does not reveal the account's existence.
		util.LogLoginFailure(req.Username, c.ClientIP(), c.Request.UserAgent(), "account pending verification")
		util.CallError(c, util.APIErrorParams{Msg: "Incorrect credentials", Err: util.ErrIncorrectCredentials})
		return
	}

	token, err := util.IssueToken(user)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to issue token", Err: err})
		return
	}

	util.LogLoginSuccess(user.ID, user.Email, c.ClientIP(), c.Request.UserAgent())

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Signed in successfully",
		Data: gin.H{
			"token": token,
			"user":  user,
		},
	})
}

// SignOut godoc
// @Summary      Sign out
// @Description  Revoke the presented token for the remainder of its lifetime
// @Tags         Users
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200 {object} util.APIResponse "Signed out"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Router       /user/sign_out [get]
func SignOut(c *gin.Context) {
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	token := middleware.CurrentToken(c)
	_, exp, err := util.ParseToken(token)
	if err != nil {
		util.CallError(c, util.APIErrorParams{Msg: "Authentication required", Err: err})
		return
	}

	if err := util.RevokeToken(c.Request.Context(), token, time.Until(exp)); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to revoke token", Err: err})
		return
	}

	util.LogAuditEvent(util.AuditEvent{
		EventType: util.EventSignOut,
		UserID:    fmt.Sprintf("%d", user.ID),
		Email:     user.Email,
		IP:        c.ClientIP(),
		Message:   "User signed out",
	})

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Signed out successfully"})
}

// Me godoc
// @Summary      Current user profile
// @Tags         Users
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200 {object} util.APIResponse "Profile"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Router       /user/me [get]
func Me(c *gin.Context) {
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Current user", Data: user})
}

type UpdateUserRequest struct {
	Name            string `json:"name" example:"John Doe"`
	Username        string `json:"username" example:"johndoe2"`
	Email           string `json:"email" example:"john@example.com"`
	BirthDate       string `json:"birth_date" example:"1990-04-21"`
	CurrentPassword string `json:"current_password" binding:"required" example:"secretpassword"`
}

// UpdateUser godoc
// @Summary      Update profile fields
// @Description  Partial update of name, username, email or birth date; requires the current password
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body UpdateUserRequest true "Fields to update"
// @Success      200 {object} util.APIResponse "Updated"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      401 {object} util.APIResponse "Wrong password"
// @Failure      409 {object} util.APIResponse "Username or email already registered"
// @Router       /user [patch]
func UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}

	if req.Name == "" && req.Username == "" && req.Email == "" && req.BirthDate == "" {
		util.CallError(c, util.APIErrorParams{
			Msg: "At least one field must be provided",
			Err: util.ErrInvalidRequestParameters,
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	match, err := util.VerifyPassword(req.CurrentPassword, user.PasswordHash, user.PasswordSalt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to verify password", Err: err})
		return
	}
	if !match {
		util.CallError(c, util.APIErrorParams{Msg: "Incorrect credentials", Err: util.ErrIncorrectCredentials})
		return
	}

	if req.BirthDate != "" {
		if !util.ValidDate(req.BirthDate) {
			util.CallError(c, util.APIErrorParams{
				Msg: "Birth date must be in YYYY-MM-DD format",
				Err: util.ErrInvalidRequestParameters,
			})
			return
		}
		user.BirthDate = req.BirthDate
	}

	newUsername := user.Username
	newEmail := user.Email
	if req.Username != "" {
		newUsername = req.Username
	}
	if req.Email != "" {
		newEmail = req.Email
	}
	if newUsername != user.Username || newEmail != user.Email {
		taken, err := identityTaken(db, newUsername, newEmail, user.ID)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to validate identity uniqueness", Err: err})
			return
		}
		if taken {
			util.CallError(c, util.APIErrorParams{
				Msg: "Username or email already registered",
				Err: util.ErrDuplicateIdentity,
			})
			return
		}
		user.Username = newUsername
		user.Email = newEmail
	}

	if req.Name != "" {
		name := util.NormalizeName(req.Name)
		if user.IsDoctor() && name != user.Name {
			// A doctor's name must keep matching the license registry entry.
			match, err := util.VerifyDoctorLicense(c.Request.Context(), name, user.Cedula)
			if err != nil {
				util.CallServerError(c, util.APIErrorParams{Msg: "License registry unavailable", Err: err})
				return
			}
			if !match {
				util.CallError(c, util.APIErrorParams{
					Msg: "New name does not match the license registry",
					Err: util.ErrIdentityValidationFailed,
				})
				return
			}
		}
		user.Name = name
	}

	if err := db.Save(&user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update user", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User updated successfully", Data: user})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required" example:"secretpassword"`
	NewPassword     string `json:"new_password" binding:"required,min=8" example:"evenmoresecret"`
}

// ChangePassword godoc
// @Summary      Change password
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body ChangePasswordRequest true "Password change"
// @Success      200 {object} util.APIResponse "Password changed"
// @Failure      401 {object} util.APIResponse "Wrong current password"
// @Router       /user/password [patch]
func ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	match, err := util.VerifyPassword(req.CurrentPassword, user.PasswordHash, user.PasswordSalt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to verify password", Err: err})
		return
	}
	if !match {
		util.CallError(c, util.APIErrorParams{Msg: "Incorrect credentials", Err: util.ErrIncorrectCredentials})
		return
	}

	salt, err := util.GenerateSalt()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to generate password salt", Err: err})
		return
	}
	hash, err := util.HashPassword(req.NewPassword, salt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return
	}

	user.PasswordHash = hash
	user.PasswordSalt = salt
	if err := db.Save(&user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to change password", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Password changed successfully"})
}

// DeactivateUser godoc
// @Summary      Deactivate the current account
// @Description  Soft-deletes the account and revokes the presented token
// @Tags         Users
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200 {object} util.APIResponse "Account deactivated"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Router       /user [delete]
func DeactivateUser(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	if err := db.Model(&model.User{}).Where("id = ?", user.ID).Update("active", false).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to deactivate account", Err: err})
		return
	}

	token := middleware.CurrentToken(c)
	if _, exp, err := util.ParseToken(token); err == nil {
		_ = util.RevokeToken(c.Request.Context(), token, time.Until(exp))
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Account deactivated"})
}

// GetUserByUsername godoc
// @Summary      Look up a user's public identity by username
// @Tags         Users
// @Produce      json
// @Security     ApiKeyAuth
// @Param        username query string true "Username"
// @Success      200 {object} util.APIResponse "User"
// @Failure      404 {object} util.APIResponse "User not found"
// @Router       /user [get]
func GetUserByUsername(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		util.CallError(c, util.APIErrorParams{
			Msg: "Username query parameter is required",
			Err: util.ErrInvalidRequestParameters,
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var user model.User
	err := db.Where("username = ? AND active = ?", username, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.CallError(c, util.APIErrorParams{Msg: "User not found", Err: util.ErrUserNotFound})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to look up user", Err: err})
		return
	}

	// Public identity only.
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User found", Data: gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"username":   user.Username,
		"profile_id": user.ProfileID,
	}})
}

// GetPatients godoc
// @Summary      List the doctor's associated patients
// @Tags         Users
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200 {object} util.APIResponse "Patients"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Router       /user/patients [get]
func GetPatients(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	var patients []model.User
	err := db.Joins("JOIN doctor_patient_associations a ON a.patient_id = users.id").
		Where("a.doctor_id = ? AND a.active = ? AND users.active = ?", user.ID, true, true).
		Find(&patients).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list patients", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Associated patients", Data: patients})
}
