package endpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/genesishealth/genesis-api/model"
	"github.com/genesishealth/genesis-api/util"
)

type VerifyIdentityRequest struct {
	Code string `json:"code" binding:"required" example:"04217"`
}

// VerifyIdentity godoc
// @Summary      Consume a verification code
// @Description  Activates a pending account when the presented code matches and has not expired
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body VerifyIdentityRequest true "Verification code"
// @Success      200 {object} util.APIResponse "Account verified"
// @Failure      401 {object} util.APIResponse "Invalid or expired code"
// @Router       /user/verify_identity [post]
func VerifyIdentity(c *gin.Context) {
	var req VerifyIdentityRequest
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

	if user.IsVerified() {
		util.CallSuccessOK(c, util.APISuccessParams{Msg: "Account is already verified"})
		return
	}

	var code model.VerificationCode
	err := db.Where("user_id = ?", user.ID).First(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.CallError(c, util.APIErrorParams{
			Msg: "No verification code outstanding. Request a new one.",
			Err: util.ErrInvalidVerificationCode,
		})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to look up verification code", Err: err})
		return
	}

	if code.IsExpired(time.Now()) || code.Code != req.Code {
		util.LogAuditEvent(util.AuditEvent{
			EventType: util.EventVerificationFailure,
			UserID:    fmt.Sprintf("%d", user.ID),
			Email:     user.Email,
			IP:        c.ClientIP(),
			Message:   "Verification code rejected",
		})
		util.CallError(c, util.APIErrorParams{
			Msg: "Verification code is invalid or has expired",
			Err: util.ErrInvalidVerificationCode,
		})
		return
	}

	// Consuming the code and activating the account move together; a crash
	// between the two must not leave a pending account without a code.
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.VerificationCode{}, code.ID).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).Where("id = ?", user.ID).
			Update("account_status", model.StatusActive).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to verify account", Err: err})
		return
	}

	util.LogAuditEvent(util.AuditEvent{
		EventType: util.EventAccountVerified,
		UserID:    fmt.Sprintf("%d", user.ID),
		Email:     user.Email,
		IP:        c.ClientIP(),
		Message:   "Account verified successfully",
	})

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Account verified successfully"})
}

// ResendVerificationCode godoc
// @Summary      Resend the verification code
// @Description  Regenerates the pending account's code in place and emails it again
// @Tags         Users
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200 {object} util.APIResponse "Code resent"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Router       /user/resend_verification_code [get]
func ResendVerificationCode(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	if user.IsVerified() {
		util.CallSuccessOK(c, util.APISuccessParams{Msg: "Account is already verified"})
		return
	}

	code, err := issueVerificationCode(db, user.ID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to regenerate verification code", Err: err})
		return
	}

	util.QueueMail(util.VerificationCodeMail(user.Email, user.Name, code))

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Verification code resent"})
}
