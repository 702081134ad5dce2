package endpoint

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/genesishealth/genesis-api/middleware"
	"github.com/genesishealth/genesis-api/model"
	"github.com/genesishealth/genesis-api/util"
)

// bindJSONOrRespond binds the JSON body into req and responds with 400 on
// failure. Returns false when the handler should stop.
func bindJSONOrRespond(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		util.CallError(c, util.APIErrorParams{
			Msg: "Invalid request payload",
			Err: fmt.Errorf("%w: %v", util.ErrInvalidRequestParameters, err),
		})
		return false
	}
	return true
}

// getDBOrRespond fetches the request-scoped DB handle and responds with 500
// when it is missing.
func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db, err := middleware.GetDB(c)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: err})
		return nil, false
	}
	return db, true
}

// currentUserOrRespond fetches the authenticated user and responds with 401
// when the auth middleware did not run.
func currentUserOrRespond(c *gin.Context) (model.User, bool) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		util.CallError(c, util.APIErrorParams{Msg: "User not authenticated", Err: util.ErrTokenMissing})
		return model.User{}, false
	}
	return user, true
}

// findAssociation returns the association edge between doctor and patient,
// or util.ErrAssociationNotFound when no edge exists.
func findAssociation(db *gorm.DB, doctorID, patientID uint) (model.DoctorPatientAssociation, error) {
	var assoc model.DoctorPatientAssociation
	err := db.Where("doctor_id = ? AND patient_id = ? AND active = ?", doctorID, patientID, true).
		First(&assoc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return assoc, util.ErrAssociationNotFound
	}
	return assoc, err
}
