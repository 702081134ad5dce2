package endpoint

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/genesishealth/genesis-api/model"
	"github.com/genesishealth/genesis-api/util"
)

type CreateAssociationRequest struct {
	PatientUsername string `json:"patient_username" binding:"required" example:"janedoe"`
}

// AssociationView is the association edge expanded with the counterpart's
// public identity.
type AssociationView struct {
	ID        uint   `json:"id"`
	DoctorID  uint   `json:"doctor_id"`
	PatientID uint   `json:"patient_id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// CreateAssociation godoc
// @Summary      Associate a patient with the calling doctor
// @Description  Creates the directional doctor-to-patient edge by patient username
// @Tags         Associations
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body CreateAssociationRequest true "Patient to associate"
// @Success      201 {object} util.APIResponse "Association created"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      409 {object} util.APIResponse "Association already exists"
// @Router       /associations [post]
func CreateAssociation(c *gin.Context) {
	var req CreateAssociationRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doctor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	var patient model.User
	err := db.Where("username = ? AND profile_id = ? AND active = ?",
		req.PatientUsername, model.ProfilePatient, true).First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.CallError(c, util.APIErrorParams{Msg: "Patient not found", Err: util.ErrUserNotFound})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to look up patient", Err: err})
		return
	}

	if _, err := findAssociation(db, doctor.ID, patient.ID); err == nil {
		util.CallError(c, util.APIErrorParams{
			Msg: "Patient is already associated with this doctor",
			Err: util.ErrAssociationExists,
		})
		return
	} else if !errors.Is(err, util.ErrAssociationNotFound) {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check association", Err: err})
		return
	}

	assoc := model.DoctorPatientAssociation{DoctorID: doctor.ID, PatientID: patient.ID}
	if err := db.Create(&assoc).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create association", Err: err})
		return
	}

	util.QueueMail(util.AssociationNoticeMail(patient.Email, patient.Name, doctor.Name))

	util.LogAuditEvent(util.AuditEvent{
		EventType: util.EventAssociationCreated,
		UserID:    fmt.Sprintf("%d", doctor.ID),
		IP:        c.ClientIP(),
		Message:   fmt.Sprintf("Doctor %d associated patient %d", doctor.ID, patient.ID),
	})

	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Association created", Data: assoc})
}

// ListAssociations godoc
// @Summary      List associations for the current user
// @Description  Doctors see their patients; patients see their doctors
// @Tags         Associations
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200 {object} util.APIResponse "Associations"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Router       /associations [get]
func ListAssociations(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	query := db.Table("doctor_patient_associations a").
		Select("a.id, a.doctor_id, a.patient_id, u.name, u.username, u.email").
		Where("a.active = ? AND u.active = ?", true, true)

	if user.IsDoctor() {
		query = query.Joins("JOIN users u ON u.id = a.patient_id").
			Where("a.doctor_id = ?", user.ID)
	} else {
		query = query.Joins("JOIN users u ON u.id = a.doctor_id").
			Where("a.patient_id = ?", user.ID)
	}

	var views []AssociationView
	if err := query.Scan(&views).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list associations", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Associations", Data: views})
}
