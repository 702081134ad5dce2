package endpoint

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/genesishealth/genesis-api/model"
	"github.com/genesishealth/genesis-api/util"
)

type PrescriptionRequest struct {
	Treatment      string `json:"treatment" binding:"required" example:"Amoxicillin"`
	Dosage         string `json:"dosage" binding:"required" example:"500mg"`
	FrequencyValue int    `json:"frequency_value" binding:"required" example:"8"`
	FrequencyUnit  string `json:"frequency_unit" binding:"required" example:"hours"`
	StartDate      string `json:"start_date" binding:"required" example:"2026-03-01"`
	EndDate        string `json:"end_date" example:"2026-03-10"`
	Notify         bool   `json:"notify"`
}

type CreateReportRequest struct {
	PatientID        uint                  `json:"patient_id" binding:"required" example:"4"`
	Observation      string                `json:"observation" example:"Patient presents mild fever"`
	Diagnostic       string                `json:"diagnostic" example:"Acute pharyngitis"`
	Symptoms         string                `json:"symptoms" example:"fever, sore throat"`
	PrivateNotes     string                `json:"private_notes" example:"consider second opinion"`
	NextAppointment  string                `json:"next_appointment" binding:"required" example:"2026-03-15"`
	FollowUpRequired bool                  `json:"follow_up_required"`
	Prescriptions    []PrescriptionRequest `json:"prescriptions"`
	ImageIDs         []uint                `json:"image_ids"`
}

// findOrCreatePrescription links an existing prescription row when the
// (treatment, dosage, frequency, start date) tuple already exists, so the
// same course of treatment is shared between reports instead of duplicated.
func findOrCreatePrescription(tx *gorm.DB, req PrescriptionRequest) (model.Prescription, error) {
	var p model.Prescription
	err := tx.Where(
		"treatment = ? AND dosage = ? AND frequency_value = ? AND frequency_unit = ? AND start_date = ?",
		req.Treatment, req.Dosage, req.FrequencyValue, req.FrequencyUnit, req.StartDate,
	).First(&p).Error
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return p, err
	}

	p = model.Prescription{
		Treatment:      req.Treatment,
		Dosage:         req.Dosage,
		FrequencyValue: req.FrequencyValue,
		FrequencyUnit:  req.FrequencyUnit,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Notify:         req.Notify,
	}
	return p, tx.Create(&p).Error
}

// reportExists reports whether the association already has a report for the
// given appointment date, optionally excluding one report id.
func reportExists(db *gorm.DB, associationID uint, appointment string, excludeID uint) (bool, error) {
	var count int64
	err := db.Model(&model.MedicalHistory{}).
		Where("association_id = ? AND next_appointment = ? AND id <> ?", associationID, appointment, excludeID).
		Count(&count).Error
	return count > 0, err
}

// CreateReport godoc
// @Summary      File a clinical report
// @Description  Creates a medical history entry with prescriptions and image links in one transaction
// @Tags         MedicalHistory
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body CreateReportRequest true "Report"
// @Success      201 {object} util.APIResponse "Report created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      404 {object} util.APIResponse "No association with that patient"
// @Failure      409 {object} util.APIResponse "Report already exists for that appointment date"
// @Router       /medical_history [post]
func CreateReport(c *gin.Context) {
	var req CreateReportRequest
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

	if !util.ValidDate(req.NextAppointment) {
		util.CallError(c, util.APIErrorParams{
			Msg: "Next appointment must be in YYYY-MM-DD format",
			Err: util.ErrInvalidRequestParameters,
		})
		return
	}
	for _, p := range req.Prescriptions {
		if !util.ValidDate(p.StartDate) || (p.EndDate != "" && !util.ValidDate(p.EndDate)) {
			util.CallError(c, util.APIErrorParams{
				Msg: "Prescription dates must be in YYYY-MM-DD format",
				Err: util.ErrInvalidRequestParameters,
			})
			return
		}
	}

	assoc, err := findAssociation(db, doctor.ID, req.PatientID)
	if errors.Is(err, util.ErrAssociationNotFound) {
		util.CallError(c, util.APIErrorParams{Msg: "No association with that patient", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check association", Err: err})
		return
	}

	exists, err := reportExists(db, assoc.ID, req.NextAppointment, 0)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check for duplicate report", Err: err})
		return
	}
	if exists {
		util.CallError(c, util.APIErrorParams{
			Msg: "A report already exists for that appointment date",
			Err: util.ErrDuplicateReport,
		})
		return
	}

	history := model.MedicalHistory{
		AssociationID:    assoc.ID,
		Observation:      req.Observation,
		Diagnostic:       req.Diagnostic,
		Symptoms:         req.Symptoms,
		PrivateNotes:     req.PrivateNotes,
		NextAppointment:  req.NextAppointment,
		FollowUpRequired: req.FollowUpRequired,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, pr := range req.Prescriptions {
			p, err := findOrCreatePrescription(tx, pr)
			if err != nil {
				return err
			}
			history.Prescriptions = append(history.Prescriptions, p)
		}

		for _, imageID := range req.ImageIDs {
			var userImage model.UserImage
			err := tx.Where("id = ? AND user_id = ?", imageID, req.PatientID).First(&userImage).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: image %d does not belong to the patient", util.ErrImageNotFound, imageID)
			}
			if err != nil {
				return err
			}
			history.Images = append(history.Images, userImage)
		}

		return tx.Create(&history).Error
	})
	if err != nil {
		if errors.Is(err, util.ErrImageNotFound) {
			util.CallError(c, util.APIErrorParams{Msg: "Image not found for patient", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create report", Err: err})
		return
	}

	util.LogAuditEvent(util.AuditEvent{
		EventType: util.EventReportCreated,
		UserID:    fmt.Sprintf("%d", doctor.ID),
		IP:        c.ClientIP(),
		Message:   fmt.Sprintf("Report %d filed for association %d", history.ID, assoc.ID),
	})

	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Report created", Data: history})
}

// GetPatientReports godoc
// @Summary      List a patient's reports for the calling doctor
// @Tags         MedicalHistory
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Patient id"
// @Success      200 {object} util.APIResponse "Reports"
// @Failure      404 {object} util.APIResponse "No association with that patient"
// @Router       /medical_history/patient/{id} [get]
func GetPatientReports(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	doctor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	patientID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		util.CallError(c, util.APIErrorParams{Msg: "Invalid patient id", Err: util.ErrInvalidRequestParameters})
		return
	}

	assoc, err := findAssociation(db, doctor.ID, uint(patientID))
	if errors.Is(err, util.ErrAssociationNotFound) {
		util.CallError(c, util.APIErrorParams{Msg: "No association with that patient", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check association", Err: err})
		return
	}

	var reports []model.MedicalHistory
	err = db.Preload("Images.Image").Preload("Images.Diagnostics").Preload("Prescriptions").
		Where("association_id = ? AND active = ?", assoc.ID, true).
		Order("next_appointment").
		Find(&reports).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list reports", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Patient reports", Data: reports})
}

// GetOwnReports godoc
// @Summary      List the calling patient's own reports
// @Description  Returns reports across all the patient's doctors; private notes are omitted
// @Tags         MedicalHistory
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200 {object} util.APIResponse "Reports"
// @Router       /medical_history/mine [get]
func GetOwnReports(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	patient, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	var reports []model.MedicalHistory
	err := db.Preload("Images.Image").Preload("Images.Diagnostics").Preload("Prescriptions").
		Joins("JOIN doctor_patient_associations a ON a.id = medical_histories.association_id").
		Where("a.patient_id = ? AND a.active = ? AND medical_histories.active = ?", patient.ID, true, true).
		Order("medical_histories.next_appointment").
		Find(&reports).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list reports", Err: err})
		return
	}

	// Private notes are the doctor's working notes and never leave the
	// doctor's side.
	for i := range reports {
		reports[i].PrivateNotes = ""
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Your reports", Data: reports})
}

type PatientFeedbackRequest struct {
	Feedback string `json:"feedback" binding:"required" example:"Fever is gone after two days"`
}

// reportForPatient loads a report only when the caller is the patient side
// of its association. Unauthorized access is indistinguishable from a
// missing record.
func reportForPatient(db *gorm.DB, reportID uint64, patientID uint) (model.MedicalHistory, error) {
	var report model.MedicalHistory
	err := db.Joins("JOIN doctor_patient_associations a ON a.id = medical_histories.association_id").
		Where("medical_histories.id = ? AND a.patient_id = ? AND medical_histories.active = ?",
			reportID, patientID, true).
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return report, util.ErrRecordNotFound
	}
	return report, err
}

// SetPatientFeedback godoc
// @Summary      Record patient feedback on a report
// @Tags         MedicalHistory
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Report id"
// @Param        request body PatientFeedbackRequest true "Feedback"
// @Success      200 {object} util.APIResponse "Feedback recorded"
// @Failure      404 {object} util.APIResponse "Record not found"
// @Router       /medical_history/{id}/feedback [patch]
func SetPatientFeedback(c *gin.Context) {
	var req PatientFeedbackRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	patient, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	reportID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		util.CallError(c, util.APIErrorParams{Msg: "Invalid report id", Err: util.ErrInvalidRequestParameters})
		return
	}

	report, err := reportForPatient(db, reportID, patient.ID)
	if errors.Is(err, util.ErrRecordNotFound) {
		util.CallError(c, util.APIErrorParams{Msg: "Record not found", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to look up report", Err: err})
		return
	}

	if err := db.Model(&report).Update("patient_feedback", req.Feedback).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to record feedback", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Feedback recorded"})
}

type RescheduleRequest struct {
	NextAppointment string `json:"next_appointment" binding:"required" example:"2026-03-22"`
}

// Reschedule godoc
// @Summary      Move a report's next appointment date
// @Description  Patient-side mutation, same ownership rule as feedback
// @Tags         MedicalHistory
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Report id"
// @Param        request body RescheduleRequest true "New appointment date"
// @Success      200 {object} util.APIResponse "Appointment moved"
// @Failure      404 {object} util.APIResponse "Record not found"
// @Failure      409 {object} util.APIResponse "Report already exists for that date"
// @Router       /medical_history/{id}/appointment [patch]
func Reschedule(c *gin.Context) {
	var req RescheduleRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	patient, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	if !util.ValidDate(req.NextAppointment) {
		util.CallError(c, util.APIErrorParams{
			Msg: "Next appointment must be in YYYY-MM-DD format",
			Err: util.ErrInvalidRequestParameters,
		})
		return
	}

	reportID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		util.CallError(c, util.APIErrorParams{Msg: "Invalid report id", Err: util.ErrInvalidRequestParameters})
		return
	}

	report, err := reportForPatient(db, reportID, patient.ID)
	if errors.Is(err, util.ErrRecordNotFound) {
		util.CallError(c, util.APIErrorParams{Msg: "Record not found", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to look up report", Err: err})
		return
	}

	// The uniqueness on (association, appointment date) holds across
	// reschedules too.
	exists, err := reportExists(db, report.AssociationID, req.NextAppointment, report.ID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check for duplicate report", Err: err})
		return
	}
	if exists {
		util.CallError(c, util.APIErrorParams{
			Msg: "A report already exists for that appointment date",
			Err: util.ErrDuplicateReport,
		})
		return
	}

	if err := db.Model(&report).Update("next_appointment", req.NextAppointment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to reschedule", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment moved", Data: gin.H{
		"id":               report.ID,
		"next_appointment": req.NextAppointment,
	}})
}
