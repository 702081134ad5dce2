package model

// MedicalHistory is a clinical report written by the doctor side of one
// doctor-patient association. The (association, next appointment date) pair
// is unique, which is the duplicate-report guard. Images and prescriptions
// hang off the report through join tables and are persisted together with
// it in one transaction.
type MedicalHistory struct {
	Base
	AssociationID    uint                     `json:"association_id" gorm:"not null;uniqueIndex:idx_association_appointment"`
	Association      DoctorPatientAssociation `json:"-" gorm:"foreignKey:AssociationID"`
	Observation      string                   `json:"observation" gorm:"type:text"`
	Diagnostic       string                   `json:"diagnostic" gorm:"type:text"`
	Symptoms         string                   `json:"symptoms" gorm:"type:text"`
	PrivateNotes     string                   `json:"private_notes" gorm:"type:text"`
	NextAppointment  string                   `json:"next_appointment" gorm:"size:10;not null;uniqueIndex:idx_association_appointment"`
	FollowUpRequired bool                     `json:"follow_up_required" gorm:"not null;default:false"`
	PatientFeedback  *string                  `json:"patient_feedback" gorm:"type:text"`
	Images           []UserImage              `json:"images" gorm:"many2many:medical_history_images"`
	Prescriptions    []Prescription           `json:"prescriptions" gorm:"many2many:medical_history_prescriptions"`
}
