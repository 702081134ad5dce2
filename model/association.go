package model

// DoctorPatientAssociation is the directional edge that lets a doctor read
// and write a patient's clinical records. The pair is unique; no reverse
// edge is ever created.
type DoctorPatientAssociation struct {
	Base
	DoctorID  uint `json:"doctor_id" gorm:"not null;uniqueIndex:idx_doctor_patient"`
	PatientID uint `json:"patient_id" gorm:"not null;uniqueIndex:idx_doctor_patient"`
}
