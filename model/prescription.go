package model

// Prescription is shared between medical history reports. Rows are
// deduplicated on (treatment, dosage, frequency, start date): an existing
// exact match is linked instead of inserting a duplicate.
type Prescription struct {
	Base
	Treatment      string `json:"treatment" gorm:"size:255;not null"`
	Dosage         string `json:"dosage" gorm:"size:100;not null"`
	FrequencyValue int    `json:"frequency_value" gorm:"not null"`
	FrequencyUnit  string `json:"frequency_unit" gorm:"size:20;not null"`
	StartDate      string `json:"start_date" gorm:"size:10;not null"`
	EndDate        string `json:"end_date" gorm:"size:10"`
	Notify         bool   `json:"notify" gorm:"not null;default:false"`
}
