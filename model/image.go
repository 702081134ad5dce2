package model

// Image is the database identity of an uploaded diagnostic image. The bytes
// themselves live in the external blob store under StorageKey.
type Image struct {
	Base
	Name       string `json:"name" gorm:"size:255;not null"`
	StorageKey string `json:"storage_key" gorm:"size:255;not null;uniqueIndex"`
}

// UserImage ties an uploaded image to the uploading user and carries the
// machine-generated diagnostics attached to it.
type UserImage struct {
	Base
	UserID      uint           `json:"user_id" gorm:"not null;index"`
	ImageID     uint           `json:"image_id" gorm:"not null;index"`
	Image       Image          `json:"image" gorm:"foreignKey:ImageID"`
	Diagnostics []MlDiagnostic `json:"ml_diagnostics" gorm:"many2many:user_image_diagnostics"`
}

// MlDiagnostic is a machine-generated label with a confidence score.
// Diagnostics accumulate on an image; they are never replaced.
type MlDiagnostic struct {
	Base
	Sickness    string  `json:"sickness" gorm:"size:255;not null"`
	Description string  `json:"description" gorm:"type:text"`
	Precision   float64 `json:"precision" gorm:"not null"`
}
