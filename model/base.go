package model

import "time"

// Base holds the metadata columns shared by every entity: integer identity,
// an active flag used as the soft-delete marker, and creation/update
// timestamps maintained by GORM. Entities embed it by composition.
type Base struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Active    bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
