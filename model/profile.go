package model

import (
	"fmt"

	"gorm.io/gorm"
)

// Profile ids are a closed lookup seeded at startup.
const (
	ProfilePatient uint = 1
	ProfileDoctor  uint = 2
	ProfileAdmin   uint = 3
)

type Profile struct {
	Base
	Name string `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
}

// SeedProfiles inserts the fixed profile rows if they are not present yet.
// Safe to call on every startup.
func SeedProfiles(db *gorm.DB) error {
	profiles := []Profile{
		{Base: Base{ID: ProfilePatient}, Name: "patient"},
		{Base: Base{ID: ProfileDoctor}, Name: "doctor"},
		{Base: Base{ID: ProfileAdmin}, Name: "admin"},
	}

	for _, profile := range profiles {
		var existing Profile
		err := db.Where("id = ?", profile.ID).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile %s: %w", profile.Name, err)
		}
	}
	return nil
}
