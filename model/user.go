package model

// Account status values. A user stays pending until the verification code
// issued at sign-up is consumed.
const (
	StatusPending = "pending"
	StatusActive  = "active"
)

// User represents an account holder, either a patient or a doctor.
// @Description User account information
type User struct {
	Base
	Name          string `json:"name" gorm:"size:255;not null"`
	Username      string `json:"username" gorm:"size:255;not null;uniqueIndex"`
	Email         string `json:"email" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash  string `json:"-" gorm:"size:255;not null"`
	PasswordSalt  string `json:"-" gorm:"size:64;not null"`
	BirthDate     string `json:"birth_date" gorm:"size:10"`
	Cedula        string `json:"cedula,omitempty" gorm:"size:255"`
	ProfileID     uint   `json:"profile_id" gorm:"not null;index"`
	AccountStatus string `json:"account_status" gorm:"size:16;not null;default:pending"`
}

// IsDoctor reports whether the user holds the doctor profile.
func (u *User) IsDoctor() bool {
	return u.ProfileID == ProfileDoctor
}

// IsVerified reports whether the account completed identity verification.
func (u *User) IsVerified() bool {
	return u.AccountStatus == StatusActive
}
