package model

import "gorm.io/datatypes"

// AuditLog persists security and clinical audit events. Writes are
// best-effort: a failed insert never fails the operation being audited.
type AuditLog struct {
	Base
	EventType string         `json:"event_type" gorm:"size:64;not null;index"`
	UserID    string         `json:"user_id" gorm:"size:32"`
	Email     string         `json:"email" gorm:"size:255"`
	IP        string         `json:"ip" gorm:"size:64"`
	UserAgent string         `json:"user_agent" gorm:"size:255"`
	Message   string         `json:"message" gorm:"size:512"`
	Details   datatypes.JSON `json:"details"`
}
