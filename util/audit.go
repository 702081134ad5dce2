package util

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/genesishealth/genesis-api/model"
)

// AuditEventType represents different types of audit events
type AuditEventType string

const (
	EventSignupSuccess       AuditEventType = "SIGNUP_SUCCESS"
	EventLoginSuccess        AuditEventType = "LOGIN_SUCCESS"
	EventLoginFailure        AuditEventType = "LOGIN_FAILURE"
	EventSignOut             AuditEventType = "SIGN_OUT"
	EventAccountVerified     AuditEventType = "ACCOUNT_VERIFIED"
	EventVerificationFailure AuditEventType = "VERIFICATION_FAILURE"
	EventAssociationCreated  AuditEventType = "ASSOCIATION_CREATED"
	EventReportCreated       AuditEventType = "REPORT_CREATED"
	EventUnauthorizedAccess  AuditEventType = "UNAUTHORIZED_ACCESS"
	EventRateLimitExceeded   AuditEventType = "RATE_LIMIT_EXCEEDED"
	EventMailDropped         AuditEventType = "MAIL_DROPPED"
	EventSuspiciousActivity  AuditEventType = "SUSPICIOUS_ACTIVITY"
)

// AuditEvent represents an audit event to be logged
type AuditEvent struct {
	EventType AuditEventType
	UserID    string
	Email     string
	IP        string
	UserAgent string
	Message   string
	Details   map[string]interface{}
}

var auditLogger *log.Logger
var auditDB *gorm.DB

// SetAuditLoggerDB sets a gorm DB instance used by the audit logger.
// Call this during application startup after DB initialization.
func SetAuditLoggerDB(db *gorm.DB) {
	auditDB = db
}

func init() {
	auditLogger = log.New(os.Stdout, "[AUDIT] ", log.LstdFlags|log.Lmsgprefix)
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

// LogAuditEvent writes the event to the audit log and, best-effort, to the
// AuditLog table. A failed persist never fails the audited operation.
func LogAuditEvent(event AuditEvent) {
	msg := fmt.Sprintf("Event=%s UserID=%s Email=%s IP=%s UserAgent=%s Message=%s",
		sanitizeLogValue(string(event.EventType)),
		sanitizeLogValue(event.UserID),
		sanitizeLogValue(event.Email),
		sanitizeLogValue(event.IP),
		sanitizeLogValue(event.UserAgent),
		sanitizeLogValue(event.Message),
	)

	if len(event.Details) > 0 {
		// Details go to the DB row; the log line only carries the count to
		// avoid log injection through arbitrary values.
		msg = fmt.Sprintf("%s DetailsCount=%d", msg, len(event.Details))
	}

	auditLogger.Println(msg)

	if auditDB != nil {
		var details datatypes.JSON
		if event.Details != nil {
			if b, err := json.Marshal(event.Details); err == nil {
				details = datatypes.JSON(b)
			}
		}

		entry := model.AuditLog{
			EventType: string(event.EventType),
			UserID:    event.UserID,
			Email:     sanitizeLogValue(event.Email),
			IP:        sanitizeLogValue(event.IP),
			UserAgent: sanitizeLogValue(event.UserAgent),
			Message:   sanitizeLogValue(event.Message),
			Details:   details,
		}

		if err := auditDB.Create(&entry).Error; err != nil {
			auditLogger.Printf("Failed to persist audit event: %v", err)
		}
	}
}

// LogLoginSuccess logs a successful sign-in.
func LogLoginSuccess(userID uint, email, ip, userAgent string) {
	LogAuditEvent(AuditEvent{
		EventType: EventLoginSuccess,
		UserID:    fmt.Sprintf("%d", userID),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User signed in successfully",
	})
}

// LogLoginFailure logs a failed sign-in attempt.
func LogLoginFailure(username, ip, userAgent, reason string) {
	LogAuditEvent(AuditEvent{
		EventType: EventLoginFailure,
		Email:     username,
		IP:        ip,
		UserAgent: userAgent,
		Message:   fmt.Sprintf("Sign-in failed: %s", reason),
	})
}

// LogUnauthorizedAccess logs denied access to a protected resource.
func LogUnauthorizedAccess(userID string, ip, resource, reason string) {
	LogAuditEvent(AuditEvent{
		EventType: EventUnauthorizedAccess,
		UserID:    userID,
		IP:        ip,
		Message:   fmt.Sprintf("Unauthorized access to %s: %s", resource, reason),
	})
}

// LogRateLimitExceeded logs when a client trips the rate limiter.
func LogRateLimitExceeded(ip, endpoint string) {
	LogAuditEvent(AuditEvent{
		EventType: EventRateLimitExceeded,
		IP:        ip,
		Message:   fmt.Sprintf("Rate limit exceeded for endpoint: %s", endpoint),
	})
}

// SetAuditLoggerForTest sets a custom logger for testing purposes
func SetAuditLoggerForTest(logger *log.Logger) {
	auditLogger = logger
}
