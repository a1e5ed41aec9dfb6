// Package audit provides security audit logging for SIEM consumption.
// Events are logged as structured JSON under the "security_audit" logger name.
package audit

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventTokenRejected is logged when a write carries a bearer token that does not resolve.
	EventTokenRejected SecurityEventType = "token_rejected"
	// EventPayloadRejected is logged when an observation body fails validation.
	EventPayloadRejected SecurityEventType = "payload_rejected"
	// EventObservationDeleted is logged for every successful delete.
	EventObservationDeleted SecurityEventType = "observation_deleted"
)

// SecurityEvent represents an auditable security event.
type SecurityEvent struct {
	Timestamp     time.Time         `json:"timestamp"`
	EventType     SecurityEventType `json:"event_type"`
	UserID        string            `json:"user_id,omitempty"`
	ObservationID string            `json:"observation_id,omitempty"`
	ClientIP      string            `json:"client_ip,omitempty"`
	Path          string            `json:"path,omitempty"`
	Details       any               `json:"details,omitempty"`
	Severity      string            `json:"severity"` // info, warning, critical
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{
		logger: logger.Named("security_audit"),
		now:    time.Now,
	}
}

// LogTokenRejected records a bearer token the identity provider did not accept.
// The token itself is never logged.
func (a *SecurityAuditor) LogTokenRejected(r *http.Request, reason string) {
	a.log(zapcore.WarnLevel, "Bearer token rejected", SecurityEvent{
		EventType: EventTokenRejected,
		ClientIP:  ClientIP(r),
		Path:      r.URL.Path,
		Details:   map[string]string{"reason": reason},
		Severity:  "warning",
	})
}

// LogPayloadRejected records an observation body that failed validation.
// These are usually client bugs rather than attacks.
func (a *SecurityAuditor) LogPayloadRejected(r *http.Request, reason string) {
	a.log(zapcore.WarnLevel, "Observation payload rejected", SecurityEvent{
		EventType: EventPayloadRejected,
		ClientIP:  ClientIP(r),
		Path:      r.URL.Path,
		Details:   map[string]string{"reason": reason},
		Severity:  "warning",
	})
}

// LogObservationDeleted records the removal of an observation by its owner.
func (a *SecurityAuditor) LogObservationDeleted(r *http.Request, userID, observationID uuid.UUID) {
	a.log(zapcore.InfoLevel, "Observation deleted", SecurityEvent{
		EventType:     EventObservationDeleted,
		UserID:        userID.String(),
		ObservationID: observationID.String(),
		ClientIP:      ClientIP(r),
		Path:          r.URL.Path,
		Severity:      "info",
	})
}

func (a *SecurityAuditor) log(level zapcore.Level, msg string, event SecurityEvent) {
	event.Timestamp = a.now().UTC()

	// Marshaling known types cannot fail.
	eventJSON, _ := json.Marshal(event)

	if ce := a.logger.Check(level, msg); ce != nil {
		ce.Write(
			zap.String("event_json", string(eventJSON)),
			zap.String("event_type", string(event.EventType)),
			zap.String("user_id", event.UserID),
			zap.String("client_ip", event.ClientIP),
			zap.String("severity", event.Severity),
		)
	}
}

// ClientIP returns the remote host of r without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
