package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"courier/pkg/requestcontext"
)

// Action names a security-relevant occurrence.
type Action string

const (
	ActionAuthFailed    Action = "auth_failed"
	ActionSignInFailed  Action = "sign_in_failed"
	ActionUserCreated   Action = "user_created"
	ActionSignUpBlocked Action = "sign_up_conflict"
)

// Severity levels for security events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Reason    string    `json:"reason"`
	Subject   string    `json:"subject,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Browser   string    `json:"browser,omitempty"`
	OS        string    `json:"os,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Method    string    `json:"method,omitempty"`
	Path      string    `json:"path,omitempty"`
	Severity  Severity  `json:"severity"`
}

// NewEvent builds an event stamped with the request metadata carried by ctx.
func NewEvent(ctx context.Context, action Action, reason, subject string) Event {
	e := Event{
		ID:        uuid.New(),
		Timestamp: requestcontext.Now(ctx),
		Action:    action,
		Reason:    reason,
		Subject:   subject,
		IP:        requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Method:    requestcontext.Method(ctx),
		Path:      requestcontext.Path(ctx),
		Severity:  severityOf(action),
	}
	e.Browser, e.OS = describeAgent(e.UserAgent)
	return e
}

func severityOf(action Action) Severity {
	switch action {
	case ActionAuthFailed, ActionSignInFailed, ActionSignUpBlocked:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func describeAgent(raw string) (browser, os string) {
	if raw == "" {
		return "", ""
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		name, _ := ua.Browser()
		return "bot:" + name, ua.OS()
	}
	name, version := ua.Browser()
	if version != "" {
		name += " " + version
	}
	return name, ua.OS()
}
