package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginFailed       EventType = "login_failed"
	EventLoginSucceeded    EventType = "login_succeeded"
	EventRefreshReplayed   EventType = "refresh_replayed"
	EventPermissionDenied  EventType = "permission_denied"
	EventRateLimitExceeded EventType = "rate_limit_exceeded"
	EventRoleDrift         EventType = "role_drift"
	EventCheckedIn         EventType = "checked_in"
	EventCheckedOut        EventType = "checked_out"
)

// Event represents a security or attendance event emitted by services.
// UserID may be empty when the caller was never identified.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LoginFailedPayload payload. The identity number is never included; only a
// coarse reason distinguishes limiter rejections from credential failures.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// RefreshReplayedPayload payload.
type RefreshReplayedPayload struct {
	TokenID string `json:"token_id"`
}

// PermissionDeniedPayload payload.
type PermissionDeniedPayload struct {
	Role       string `json:"role"`
	Permission string `json:"permission"`
}

// RateLimitExceededPayload payload.
type RateLimitExceededPayload struct {
	Identifier    string `json:"identifier"`
	EndpointClass string `json:"endpoint_class"`
	RetryAfterSec int    `json:"retry_after_sec"`
}

// RoleDriftPayload payload: a live session claim disagrees with the
// authoritative profile role.
type RoleDriftPayload struct {
	ClaimRole   string `json:"claim_role"`
	ProfileRole string `json:"profile_role"`
}

// CheckedInPayload payload.
type CheckedInPayload struct {
	RecordID     string `json:"record_id"`
	LocationType string `json:"location_type"`
	LocationID   string `json:"location_id"`
	Verified     bool   `json:"verified"`
}

// CheckedOutPayload payload.
type CheckedOutPayload struct {
	RecordID   string  `json:"record_id"`
	TotalHours float64 `json:"total_hours"`
}
