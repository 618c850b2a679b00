package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	// ActorID is the identity performing the action (admin for moderation).
	ActorID string `json:"actor_id"`
	// SubjectID is the identity the action concerns, when different from the
	// actor (e.g. the user being denied access).
	SubjectID string `json:"subject_id,omitempty"`
	Action    string `json:"action"`
	Resource  string `json:"resource,omitempty"`
	// ResourceID is the id of the affected record in string form.
	ResourceID string `json:"resource_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// Audited actions.
const (
	ActionUserRegistered           = "user.registered"
	ActionUserDenied               = "user.deny_access"
	ActionValidationCreated        = "validation.created"
	ActionValidationUpdated        = "validation.updated"
	ActionValidationStatusChanged  = "validation.status_changed"
	ActionAssessmentCreated        = "assessment.created"
	ActionAssessmentUpdated        = "assessment.updated"
	ActionAssessmentPublished      = "assessment.published"
	ActionAssessmentDeletedByAdmin = "assessment.deleted"
)
