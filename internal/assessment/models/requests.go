package models

// CreateRequest is the body of POST /v1/assessments.
type CreateRequest struct {
	TypeID   int64    `json:"assessment_type_id"`
	TypeName string   `json:"assessment_type_name"`
	Document Document `json:"assessment_doc"`
}

// UpdateRequest is the body of PUT /v1/assessments/{id}. The stored version
// must match or the update is rejected as stale.
type UpdateRequest struct {
	Version  int      `json:"version"`
	Document Document `json:"assessment_doc"`
}
