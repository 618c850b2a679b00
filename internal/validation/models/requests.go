package models

// CreateRequest is the body of POST /v1/validations.
type CreateRequest struct {
	OrganisationID      string `json:"organisation_id"`
	OrganisationSource  string `json:"organisation_source"`
	OrganisationName    string `json:"organisation_name"`
	OrganisationRole    string `json:"organisation_role"`
	OrganisationWebsite string `json:"organisation_website"`
	ActorID             int64  `json:"actor_id"`
}

// UpdateRequest carries the descriptive fields an administrator may amend on
// an existing request. Nil fields are left unchanged.
type UpdateRequest struct {
	OrganisationName    *string `json:"organisation_name"`
	OrganisationRole    *string `json:"organisation_role"`
	OrganisationWebsite *string `json:"organisation_website"`
}

// StatusUpdateRequest is the body of the admin status endpoint.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}
