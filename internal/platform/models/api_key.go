package models

type APIKey struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	KeyHash        string `json:"-"`
	KeyPrefix      string `json:"key_prefix"`
	CreatedAt      int64  `json:"created_at"`
	RevokedAt      *int64 `json:"revoked_at,omitempty"`
}
