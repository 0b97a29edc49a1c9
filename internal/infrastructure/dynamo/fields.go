package dynamo

// DynamoDB attribute names used in update expressions across all repos.
const (
	fieldEnable            = "enable"
	fieldUpdatedAt         = "updated_at"
	fieldRefreshToken      = "refresh_token"
	fieldRefreshExpiresAt  = "refresh_expires_at"
	fieldEmergencyContacts = "emergency_contacts"
	fieldNotifiedContacts  = "notified_contacts"
	fieldStatus            = "status"
)

// GSI names.
const (
	indexEmail         = "email-index"
	indexEnable        = "enable-index"
	indexRefreshToken  = "refresh_token-index"
	indexStatusCreated = "status-created_at-index"
	indexUserCreated   = "user_id-created_at-index"
)
