// Package device keeps the registry of push-notification device tokens.
package device

import "time"

// DeviceToken binds a push token to a recipient address.
type DeviceToken struct {
	ID        string    `bson:"_id" json:"id"`
	Email     string    `bson:"email" json:"email"`
	Token     string    `bson:"token" json:"token"`
	Platform  string    `bson:"platform" json:"platform"`
	TenantID  string    `bson:"tenant_id" json:"tenantId"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// RegisterRequest is the body of a device registration.
type RegisterRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
	TenantID string `json:"tenantId"`
}
