package entity

import "time"

// AllowedUser is a membership record in the bot's allow-list.
// The administrator is seeded into the list at first start; admin identity
// itself is configuration, not a row here.
type AllowedUser struct {
	UserId    int64     `json:"user_id" bson:"user_id"`
	GrantedAt time.Time `json:"granted_at" bson:"granted_at"`
}
