package entity

import (
	"net/http"
	"time"
	"vatbill/lib/validate"
)

// User is an API user resolved from a bearer token by the identity
// platform. Only the fields this service reads are mapped; everything
// else the platform stores about the account stays opaque.
type User struct {
	Id           string    `json:"id" bson:"id" validate:"required"`
	Username     string    `json:"username" bson:"username" validate:"required"`
	Name         string    `json:"name" bson:"name" validate:"omitempty"`
	Email        string    `json:"email" bson:"email" validate:"omitempty,email"`
	Token        string    `json:"token" bson:"token" validate:"required,min=1"`
	RegisteredAt time.Time `json:"registered_at" bson:"registered_at"`
}

func (u *User) Bind(_ *http.Request) error {
	return validate.Struct(u)
}
