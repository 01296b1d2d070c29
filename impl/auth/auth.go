package auth

import (
	"fmt"
	"vatbill/entity"
)

// Database resolves a bearer token against the platform's account
// records.
type Database interface {
	GetUser(token string) (*entity.User, error)
}

type Auth struct {
	db Database
}

func New(db Database) *Auth {
	return &Auth{db: db}
}

func (a Auth) UserByToken(token string) (*entity.User, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	user, err := a.db.GetUser(token)
	if err != nil {
		return nil, fmt.Errorf("token lookup: %w", err)
	}
	return user, nil
}
