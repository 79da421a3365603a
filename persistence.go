package accounts

import (
	persistence "github.com/goliatone/go-persistence-bun"
)

// RegisterModels registers the package models with the persistence
// client so relations resolve before any query runs. Call once during
// application bootstrap, before opening repositories.
func RegisterModels() {
	persistence.RegisterModel((*User)(nil))
	persistence.RegisterModel((*Credential)(nil))
	persistence.RegisterModel((*Role)(nil))
}
