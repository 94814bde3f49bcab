package models

import "github.com/google/uuid"

// NewID returns a time-ordered UUIDv7 so primary keys sort by creation.
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = NewID()
	}
}
