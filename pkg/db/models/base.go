package models

import "github.com/google/uuid"

// ensureID assigns a fresh id to rows created without one. Callers that pick
// their own id (outbox event ids, requeued dead letters) keep it.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
