package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

var (
	errEnvelopeVersion = errors.New("unsupported envelope version")
	errEnvelopeEventID = errors.New("envelope event id is not a uuid")
	errEnvelopeData    = errors.New("envelope data missing")
)

type ActorRef struct {
	UserID         uuid.UUID  `json:"userId"`
	OrganizationID *uuid.UUID `json:"organizationId,omitempty"`
	Role           enums.Role `json:"role,omitempty"`
}

// PayloadEnvelope is stored in outbox_events.payload and published unchanged.
// EventID is fixed at emit time and is what consumers deduplicate on.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func (e PayloadEnvelope) validate() error {
	if e.Version < 1 || e.Version > currentVersion {
		return fmt.Errorf("%w: %d", errEnvelopeVersion, e.Version)
	}
	if _, err := uuid.Parse(e.EventID); err != nil {
		return fmt.Errorf("%w: %q", errEnvelopeEventID, e.EventID)
	}
	if data := bytes.TrimSpace(e.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return errEnvelopeData
	}
	return nil
}

// DecodeEnvelope parses and checks a stored or delivered payload.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if err := env.validate(); err != nil {
		return PayloadEnvelope{}, err
	}
	return env, nil
}
