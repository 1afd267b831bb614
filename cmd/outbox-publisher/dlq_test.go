package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox"
)

type fakeDeadLetters struct {
	rows     []models.OutboxDLQ
	filter   outbox.DLQFilter
	replayed []uuid.UUID
}

func (f *fakeDeadLetters) List(_ context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error) {
	f.filter = filter
	return f.rows, nil
}

func (f *fakeDeadLetters) Replay(_ context.Context, id uuid.UUID) error {
	for _, row := range f.rows {
		if row.EventID == id {
			f.replayed = append(f.replayed, id)
			return nil
		}
	}
	return outbox.ErrNotDeadLettered
}

func TestRunDLQListLogsEachEntry(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	msg := "schema mismatch"
	store := &fakeDeadLetters{rows: []models.OutboxDLQ{{
		EventID:      uuid.New(),
		EventType:    enums.EventOfferAccepted,
		ErrorReason:  enums.OutboxDLQReasonNonRetryable,
		ErrorMessage: &msg,
	}}}

	if err := runDLQ(context.Background(), logg, store, "list", "", " offer_accepted ", 5); err != nil {
		t.Fatalf("list: %v", err)
	}
	if store.filter.Limit != 5 || store.filter.EventType != "offer_accepted" {
		t.Fatalf("unexpected filter %+v", store.filter)
	}
	out := buf.String()
	if !strings.Contains(out, "dlq.entry") || !strings.Contains(out, "schema mismatch") {
		t.Fatalf("expected entry line, got %s", out)
	}
}

func TestRunDLQReplay(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	id := uuid.New()
	store := &fakeDeadLetters{rows: []models.OutboxDLQ{{EventID: id}}}

	if err := runDLQ(context.Background(), logg, store, "replay", id.String(), "", 0); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(store.replayed) != 1 || store.replayed[0] != id {
		t.Fatalf("expected %s replayed, got %v", id, store.replayed)
	}
	if err := runDLQ(context.Background(), logg, store, "replay", uuid.NewString(), "", 0); err == nil {
		t.Fatalf("expected error for unknown event")
	}
	if err := runDLQ(context.Background(), logg, store, "replay", "not-a-uuid", "", 0); err == nil {
		t.Fatalf("expected error for malformed id")
	}
	if err := runDLQ(context.Background(), logg, store, "purge", "", "", 0); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}
