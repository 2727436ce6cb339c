package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/sessionguard/internal/model"
)

const outboxPrefix = "outbox/"

// envelope is the JSON document a relay picks up from the outbox.
type envelope struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// OutboxSender drops messages into object storage for an external relay.
type OutboxSender struct {
	storage model.Storage
	clock   model.Clock
}

func NewOutboxSender(storage model.Storage, clock model.Clock) *OutboxSender {
	return &OutboxSender{storage: storage, clock: clock}
}

func (s *OutboxSender) Send(ctx context.Context, msg model.Message) error {
	id := uuid.New()
	data, err := json.Marshal(envelope{
		ID:        id.String(),
		To:        msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
		CreatedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	key := outboxPrefix + id.String() + ".json"
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}

	return nil
}
