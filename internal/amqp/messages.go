package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"kas/internal/core"
)

const (
	KindSync   = "sync"
	KindDelete = "delete"
)

// TransactionSyncMessage asks the worker to mirror one transaction.
// It carries only id and version; the worker reads the full row from
// the store so it always mirrors the latest state.
type TransactionSyncMessage struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// TransactionDeleteMessage asks the worker to drop a mirrored row.
// The row is gone from the store by the time the worker sees this, so
// the message carries the data needed to find it in the mirror.
type TransactionDeleteMessage struct {
	Kind        string    `json:"kind"`
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id, version int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		Kind:      KindSync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewTransactionDeleteMessage(t core.Transaction) *TransactionDeleteMessage {
	return &TransactionDeleteMessage{
		Kind:        KindDelete,
		ID:          t.ID,
		Date:        t.Date.String(),
		Type:        string(t.Type),
		Description: t.Description,
		AmountCents: t.Amount.Cents,
		Timestamp:   time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *TransactionDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// messageKind peeks at the envelope discriminator without committing
// to a payload shape.
func messageKind(data []byte) (string, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("unmarshal message envelope: %w", err)
	}
	switch probe.Kind {
	case KindSync, KindDelete:
		return probe.Kind, nil
	}
	return "", fmt.Errorf("unknown message kind %q", probe.Kind)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func TransactionDeleteMessageFromJSON(data []byte) (*TransactionDeleteMessage, error) {
	var msg TransactionDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
