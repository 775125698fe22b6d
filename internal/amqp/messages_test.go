package amqp

import (
	"testing"
	"time"

	"kas/internal/core"
)

func TestSyncMessageRoundTrip(t *testing.T) {
	msg := NewTransactionSyncMessage(42, 3)

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := TransactionSyncMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Kind != KindSync {
		t.Errorf("Kind = %q, want %q", got.Kind, KindSync)
	}
	if got.ID != 42 {
		t.Errorf("ID = %d, want 42", got.ID)
	}
	if got.Version != 3 {
		t.Errorf("Version = %d, want 3", got.Version)
	}
	if got.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestDeleteMessageRoundTrip(t *testing.T) {
	date, err := core.ParseDate("2024-05-17")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	tx := core.Transaction{
		ID:          7,
		Type:        core.Expense,
		Description: "kertas HVS",
		Amount:      core.Money{Cents: 4550000},
		Date:        date,
	}

	msg := NewTransactionDeleteMessage(tx)
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := TransactionDeleteMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Kind != KindDelete {
		t.Errorf("Kind = %q, want %q", got.Kind, KindDelete)
	}
	if got.ID != 7 {
		t.Errorf("ID = %d, want 7", got.ID)
	}
	if got.Date != "2024-05-17" {
		t.Errorf("Date = %q, want 2024-05-17", got.Date)
	}
	if got.Type != string(core.Expense) {
		t.Errorf("Type = %q, want %q", got.Type, core.Expense)
	}
	if got.AmountCents != 4550000 {
		t.Errorf("AmountCents = %d, want 4550000", got.AmountCents)
	}
}

func TestMessageKind(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr bool
	}{
		{
			name: "sync",
			data: []byte(`{"kind":"sync","id":1,"version":1}`),
			want: KindSync,
		},
		{
			name: "delete",
			data: []byte(`{"kind":"delete","id":1}`),
			want: KindDelete,
		},
		{
			name:    "unknown kind",
			data:    []byte(`{"kind":"upsert"}`),
			wantErr: true,
		},
		{
			name:    "missing kind",
			data:    []byte(`{"id":1}`),
			wantErr: true,
		},
		{
			name:    "not json",
			data:    []byte(`kind=sync`),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := messageKind(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("messageKind: %v", err)
			}
			if got != tt.want {
				t.Errorf("kind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSyncMessageTimestampSurvivesJSON(t *testing.T) {
	msg := NewTransactionSyncMessage(1, 1)
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := TransactionSyncMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if !got.Timestamp.Truncate(time.Millisecond).Equal(msg.Timestamp.Truncate(time.Millisecond)) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, msg.Timestamp)
	}
}
