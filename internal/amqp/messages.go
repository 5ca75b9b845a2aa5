package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"fincli/internal/core"
)

// TransactionImportMessage asks the worker to create one transaction. The
// message ID makes redelivery idempotent.
type TransactionImportMessage struct {
	MessageID   string                `json:"message_id"`
	Transaction core.TransactionInput `json:"transaction"`
	Timestamp   time.Time             `json:"timestamp"`
}

// NewTransactionImportMessage wraps in with a fresh message ID
func NewTransactionImportMessage(in core.TransactionInput) *TransactionImportMessage {
	return &TransactionImportMessage{
		MessageID:   uuid.NewString(),
		Transaction: in,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionImportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionImportMessageFromJSON decodes a message and rejects ones
// without an ID.
func TransactionImportMessageFromJSON(data []byte) (*TransactionImportMessage, error) {
	var msg TransactionImportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.MessageID == "" {
		return nil, errors.New("import message has no message_id")
	}
	return &msg, nil
}
