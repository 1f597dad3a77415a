package amqp

import (
	"encoding/json"
	"time"
)

// Record kinds carried on the sync queue.
const (
	KindSales    = "sales"
	KindPurchase = "purchase"
)

// RecordSyncMessage asks the export worker to push one invoice to the
// spreadsheet ledger. It carries only the kind and ID; the worker loads
// the full row from the database.
type RecordSyncMessage struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordSyncMessage(kind string, id int64) *RecordSyncMessage {
	return &RecordSyncMessage{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordSyncMessageFromJSON creates a message from JSON bytes
func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
