package amqp

import (
	"encoding/json"
	"time"
)

// CustomerSyncMessage asks the worker to re-export one customer row.
// It carries only the ID and version; the worker fetches the full
// customer from the database.
type CustomerSyncMessage struct {
	CustomerID string    `json:"customer_id"`
	Version    int64     `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewCustomerSyncMessage creates a new sync message with just ID and version
func NewCustomerSyncMessage(customerID string, version int64) *CustomerSyncMessage {
	return &CustomerSyncMessage{
		CustomerID: customerID,
		Version:    version,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CustomerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CustomerSyncMessageFromJSON creates a message from JSON bytes
func CustomerSyncMessageFromJSON(data []byte) (*CustomerSyncMessage, error) {
	var msg CustomerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
