package amqp

import (
	"encoding/json"
	"time"
)

// BillExportMessage represents a lightweight message for exporting a bill to
// Google Sheets. It carries only identifiers; the worker fetches the full
// bill from the database.
type BillExportMessage struct {
	BillID     string    `json:"bill_id"`
	PropertyID int64     `json:"property_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewBillExportMessage creates a new export message
func NewBillExportMessage(billID string, propertyID int64) *BillExportMessage {
	return &BillExportMessage{
		BillID:     billID,
		PropertyID: propertyID,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BillExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BillExportMessageFromJSON creates a message from JSON bytes
func BillExportMessageFromJSON(data []byte) (*BillExportMessage, error) {
	var msg BillExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
