package amqp

import (
	"testing"
	"time"
)

func TestNewBillExportMessage(t *testing.T) {
	msg := NewBillExportMessage("42", 7)

	if msg.BillID != "42" {
		t.Errorf("NewBillExportMessage() BillID = %v, want 42", msg.BillID)
	}
	if msg.PropertyID != 7 {
		t.Errorf("NewBillExportMessage() PropertyID = %v, want 7", msg.PropertyID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("NewBillExportMessage() Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewBillExportMessage() Timestamp should be recent")
	}
}

func TestBillExportMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &BillExportMessage{
		BillID:     "12345",
		PropertyID: 2,
		Timestamp:  timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsedMsg, err := BillExportMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("BillExportMessageFromJSON() error = %v", err)
	}

	if parsedMsg.BillID != msg.BillID {
		t.Errorf("Parsed BillID = %v, want %v", parsedMsg.BillID, msg.BillID)
	}
	if parsedMsg.PropertyID != msg.PropertyID {
		t.Errorf("Parsed PropertyID = %v, want %v", parsedMsg.PropertyID, msg.PropertyID)
	}
	if !parsedMsg.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsedMsg.Timestamp, msg.Timestamp)
	}
}

func TestBillExportMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"bill_id": 99, "property_id": "seven"}`)

	if _, err := BillExportMessageFromJSON(invalidJSON); err == nil {
		t.Error("BillExportMessageFromJSON() should fail with invalid JSON")
	}
}
