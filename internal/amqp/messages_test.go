package amqp

import (
	"testing"
	"time"
)

func TestPeriodExportMessageRoundTrip(t *testing.T) {
	msg := NewPeriodExportMessage(42, "April 2025")
	if msg.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	decoded, err := PeriodExportMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if decoded.PeriodID != 42 || decoded.MonthName != "April 2025" {
		t.Errorf("decoded = %+v", decoded)
	}
	if !decoded.Timestamp.Truncate(time.Second).Equal(msg.Timestamp.Truncate(time.Second)) {
		t.Errorf("timestamp drifted through JSON: %v vs %v", decoded.Timestamp, msg.Timestamp)
	}
}

func TestPeriodExportMessageFromJSONInvalid(t *testing.T) {
	if _, err := PeriodExportMessageFromJSON([]byte("{not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
