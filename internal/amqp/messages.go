package amqp

import (
	"encoding/json"
	"time"
)

// PeriodExportMessage announces a fully completed period. It carries only
// identifiers; the worker reads the full checklist from the database.
type PeriodExportMessage struct {
	PeriodID  int64     `json:"period_id"`
	MonthName string    `json:"month_name"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPeriodExportMessage(periodID int64, monthName string) *PeriodExportMessage {
	return &PeriodExportMessage{
		PeriodID:  periodID,
		MonthName: monthName,
		Timestamp: time.Now(),
	}
}

func (m *PeriodExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PeriodExportMessageFromJSON(data []byte) (*PeriodExportMessage, error) {
	var msg PeriodExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
