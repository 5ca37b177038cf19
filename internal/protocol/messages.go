package protocol

import (
	"encoding/json"
	"time"

	"github.com/seedlabs/seed-server/internal/dataset"
)

// CompanyMessage is the Kafka message format for one company record.
type CompanyMessage struct {
	IngestionID string          `json:"ingestion_id"`
	LoadedAt    time.Time       `json:"loaded_at"`
	Company     dataset.Company `json:"company"`
}

// IncidentMessage is the Kafka message format for one incident record.
type IncidentMessage struct {
	IngestionID string           `json:"ingestion_id"`
	LoadedAt    time.Time        `json:"loaded_at"`
	Incident    dataset.Incident `json:"incident"`
}

// IngestionComplete signals that a loader run finished publishing. The
// dbwriter uses it to invalidate cached aggregates once the dataset has
// been fully written.
type IngestionComplete struct {
	IngestionID string    `json:"ingestion_id"`
	Companies   int       `json:"companies"`
	Incidents   int       `json:"incidents"`
	Skipped     int       `json:"skipped"`
	CompletedAt time.Time `json:"completed_at"`
}

// EncodeCompanyMessage encodes a CompanyMessage to JSON.
func EncodeCompanyMessage(msg *CompanyMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeCompanyMessage decodes JSON to CompanyMessage.
func DecodeCompanyMessage(data []byte) (*CompanyMessage, error) {
	var msg CompanyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EncodeIncidentMessage encodes an IncidentMessage to JSON.
func EncodeIncidentMessage(msg *IncidentMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeIncidentMessage decodes JSON to IncidentMessage.
func DecodeIncidentMessage(data []byte) (*IncidentMessage, error) {
	var msg IncidentMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EncodeIngestionComplete encodes an IngestionComplete to JSON.
func EncodeIngestionComplete(msg *IngestionComplete) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeIngestionComplete decodes JSON to IngestionComplete.
func DecodeIngestionComplete(data []byte) (*IngestionComplete, error) {
	var msg IngestionComplete
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
