package amqp

import (
	"encoding/json"
	"time"
)

// StatementImportedMessage announces that a statement file was imported.
// Consumers fetch the lines from storage by import id.
type StatementImportedMessage struct {
	ImportID  string    `json:"import_id"`
	Source    string    `json:"source"`
	Layout    string    `json:"layout"`
	Lines     int       `json:"lines"`
	Ref       string    `json:"ref,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStatementImportedMessage creates a message stamped with the current time
func NewStatementImportedMessage(importID, source, layout string, lines int, ref string) *StatementImportedMessage {
	return &StatementImportedMessage{
		ImportID:  importID,
		Source:    source,
		Layout:    layout,
		Lines:     lines,
		Ref:       ref,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *StatementImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StatementImportedMessageFromJSON decodes a message
func StatementImportedMessageFromJSON(data []byte) (*StatementImportedMessage, error) {
	var msg StatementImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
