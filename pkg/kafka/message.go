package kafka

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// IncomingMessage wraps a raw Kafka message with parsed metadata
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	Ingest *IngestMessage
}

// IngestMessage is the payload of a person ingestion message. The body
// mirrors the HTTP ingestion request so producers can use either path.
type IngestMessage struct {
	Source      string         `json:"source"`
	LinkedInURL string         `json:"linkedin_url"`
	Payload     map[string]any `json:"payload"`
}

// ParseIngestMessage parses the message value as a person ingestion request
func (m *IncomingMessage) ParseIngestMessage() error {
	var ingest IngestMessage
	if err := json.Unmarshal(m.Value, &ingest); err != nil {
		return errors.Wrap(err, "failed to parse ingest message")
	}
	if ingest.LinkedInURL == "" {
		return errors.New("ingest message missing linkedin_url")
	}
	m.Ingest = &ingest
	return nil
}
