package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/dmt-records/internal/domain/entity"
)

// Payload keys written by the record service
const (
	PayloadFields    = "fields"
	PayloadLanguage  = "language"
	PayloadStageFrom = "stage_from"
	PayloadStageTo   = "stage_to"
)

// Event is an entry in a record's history trail
type Event struct {
	ID        string                 `json:"id"`
	Seq       int64                  `json:"seq"`
	Type      Type                   `json:"type"`
	RecordID  int64                  `json:"record_id"`
	UserID    int64                  `json:"user_id"`
	Role      entity.Role            `json:"role"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates a record event with a generated ID and UTC timestamp
func NewEvent(eventType Type, recordID int64, actor entity.Actor, payload map[string]interface{}) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RecordID:  recordID,
		UserID:    actor.UserID,
		Role:      actor.Role,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	c := *e
	c.Payload = newPayload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadStrings retrieves a string list from the payload. Lists decoded
// from JSON arrive as []interface{} and are converted.
func (e *Event) GetPayloadStrings(key string) []string {
	switch v := e.Payload[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
