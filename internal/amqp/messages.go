package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// CalendarSyncMessage asks the worker to mirror one event to the calendar.
// It carries only the id; the worker reads the event from the store.
type CalendarSyncMessage struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
}

var errMissingEventID = errors.New("message has no event_id")

func NewCalendarSyncMessage(eventID string) *CalendarSyncMessage {
	return &CalendarSyncMessage{
		EventID:   eventID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *CalendarSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CalendarSyncMessageFromJSON decodes and validates a message body.
func CalendarSyncMessageFromJSON(data []byte) (*CalendarSyncMessage, error) {
	var msg CalendarSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	msg.EventID = strings.TrimSpace(msg.EventID)
	if msg.EventID == "" {
		return nil, errMissingEventID
	}
	return &msg, nil
}
