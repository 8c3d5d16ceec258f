package model

import (
	"fmt"
	"time"
)

type EventType string

const (
	EventText        EventType = "text"
	EventButtonReply EventType = "button_reply"
	EventListReply   EventType = "list_reply"
)

// InboundEvent is the normalized form of a webhook message delivery. The
// transport's nested payload is flattened into a tagged variant here so the
// conversation engine never sees provider-specific structure.
type InboundEvent struct {
	Type      EventType
	From      string
	MessageID string
	Timestamp time.Time

	// Text is set for EventText.
	Text string

	// ReplyID and ReplyTitle are set for EventButtonReply and EventListReply.
	ReplyID    string
	ReplyTitle string
}

func (e *InboundEvent) Validate() error {
	if e.From == "" {
		return fmt.Errorf("event is missing sender")
	}
	switch e.Type {
	case EventText:
		if e.Text == "" {
			return fmt.Errorf("text event has empty body")
		}
	case EventButtonReply, EventListReply:
		if e.ReplyID == "" {
			return fmt.Errorf("%s event has empty reply id", e.Type)
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}
