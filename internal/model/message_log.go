package model

import (
	"time"

	"github.com/google/uuid"
)

type MessageDirection string

const (
	MessageDirectionInbound        MessageDirection = "inbound"
	MessageDirectionOutboundStatus MessageDirection = "outbound_status_update"
)

// MessageLogEntry is one row of the append-only message audit trail.
// CustomerID is nil for provider status updates that carry no sender.
type MessageLogEntry struct {
	ID                uuid.UUID        `db:"id" json:"id"`
	ProviderMessageID string           `db:"provider_message_id" json:"provider_message_id"`
	Direction         MessageDirection `db:"direction" json:"direction"`
	CustomerID        *uuid.UUID       `db:"customer_id" json:"customer_id,omitempty"`
	Timestamp         time.Time        `db:"timestamp" json:"timestamp"`
	Content           string           `db:"content" json:"content"`
	RawPayload        []byte           `db:"raw_payload" json:"raw_payload,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
}
