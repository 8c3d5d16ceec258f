package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/bookabot/internal/model"
)

func (r *messageLogRepository) Append(ctx context.Context, entry *model.MessageLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO messages_log (
			id, provider_message_id, direction, customer_id,
			timestamp, content, raw_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ProviderMessageID,
		entry.Direction,
		entry.CustomerID,
		entry.Timestamp,
		entry.Content,
		entry.RawPayload,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append message log entry: %w", err)
	}
	return nil
}
