package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/bookabot/internal/model"
)

func (r *customerRepository) GetByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	query := `
		SELECT id, phone_number, name, created_at, updated_at
		FROM customers
		WHERE phone_number = $1
	`
	var customer model.Customer
	if err := r.db.GetContext(ctx, &customer, query, phone); err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

// GetOrCreate upserts on the phone number so concurrent first messages from
// the same customer resolve to a single row.
func (r *customerRepository) GetOrCreate(ctx context.Context, phone, name string) (*model.Customer, error) {
	query := `
		INSERT INTO customers (id, phone_number, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (phone_number) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING id, phone_number, name, created_at, updated_at
	`
	var customer model.Customer
	if err := r.db.GetContext(ctx, &customer, query, uuid.New(), phone, name, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to get or create customer: %w", err)
	}
	return &customer, nil
}
