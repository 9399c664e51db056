// internal/realtime/repository.go

package realtime

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Save(ctx context.Context, msg *PendingMessage) error
	// TakeAll reads and removes every pending message for a recipient,
	// oldest first. Removal before delivery keeps replay at-most-once.
	TakeAll(ctx context.Context, recipientID int64) ([]*PendingMessage, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Save(ctx context.Context, msg *PendingMessage) error {
	query := `
		INSERT INTO pending_messages (sender_id, recipient_id, kind, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		msg.SenderID, msg.RecipientID, msg.Kind, msg.Payload).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save pending message: %w", err)
	}
	return nil
}

func (r *postgresRepository) TakeAll(ctx context.Context, recipientID int64) ([]*PendingMessage, error) {
	query := `
		DELETE FROM pending_messages
		WHERE recipient_id = $1
		RETURNING id, sender_id, recipient_id, kind, payload, created_at
	`

	rows, err := r.db.QueryxContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to take pending messages for %d: %w", recipientID, err)
	}
	defer rows.Close()

	var messages []*PendingMessage
	for rows.Next() {
		var msg PendingMessage
		if err := rows.StructScan(&msg); err != nil {
			return nil, fmt.Errorf("failed to scan pending message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending messages: %w", err)
	}

	// DELETE ... RETURNING has no guaranteed row order.
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}
