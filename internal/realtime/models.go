// internal/realtime/models.go

package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// PendingMessage is a durably stored notification awaiting delivery to an
// offline user. Sender 0 means system-originated.
type PendingMessage struct {
	ID          int64           `db:"id"`
	SenderID    int64           `db:"sender_id"`
	RecipientID int64           `db:"recipient_id"`
	Kind        string          `db:"kind"`
	Payload     json.RawMessage `db:"payload"`
	CreatedAt   time.Time       `db:"created_at"`
}

// buildFrame flattens a notification payload into the outbound wire object,
// tagged with the payload kind and the sender id.
func buildFrame(kind string, senderID int64, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	frame := map[string]interface{}{}
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("notification payload must be an object: %w", err)
	}
	frame["type"] = kind
	frame["from"] = senderID

	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification frame: %w", err)
	}
	return data, nil
}
