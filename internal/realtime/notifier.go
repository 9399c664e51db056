// internal/realtime/notifier.go
// Best-effort realtime delivery with a durable fallback: a notification that
// cannot reach a live connection is stored as a PendingMessage and replayed
// when the recipient next connects.

package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// SystemSender tags notifications that no user originated.
const SystemSender int64 = 0

// Notifier delivers notifications to users, live or deferred.
type Notifier struct {
	hub  *Hub
	repo Repository
}

func NewNotifier(hub *Hub, repo Repository) *Notifier {
	return &Notifier{hub: hub, repo: repo}
}

// Deliver sends a payload to the recipient's live connection, or persists it
// for the next connect when there is none or the send fails. A message is
// never dropped at this point.
func (n *Notifier) Deliver(ctx context.Context, recipientID int64, kind string, payload interface{}, senderID int64) error {
	frame, err := buildFrame(kind, senderID, payload)
	if err != nil {
		return err
	}

	if err := n.hub.Send(recipientID, frame); err == nil {
		notificationsDelivered.Inc()
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := &PendingMessage{
		SenderID:    senderID,
		RecipientID: recipientID,
		Kind:        kind,
		Payload:     raw,
	}
	if err := n.repo.Save(ctx, msg); err != nil {
		return err
	}
	notificationsPersisted.Inc()
	return nil
}

// HandleConnect drains the user's pending messages onto the fresh
// connection and then registers it for new traffic.
func (n *Notifier) HandleConnect(ctx context.Context, client *Client) error {
	if err := n.drainPending(ctx, client); err != nil {
		return err
	}
	n.hub.Register(client)
	return nil
}

// drainPending replays stored messages over the connection. Messages are
// removed from the store before the send attempt and a failed send is not
// re-persisted: replay is at-most-once.
func (n *Notifier) drainPending(ctx context.Context, client *Client) error {
	messages, err := n.repo.TakeAll(ctx, client.UserID())
	if err != nil {
		return err
	}

	for _, msg := range messages {
		frame, err := buildFrame(msg.Kind, msg.SenderID, msg.Payload)
		if err != nil {
			log.Printf("failed to build pending frame %d: %v", msg.ID, err)
			continue
		}
		if err := client.trySend(frame); err != nil {
			log.Printf("failed to replay pending message %d to user %d: %v", msg.ID, client.UserID(), err)
			continue
		}
		notificationsDrained.Inc()
	}
	return nil
}

// AuthFunc authenticates a websocket upgrade request.
type AuthFunc func(r *http.Request) (int64, error)

// Gateway is the websocket endpoint for live connections.
type Gateway struct {
	hub      *Hub
	notifier *Notifier
	auth     AuthFunc
	upgrader websocket.Upgrader
}

func NewGateway(hub *Hub, notifier *Notifier, auth AuthFunc) *Gateway {
	return &Gateway{
		hub:      hub,
		notifier: notifier,
		auth:     auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeWS authenticates the request, upgrades it and hands the connection to
// the hub after the pending backlog is drained.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, err := g.auth(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed for user %d: %v", userID, err)
		return
	}

	client := NewClient(conn, userID)
	go client.writePump()

	if err := g.notifier.HandleConnect(r.Context(), client); err != nil {
		log.Printf("failed to connect user %d: %v", userID, err)
		client.Close()
		return
	}

	go client.readPump(g.hub)
}
