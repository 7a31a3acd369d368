package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/fastchat/internal/logging"
	"github.com/dmitrijs2005/fastchat/internal/server/models"
	"github.com/dmitrijs2005/fastchat/internal/server/protocol"
	"github.com/dmitrijs2005/fastchat/internal/server/registry"
)

// MessageLog records delivered chat lines. The postgres messages
// repository implements it.
type MessageLog interface {
	Append(ctx context.Context, msg *models.Message) error
}

// Router resolves parsed chat commands into deliveries. It never inspects
// private-message payloads beyond the framing: ciphertext and plaintext
// route identically. Persistence is best-effort; a failed log write is
// logged and delivery proceeds.
type Router struct {
	reg    *registry.Registry
	log    MessageLog
	logger logging.Logger

	// test seams
	now   func() time.Time
	newID func() string
}

func NewRouter(reg *registry.Registry, log MessageLog, logger logging.Logger) *Router {
	return &Router{
		reg:    reg,
		log:    log,
		logger: logger.With("module", "router"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Broadcast delivers text to every registered peer except the sender and
// records one log entry with no recipient.
func (r *Router) Broadcast(ctx context.Context, sender string, from registry.Peer, text string) {
	line := protocol.Broadcast(sender, text)
	for _, p := range r.reg.Others(from) {
		if err := p.Deliver(line); err != nil {
			r.logger.Debug(ctx, "skipping closed peer during broadcast", "sender", sender)
		}
	}

	r.persist(ctx, sender, "", text)
}

// Direct delivers payload to target and echoes the delivery back to the
// sender. An offline target produces a system error for the sender and
// leaves the message log untouched.
func (r *Router) Direct(ctx context.Context, sender string, from registry.Peer, target, payload string) {
	to, ok := r.reg.Lookup(target)
	if !ok {
		_ = from.Deliver(protocol.System("user %s is not online", target))
		return
	}

	if err := to.Deliver(protocol.PMFrom(sender, payload)); err != nil {
		_ = from.Deliver(protocol.System("user %s is not online", target))
		return
	}
	_ = from.Deliver(protocol.PMTo(target, payload))

	// The body is stored exactly as sent: ciphertext stays ciphertext.
	r.persist(ctx, sender, target, payload)
}

// Notify sends a system line to every registered peer except the given
// one. Used for join/leave notices; not persisted.
func (r *Router) Notify(except registry.Peer, text string) {
	line := protocol.System("%s", text)
	for _, p := range r.reg.Others(except) {
		_ = p.Deliver(line)
	}
}

func (r *Router) persist(ctx context.Context, sender, recipient, body string) {
	msg := &models.Message{
		ID:        r.newID(),
		Sender:    sender,
		Recipient: recipient,
		Body:      body,
		SentAt:    r.now().UTC(),
	}

	if err := r.log.Append(ctx, msg); err != nil {
		// Delivery is never coupled to log durability.
		r.logger.Error(ctx, "message log write failed", "error", err, "sender", sender)
	}
}
