package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/domain"
)

// Recipients resolves the account a notification goes to.
type Recipients interface {
	UserByID(id string) (domain.User, bool)
}

// Notifications consumes paper events and records the author and reviewer
// notices they produce. Delivery is a structured log line; the portal does
// not send mail.
type Notifications struct {
	bus    *Bus
	users  Recipients
	logger zerolog.Logger
	router *message.Router
}

// NewNotifications creates the consumer and registers its handlers.
func NewNotifications(bus *Bus, users Recipients, logger zerolog.Logger) (*Notifications, error) {
	router, err := message.NewRouter(message.RouterConfig{}, bus.wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event router: %w", err)
	}

	n := &Notifications{
		bus:    bus,
		users:  users,
		logger: logger.With().Str("component", "notifications").Logger(),
		router: router,
	}

	for _, topic := range []string{TopicPaperSubmitted, TopicPaperAssigned, TopicPaperStatusChanged} {
		router.AddNoPublisherHandler("notify."+topic, bus.Topic(topic), bus.Subscriber(), n.handle)
	}

	return n, nil
}

// Run blocks until ctx is cancelled or Close is called.
func (n *Notifications) Run(ctx context.Context) error {
	return n.router.Run(ctx)
}

// Running is closed once all handlers are subscribed.
func (n *Notifications) Running() chan struct{} {
	return n.router.Running()
}

// Close stops the consumer.
func (n *Notifications) Close() error {
	return n.router.Close()
}

func (n *Notifications) handle(msg *message.Message) error {
	e, err := Decode(msg)
	if err != nil {
		// A malformed payload will not improve on redelivery.
		n.logger.Error().Err(err).Str("message_id", msg.UUID).Msg("dropping malformed event")
		return nil
	}

	recipientID, notice := Notice(e)
	if recipientID == "" {
		return nil
	}

	recipient, ok := n.users.UserByID(recipientID)
	if !ok {
		n.logger.Warn().Str("user_id", recipientID).Str("topic", e.Topic).Msg("notification recipient not found")
		return nil
	}

	n.logger.Info().
		Str("topic", e.Topic).
		Str("paper_id", e.PaperID).
		Str("to", recipient.Email).
		Str("notice", notice).
		Msg("notification")
	return nil
}

// Notice returns who should hear about e and what they are told.
func Notice(e Event) (recipientID, notice string) {
	switch e.Topic {
	case TopicPaperSubmitted:
		return e.AuthorID, fmt.Sprintf("We received your manuscript %q.", e.PaperTitle)
	case TopicPaperAssigned:
		return e.ProfessorID, fmt.Sprintf("Manuscript %q has been assigned to you for review.", e.PaperTitle)
	case TopicPaperStatusChanged:
		status := domain.PaperStatus(e.ToStatus)
		notice = fmt.Sprintf("Your manuscript %q is now %s.", e.PaperTitle, status.Label())
		if e.Comments != "" {
			notice += " Reviewer comments: " + e.Comments
		}
		return e.AuthorID, notice
	}
	return "", ""
}
