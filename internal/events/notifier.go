package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/prn-tf/jmrh-portal/internal/store"
)

// StoreNotifier turns store changes into published events.
// Publication failures are logged and never reach the caller.
type StoreNotifier struct {
	bus    *Bus
	logger zerolog.Logger
}

// NewStoreNotifier creates a StoreNotifier publishing on bus.
func NewStoreNotifier(bus *Bus, logger zerolog.Logger) *StoreNotifier {
	return &StoreNotifier{
		bus:    bus,
		logger: logger.With().Str("component", "store_notifier").Logger(),
	}
}

// Notify implements store.Notifier.
func (n *StoreNotifier) Notify(ctx context.Context, c store.Change) {
	e, ok := EventFor(c)
	if !ok {
		return
	}
	if err := n.bus.Publish(ctx, e); err != nil {
		n.logger.Warn().Err(err).Str("topic", e.Topic).Str("op", c.Op).Msg("failed to publish event")
	}
}

// EventFor maps a store change to its event. Changes with no public
// meaning, like password updates, report false.
func EventFor(c store.Change) (Event, bool) {
	e := Event{OccurredAt: c.At, ActorID: c.ActorID}

	switch c.Op {
	case store.OpRegisterUser:
		e.Topic = TopicUserRegistered
	case store.OpBanUser:
		e.Topic = TopicUserBanned
	case store.OpUnbanUser:
		e.Topic = TopicUserUnbanned
	case store.OpCreateProfessor:
		e.Topic = TopicProfessorCreated
	case store.OpSubmitPaper:
		e.Topic = TopicPaperSubmitted
	case store.OpAssignPaper:
		e.Topic = TopicPaperAssigned
	case store.OpUpdatePaperStatus:
		e.Topic = TopicPaperStatusChanged
	default:
		return Event{}, false
	}

	if u := c.User; u != nil {
		e.UserID = u.ID
		e.UserEmail = u.Email
		e.UserRole = string(u.Role)
	}
	if p := c.Paper; p != nil {
		e.PaperID = p.ID
		e.PaperTitle = p.Title
		e.AuthorID = p.AuthorID
		e.ProfessorID = p.AssignedProfessorID
		e.ToStatus = string(p.Status)
		e.Comments = p.RevisionComments
	}
	if t := c.Transition; t != nil {
		e.FromStatus = string(t.From)
		e.ToStatus = string(t.To)
		e.Flagged = t.Flagged()
	}

	return e, true
}

var _ store.Notifier = (*StoreNotifier)(nil)
