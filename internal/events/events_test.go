package events

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/jmrh-portal/internal/config"
	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/lifecycle"
	"github.com/prn-tf/jmrh-portal/internal/metrics"
	"github.com/prn-tf/jmrh-portal/internal/store"
)

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type userMap map[string]domain.User

func (m userMap) UserByID(id string) (domain.User, bool) {
	u, ok := m[id]
	return u, ok
}

func newTestBus(t *testing.T, logger zerolog.Logger, m *metrics.Metrics) *Bus {
	t.Helper()
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, NewLoggerAdapter(zerolog.Nop()))
	bus := NewBusWith(ch, "jmrh.", logger, m)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestNewBus_Drivers(t *testing.T) {
	bus, err := NewBus(config.EventsConfig{Driver: "memory", TopicPrefix: "x."}, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, "x.paper.submitted", bus.Topic(TopicPaperSubmitted))
	require.NoError(t, bus.Close())

	_, err = NewBus(config.EventsConfig{Driver: "nats"}, zerolog.Nop(), nil)
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestEventFor(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	user := &domain.User{ID: "u-1", Email: "ada@example.org", Role: domain.RoleUser}
	paper := &domain.Paper{
		ID:                  "p-1",
		Title:               "On Rivers",
		AuthorID:            "u-1",
		AssignedProfessorID: "prof-1",
		Status:              domain.PaperAccepted,
	}

	tests := []struct {
		name   string
		change store.Change
		want   Event
		wantOK bool
	}{
		{
			name:   "registration",
			change: store.Change{Op: store.OpRegisterUser, At: at, User: user},
			want: Event{
				Topic: TopicUserRegistered, OccurredAt: at,
				UserID: "u-1", UserEmail: "ada@example.org", UserRole: "USER",
			},
			wantOK: true,
		},
		{
			name: "status change with transition",
			change: store.Change{
				Op: store.OpUpdatePaperStatus, At: at, ActorID: "prof-1", Paper: paper,
				Transition: &lifecycle.Transition{
					From: domain.PaperUnderReview, To: domain.PaperAccepted,
					Action: lifecycle.ActionAccept, Legal: true,
				},
			},
			want: Event{
				Topic: TopicPaperStatusChanged, OccurredAt: at, ActorID: "prof-1",
				PaperID: "p-1", PaperTitle: "On Rivers", AuthorID: "u-1", ProfessorID: "prof-1",
				FromStatus: "UNDER_REVIEW", ToStatus: "ACCEPTED",
			},
			wantOK: true,
		},
		{
			name:   "password change is private",
			change: store.Change{Op: store.OpSetPassword, User: user},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EventFor(tt.change)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestStoreNotifier_Publishes(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	bus := newTestBus(t, zerolog.Nop(), m)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := bus.Subscriber().Subscribe(ctx, bus.Topic(TopicPaperSubmitted))
	require.NoError(t, err)

	n := NewStoreNotifier(bus, zerolog.Nop())
	n.Notify(ctx, store.Change{
		Op:    store.OpSubmitPaper,
		Paper: &domain.Paper{ID: "p-1", Title: "On Rivers", AuthorID: "u-1", Status: domain.PaperSubmitted},
	})
	// Not published.
	n.Notify(ctx, store.Change{Op: store.OpSetCurrentUser})

	select {
	case msg := <-msgs:
		msg.Ack()
		var e Event
		require.NoError(t, json.Unmarshal(msg.Payload, &e))
		assert.Equal(t, TopicPaperSubmitted, e.Topic)
		assert.Equal(t, "p-1", e.PaperID)
		assert.Equal(t, TopicPaperSubmitted, msg.Metadata.Get("topic"))
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(TopicPaperSubmitted, "ok")))
}

func TestNotice(t *testing.T) {
	tests := []struct {
		name      string
		event     Event
		recipient string
		contains  string
	}{
		{
			name:      "submitted goes to author",
			event:     Event{Topic: TopicPaperSubmitted, AuthorID: "u-1", PaperTitle: "On Rivers"},
			recipient: "u-1",
			contains:  "received",
		},
		{
			name:      "assigned goes to professor",
			event:     Event{Topic: TopicPaperAssigned, ProfessorID: "prof-1", PaperTitle: "On Rivers"},
			recipient: "prof-1",
			contains:  "assigned to you",
		},
		{
			name:      "revision carries comments",
			event:     Event{Topic: TopicPaperStatusChanged, AuthorID: "u-1", ToStatus: "REVISION_REQUIRED", Comments: "tighten section 2"},
			recipient: "u-1",
			contains:  "tighten section 2",
		},
		{
			name:  "user events have no notice",
			event: Event{Topic: TopicUserBanned, UserID: "u-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipient, notice := Notice(tt.event)
			assert.Equal(t, tt.recipient, recipient)
			assert.Contains(t, notice, tt.contains)
		})
	}
}

func TestNotifications_Consume(t *testing.T) {
	logs := &syncBuffer{}
	logger := zerolog.New(logs)
	bus := newTestBus(t, zerolog.Nop(), nil)

	users := userMap{"u-1": {ID: "u-1", Email: "ada@example.org"}}
	n, err := NewNotifications(bus, users, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	<-n.Running()

	require.NoError(t, bus.Publish(ctx, Event{
		Topic:      TopicPaperStatusChanged,
		PaperID:    "p-1",
		PaperTitle: "On Rivers",
		AuthorID:   "u-1",
		ToStatus:   string(domain.PaperAccepted),
	}))

	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), `"to":"ada@example.org"`)
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, n.Close())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
