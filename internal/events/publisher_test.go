package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillPublisher_GoChannel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NewSlogLogger(logger))
	publisher := NewWatermillPublisher(pubSub, "quiz.", logger)
	t.Cleanup(func() { _ = publisher.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "quiz."+AttemptCompleted)
	require.NoError(t, err)

	score := 4
	event := NewEvent(AttemptCompleted, AttemptEventData{AttemptID: "a1", Email: "s1@test.com", Score: &score})
	require.NoError(t, publisher.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, AttemptCompleted, msg.Metadata.Get("type"))

		var got Event
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, EventSource, got.Source)
		assert.Equal(t, EventVersion, got.Version)
		assert.False(t, got.Timestamp.IsZero())
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestNewPublisher_DefaultsToGoChannel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	publisher, err := NewPublisher(Config{TopicPrefix: "quiz."}, logger)
	require.NoError(t, err)
	defer publisher.Close()

	assert.Equal(t, "quiz.user.blocked", publisher.Topic(UserBlocked))
	// no subscribers: publishing still succeeds
	assert.NoError(t, publisher.Publish(context.Background(), NewEvent(UserBlocked, UserEventData{Email: "x"})))
}

func TestNewPublisher_InProcessDelivery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	publisher, err := NewPublisher(Config{TopicPrefix: "quiz."}, logger)
	require.NoError(t, err)
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := publisher.Subscribe(ctx, UserBlocked)
	require.NoError(t, err)

	// the output channel is unbuffered; publish alongside the receive below
	errs := make(chan error, 1)
	go func() {
		errs <- publisher.Publish(ctx, NewEvent(UserBlocked, UserEventData{Email: "s1@test.com", Actor: "admin"}))
	}()

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, UserBlocked, msg.Metadata.Get("type"))
		assert.Equal(t, EventSource, msg.Metadata.Get("source"))

		var got struct {
			Type string        `json:"type"`
			Data UserEventData `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, UserBlocked, got.Type)
		assert.Equal(t, UserEventData{Email: "s1@test.com", Actor: "admin"}, got.Data)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
	require.NoError(t, <-errs)
}

type publishOnly struct{}

func (publishOnly) Publish(string, ...*message.Message) error { return nil }
func (publishOnly) Close() error                             { return nil }

func TestWatermillPublisher_SubscribeRequiresSubscriber(t *testing.T) {
	publisher := NewWatermillPublisher(publishOnly{}, "quiz.", slog.Default())
	_, err := publisher.Subscribe(context.Background(), UserBlocked)
	assert.ErrorIs(t, err, ErrNoSubscriber)
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(nil)
	require.NoError(t, mock.Publish(context.Background(), NewEvent(AttemptStarted, nil)))
	require.NoError(t, mock.Publish(context.Background(), NewEvent(AttemptCompleted, nil)))

	assert.Equal(t, []string{AttemptStarted, AttemptCompleted}, mock.Types())
	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())
}
