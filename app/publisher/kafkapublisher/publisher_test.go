package kafkapublisher_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contacorrente/ledger/app/publisher/kafkapublisher"
	"github.com/contacorrente/ledger/app/shared/core"
	"github.com/contacorrente/ledger/app/shared/shell"
	"github.com/contacorrente/ledger/ledger"
	. "github.com/contacorrente/ledger/testutil/helper" //nolint:revive
)

type writerSpy struct {
	mu       sync.Mutex
	messages []kafka.Message
	deadline time.Time
	ctxErr   error
	failWith error
	closed   bool
}

func (w *writerSpy) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.deadline, _ = ctx.Deadline()
	w.ctxErr = ctx.Err()

	if w.failWith != nil {
		return w.failWith
	}

	w.messages = append(w.messages, msgs...)

	return nil
}

func (w *writerSpy) Close() error {
	w.closed = true
	return nil
}

func givenMovementPosted(t *testing.T) core.MovementPosted {
	t.Helper()

	movement := ledger.BuildMovement(
		GivenUniqueID(t),
		GivenUniqueID(t),
		Amount(t, "42.50"),
		ledger.DirectionCredit,
		time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	)

	return core.BuildMovementPosted(movement, GivenUniqueID(t))
}

func Test_NewPublisher_ValidatesConfig(t *testing.T) {
	_, err := kafkapublisher.NewPublisher(nil, "movements")
	assert.ErrorIs(t, err, kafkapublisher.ErrNoBrokers)

	_, err = kafkapublisher.NewPublisher([]string{"localhost:9092"}, "")
	assert.ErrorIs(t, err, kafkapublisher.ErrEmptyTopic)

	_, err = kafkapublisher.NewPublisher([]string{"localhost:9092"}, "movements", kafkapublisher.WithMessageWriter(nil))
	assert.ErrorIs(t, err, kafkapublisher.ErrNilMessageWriter)

	_, err = kafkapublisher.NewPublisher([]string{"localhost:9092"}, "movements", kafkapublisher.WithPublishTimeout(0))
	assert.ErrorIs(t, err, kafkapublisher.ErrInvalidPublishTimeout)

	publisher, err := kafkapublisher.NewPublisher([]string{"localhost:9092"}, "movements")
	require.NoError(t, err)
	assert.NoError(t, publisher.Close())
}

func Test_Publisher_Publish_WritesKeyedMessage(t *testing.T) {
	// arrange
	writer := &writerSpy{}
	publisher, err := kafkapublisher.NewPublisher(
		[]string{"localhost:9092"},
		"movements",
		kafkapublisher.WithMessageWriter(writer),
	)
	require.NoError(t, err)

	event := givenMovementPosted(t)

	// act
	err = publisher.Publish(context.Background(), event)

	// assert
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	message := writer.messages[0]
	assert.Equal(t, event.AccountID, string(message.Key))
	require.Len(t, message.Headers, 1)
	assert.Equal(t, kafkapublisher.HeaderEventType, message.Headers[0].Key)
	assert.Equal(t, core.MovementPostedEventType, string(message.Headers[0].Value))
	assert.JSONEq(t, `{
		"eventType": "MovementPosted",
		"movementId": "`+event.MovementID+`",
		"requestId": "`+event.RequestID+`",
		"accountId": "`+event.AccountID+`",
		"amount": "42.5",
		"direction": "C",
		"occurredAt": "2026-10-01T09:00:00Z"
	}`, string(message.Value))
}

func Test_Publisher_Publish_RoundTripsToDomainEvent(t *testing.T) {
	// arrange
	writer := &writerSpy{}
	publisher, err := kafkapublisher.NewPublisher([]string{"localhost:9092"}, "movements", kafkapublisher.WithMessageWriter(writer))
	require.NoError(t, err)

	event := givenMovementPosted(t)
	require.NoError(t, publisher.Publish(context.Background(), event))

	// act
	domainEvent, err := shell.DomainEventFrom(kafkapublisher.FromKafkaMessage(writer.messages[0]))

	// assert
	require.NoError(t, err)

	movementPosted, ok := domainEvent.(core.MovementPosted)
	require.True(t, ok)
	assert.True(t, event.OccurredAt.Equal(movementPosted.OccurredAt))

	movementPosted.OccurredAt = event.OccurredAt
	assert.Equal(t, event, movementPosted)
}

func Test_Publisher_Publish_IgnoresCallerCancellation(t *testing.T) {
	// arrange
	writer := &writerSpy{}
	publisher, err := kafkapublisher.NewPublisher(
		[]string{"localhost:9092"},
		"movements",
		kafkapublisher.WithMessageWriter(writer),
		kafkapublisher.WithPublishTimeout(time.Minute),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	err = publisher.Publish(ctx, givenMovementPosted(t))

	// assert
	require.NoError(t, err)
	assert.NoError(t, writer.ctxErr)
	assert.WithinDuration(t, time.Now().Add(time.Minute), writer.deadline, 5*time.Second)
	assert.Len(t, writer.messages, 1)
}

func Test_Publisher_Publish_WriterFailure(t *testing.T) {
	// arrange
	writerErr := errors.New("broker not available")
	writer := &writerSpy{failWith: writerErr}
	publisher, err := kafkapublisher.NewPublisher([]string{"localhost:9092"}, "movements", kafkapublisher.WithMessageWriter(writer))
	require.NoError(t, err)

	// act
	err = publisher.Publish(context.Background(), givenMovementPosted(t))

	// assert
	assert.ErrorIs(t, err, kafkapublisher.ErrPublishingFailed)
	assert.ErrorIs(t, err, writerErr)
}

func Test_Publisher_Close_ClosesWriter(t *testing.T) {
	// arrange
	writer := &writerSpy{}
	publisher, err := kafkapublisher.NewPublisher([]string{"localhost:9092"}, "movements", kafkapublisher.WithMessageWriter(writer))
	require.NoError(t, err)

	// act
	err = publisher.Close()

	// assert
	assert.NoError(t, err)
	assert.True(t, writer.closed)
}
