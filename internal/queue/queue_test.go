package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sociable/internal/model"
	"sociable/internal/queue"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPublishAndConsume(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	publisher := queue.NewPublisher(client, zap.NewNop())
	consumer := queue.NewConsumer(client, zap.NewNop())

	user := &model.User{
		ID:       uuid.New(),
		Username: "alice",
		Slug:     "alice",
		Email:    "alice@example.com",
	}
	id, err := publisher.Publish(ctx, queue.StreamUserEvents, queue.NewUserEvent(queue.EventUserCreated, user))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// The "0" group start makes messages published before the group
	// existed visible to it.
	require.NoError(t, consumer.EnsureGroup(ctx, queue.StreamUserEvents, "test_group"))

	messages, err := consumer.Read(ctx, queue.StreamUserEvents, "test_group", "consumer-1", 10, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, queue.EventUserCreated, messages[0].Envelope.Type)

	event, err := queue.ParseUserEvent(messages[0].Envelope.Data)
	require.NoError(t, err)
	require.Equal(t, user.ID, event.User.ID)
	require.Equal(t, "alice", event.User.Username)

	require.NoError(t, consumer.Ack(ctx, queue.StreamUserEvents, "test_group", messages[0].ID))

	// Acked messages are gone from the pending cursor.
	pending, err := consumer.ReadPending(ctx, queue.StreamUserEvents, "test_group", "consumer-1", 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestEnsureGroup_Idempotent(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	consumer := queue.NewConsumer(client, zap.NewNop())

	require.NoError(t, consumer.EnsureGroup(ctx, queue.StreamRelationshipQueries, queue.ConsumerGroupRelationship))
	require.NoError(t, consumer.EnsureGroup(ctx, queue.StreamRelationshipQueries, queue.ConsumerGroupRelationship))
}

func TestReadPending_RecoversUnackedMessages(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	publisher := queue.NewPublisher(client, zap.NewNop())
	consumer := queue.NewConsumer(client, zap.NewNop())

	require.NoError(t, consumer.EnsureGroup(ctx, queue.StreamRelationshipQueries, "test_group"))

	query := queue.RelationshipQuery{
		RequestID: "req-1",
		UserID:    uuid.New(),
		Kind:      queue.QueryFollowers,
		Timestamp: time.Now().Unix(),
	}
	_, err := publisher.Publish(ctx, queue.StreamRelationshipQueries, query)
	require.NoError(t, err)

	// Deliver without acking, simulating a crash mid-handle.
	delivered, err := consumer.Read(ctx, queue.StreamRelationshipQueries, "test_group", "worker-0", 10, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, delivered, 1)

	// The restarted consumer finds it again on the pending cursor.
	recovered, err := consumer.ReadPending(ctx, queue.StreamRelationshipQueries, "test_group", "worker-0", 10)
	require.NoError(t, err)
	require.Len(t, recovered, 1)
	require.Equal(t, delivered[0].ID, recovered[0].ID)

	parsed, err := queue.ParseRelationshipQuery(recovered[0].Envelope.Data)
	require.NoError(t, err)
	require.Equal(t, "req-1", parsed.RequestID)
}

func TestRelationshipAnswer_Roundtrip(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	publisher := queue.NewPublisher(client, zap.NewNop())
	consumer := queue.NewConsumer(client, zap.NewNop())

	answer := queue.RelationshipAnswer{
		RequestID: "req-9",
		Status:    200,
		UserIDs:   []uuid.UUID{uuid.New(), uuid.New()},
		Timestamp: time.Now().Unix(),
	}
	_, err := publisher.Publish(ctx, queue.StreamRelationshipAnswers, answer)
	require.NoError(t, err)

	require.NoError(t, consumer.EnsureGroup(ctx, queue.StreamRelationshipAnswers, "askers"))
	messages, err := consumer.Read(ctx, queue.StreamRelationshipAnswers, "askers", "asker-1", 10, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, queue.EventRelationshipAnswer, messages[0].Envelope.Type)
}
