package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sociable/internal/model"
	"sociable/internal/queue"
	"sociable/internal/repository"
)

// Handler answers relationship queries arriving over the query stream.
// Each query names a subject user and a kind; the reply carries the
// matching ids, correlated by the request id the asker chose.
type Handler struct {
	users         repository.UserRepository
	relationships repository.RelationshipRepository
	publisher     queue.Publisher
	logger        *zap.Logger
}

// NewHandler creates a new query handler.
func NewHandler(
	users repository.UserRepository,
	relationships repository.RelationshipRepository,
	publisher queue.Publisher,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		users:         users,
		relationships: relationships,
		publisher:     publisher,
		logger:        logger,
	}
}

// HandleMessage dispatches one stream message. Unknown message types are
// skipped without error so foreign traffic on the stream cannot wedge the
// consumer group.
func (h *Handler) HandleMessage(ctx context.Context, msg queue.Message) error {
	switch msg.Envelope.Type {
	case queue.EventRelationshipQuery:
		query, err := queue.ParseRelationshipQuery(msg.Envelope.Data)
		if err != nil {
			h.logger.Warn("dropping unparseable relationship query",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			return nil
		}
		return h.handleQuery(ctx, query)
	default:
		h.logger.Debug("skipping message of unknown type",
			zap.String("message_id", msg.ID),
			zap.String("type", msg.Envelope.Type))
		return nil
	}
}

func (h *Handler) handleQuery(ctx context.Context, query queue.RelationshipQuery) error {
	answer := queue.RelationshipAnswer{
		RequestID: query.RequestID,
		Status:    http.StatusOK,
		Timestamp: time.Now().Unix(),
	}

	ids, err := h.resolve(ctx, query)
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		answer.Status = http.StatusNotFound
	case err != nil:
		return fmt.Errorf("resolve relationship query %s: %w", query.RequestID, err)
	default:
		answer.UserIDs = ids
	}

	if _, err := h.publisher.Publish(ctx, queue.StreamRelationshipAnswers, answer); err != nil {
		return fmt.Errorf("publish relationship answer %s: %w", query.RequestID, err)
	}

	h.logger.Info("answered relationship query",
		zap.String("request_id", query.RequestID),
		zap.String("kind", query.Kind),
		zap.Int("status", answer.Status),
		zap.Int("count", len(answer.UserIDs)))

	return nil
}

func (h *Handler) resolve(ctx context.Context, query queue.RelationshipQuery) ([]uuid.UUID, error) {
	if _, err := h.users.GetByID(ctx, query.UserID); err != nil {
		return nil, err
	}

	switch query.Kind {
	case queue.QueryFollowers:
		return h.relationships.FollowerIDs(ctx, query.UserID)
	case queue.QueryBlockedUsers:
		// Both directions: the asker wants everyone the subject must not see.
		blocked, err := h.relationships.BlockedIDs(ctx, query.UserID)
		if err != nil {
			return nil, err
		}
		blockers, err := h.relationships.BlockerIDs(ctx, query.UserID)
		if err != nil {
			return nil, err
		}
		return append(blocked, blockers...), nil
	default:
		return nil, fmt.Errorf("unknown query kind %q", query.Kind)
	}
}
