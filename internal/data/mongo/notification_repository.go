package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aqqutelabs/gotoken-ledger/internal/domain/notification"
)

const (
	// NotificationCollectionName is the name of the notifications collection in MongoDB
	NotificationCollectionName = "notifications"
)

// NotificationRepository implements the notification.Repository interface for MongoDB
type NotificationRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewNotificationRepository creates a new MongoDB notification repository
func NewNotificationRepository(logger *slog.Logger, db *mongo.Database) notification.Repository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new notification document
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	collection := r.db.Collection(NotificationCollectionName)

	_, err := collection.InsertOne(ctx, n)
	if err != nil {
		r.logger.Error("Failed to create notification",
			"account_id", n.AccountID.String(),
			"kind", string(n.Kind),
			"error", err)
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListByAccount retrieves paginated notifications for an account.
// Results are sorted by creation time in descending order (newest first).
func (r *NotificationRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*notification.Notification, error) {
	collection := r.db.Collection(NotificationCollectionName)

	filter := bson.M{"account_id": accountID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list notifications",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []*notification.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		r.logger.Error("Failed to decode notifications",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead flags a notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	collection := r.db.Collection(NotificationCollectionName)

	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{"read": true}}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to mark notification read",
			"notification_id", id.String(),
			"error", err)
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("notification %s not found", id)
	}

	return nil
}
