package repository

import (
	"context"
	"time"

	"github.com/hearthlabs/hearth/internal/domain"
	"github.com/hearthlabs/hearth/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type moderationAuditRepository struct {
	db *mongo.Database
}

func NewModerationAuditRepository(db *mongo.Database) domain.ModerationAuditRepository {
	return &moderationAuditRepository{
		db: db,
	}
}

func (r *moderationAuditRepository) Log(ctx context.Context, log *domain.ModerationAuditLog) error {
	collection := r.db.Collection(db.ModerationAuditLogCollection)

	_, err := collection.InsertOne(ctx, log)
	return err
}

func (r *moderationAuditRepository) GetByRoomID(ctx context.Context, roomID string, limit int) ([]domain.ModerationAuditLog, error) {
	collection := r.db.Collection(db.ModerationAuditLogCollection)

	filter := bson.M{"room_id": roomID}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.ModerationAuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func (r *moderationAuditRepository) DeleteOlderThan(ctx context.Context, before time.Time) error {
	collection := r.db.Collection(db.ModerationAuditLogCollection)

	filter := bson.M{
		"timestamp": bson.M{
			"$lt": before,
		},
	}

	_, err := collection.DeleteMany(ctx, filter)
	return err
}

func (r *moderationAuditRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.ModerationAuditLogCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(2592000), // 30 days TTL
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
