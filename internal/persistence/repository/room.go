package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hearthlabs/hearth/internal/domain"
	"github.com/hearthlabs/hearth/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type roomRepository struct {
	db *mongo.Database
}

func NewRoomRepository(db *mongo.Database) domain.RoomRepository {
	return &roomRepository{
		db: db,
	}
}

func (r *roomRepository) Insert(ctx context.Context, room *domain.Room) error {
	collection := r.db.Collection(db.RoomsCollection)

	_, err := collection.InsertOne(ctx, room)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrRoomAlreadyExists
	}
	return err
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	collection := r.db.Collection(db.RoomsCollection)

	var room domain.Room
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	return &room, nil
}

func (r *roomRepository) GetLive(ctx context.Context) ([]domain.Room, error) {
	collection := r.db.Collection(db.RoomsCollection)

	filter := bson.M{
		"live":         true,
		"scheduled_at": bson.M{"$exists": false},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []domain.Room
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}

	return rooms, nil
}

func (r *roomRepository) GetScheduledAfter(ctx context.Context, after time.Time) ([]domain.Room, error) {
	collection := r.db.Collection(db.RoomsCollection)

	filter := bson.M{
		"scheduled_at": bson.M{"$gt": after},
	}
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []domain.Room
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}

	return rooms, nil
}

func (r *roomRepository) Delete(ctx context.Context, id string) error {
	collection := r.db.Collection(db.RoomsCollection)

	res, err := collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrRoomNotFound
	}

	return nil
}

func (r *roomRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.RoomsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "live", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "scheduled_at", Value: 1}},
			Options: options.Index().
				SetPartialFilterExpression(bson.M{"scheduled_at": bson.M{"$exists": true}}),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
