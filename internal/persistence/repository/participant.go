package repository

import (
	"context"
	"errors"

	"github.com/hearthlabs/hearth/internal/domain"
	"github.com/hearthlabs/hearth/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type participantRepository struct {
	db *mongo.Database
}

func NewParticipantRepository(db *mongo.Database) domain.ParticipantRepository {
	return &participantRepository{
		db: db,
	}
}

// Upsert is keyed by (room_id, user_id) with $setOnInsert only, so a
// concurrent join of the same user can never produce a second row or
// clobber role flags already granted by a moderator.
func (r *participantRepository) Upsert(ctx context.Context, p *domain.Participant) (*domain.Participant, error) {
	collection := r.db.Collection(db.ParticipantsCollection)

	filter := bson.M{
		"room_id": p.RoomID,
		"user_id": p.UserID,
	}
	update := bson.M{
		"$setOnInsert": bson.M{
			"room_id":      p.RoomID,
			"user_id":      p.UserID,
			"is_moderator": p.IsModerator,
			"is_speaking":  p.IsSpeaking,
			"muted":        p.Muted,
			"joined_at":    p.JoinedAt,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored domain.Participant
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the race to another upsert of the same key; the winner's
		// row is the one we want.
		return r.GetByRoomAndUser(ctx, p.RoomID, p.UserID)
	}
	if err != nil {
		return nil, err
	}

	return &stored, nil
}

func (r *participantRepository) GetByRoom(ctx context.Context, roomID string) ([]domain.Participant, error) {
	collection := r.db.Collection(db.ParticipantsCollection)

	opts := options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}})

	cursor, err := collection.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var participants []domain.Participant
	if err := cursor.All(ctx, &participants); err != nil {
		return nil, err
	}

	return participants, nil
}

func (r *participantRepository) GetByRoomAndUser(ctx context.Context, roomID, userID string) (*domain.Participant, error) {
	collection := r.db.Collection(db.ParticipantsCollection)

	filter := bson.M{
		"room_id": roomID,
		"user_id": userID,
	}

	var p domain.Participant
	err := collection.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *participantRepository) SetRoleFlags(ctx context.Context, roomID, userID string, flags domain.RoleFlags) (*domain.Participant, error) {
	collection := r.db.Collection(db.ParticipantsCollection)

	filter := bson.M{
		"room_id": roomID,
		"user_id": userID,
	}
	update := bson.M{
		"$set": bson.M{
			"is_moderator": flags.IsModerator,
			"is_speaking":  flags.IsSpeaking,
			"muted":        flags.Muted,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p domain.Participant
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *participantRepository) Delete(ctx context.Context, roomID, userID string) error {
	collection := r.db.Collection(db.ParticipantsCollection)

	filter := bson.M{
		"room_id": roomID,
		"user_id": userID,
	}

	_, err := collection.DeleteOne(ctx, filter)
	return err
}

func (r *participantRepository) DeleteByRoom(ctx context.Context, roomID string) error {
	collection := r.db.Collection(db.ParticipantsCollection)

	_, err := collection.DeleteMany(ctx, bson.M{"room_id": roomID})
	return err
}

func (r *participantRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.ParticipantsCollection)

	indexes := []mongo.IndexModel{
		{
			// One membership row per (room, user), enforced by the store.
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "is_speaking", Value: 1},
			},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
