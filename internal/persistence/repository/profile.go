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

type profileRepository struct {
	db *mongo.Database
}

func NewProfileRepository(db *mongo.Database) domain.ProfileRepository {
	return &profileRepository{
		db: db,
	}
}

func (r *profileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	collection := r.db.Collection(db.ProfilesCollection)

	filter := bson.M{"_id": profile.UserID}
	update := bson.M{
		"$set": bson.M{
			"display_name": profile.DisplayName,
			"avatar_ref":   profile.AvatarRef,
			"updated_at":   profile.UpdatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *profileRepository) GetByID(ctx context.Context, userID string) (*domain.Profile, error) {
	collection := r.db.Collection(db.ProfilesCollection)

	var profile domain.Profile
	err := collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *profileRepository) GetByIDs(ctx context.Context, userIDs []string) (map[string]domain.Profile, error) {
	if len(userIDs) == 0 {
		return map[string]domain.Profile{}, nil
	}

	collection := r.db.Collection(db.ProfilesCollection)

	cursor, err := collection.Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var profiles []domain.Profile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.UserID] = p
	}

	return byID, nil
}
