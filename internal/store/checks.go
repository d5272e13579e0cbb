package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eguard/eguard-backend/internal/apperr"
	"github.com/eguard/eguard-backend/internal/models"
)

// CheckStore persists email checks. Every read and delete is scoped to the
// owning user.
type CheckStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewCheckStore(db *mongo.Database) *CheckStore {
	return &CheckStore{coll: db.Collection(ChecksCollection), now: time.Now}
}

// Create validates and inserts c and sets its ID.
func (s *CheckStore) Create(ctx context.Context, c *models.EmailCheck) error {
	now := s.now().UTC()
	if c.CheckedAt.IsZero() {
		c.CheckedAt = now
	}
	c.CreatedAt, c.UpdatedAt = now, now
	if c.BreachDetails == nil {
		c.BreachDetails = []models.BreachDetail{}
	}

	if err := models.ValidateEmailCheck(c); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, c)
	if err != nil {
		return fmt.Errorf("insert email check: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = id
	}
	return nil
}

// List returns the user's checks, newest first.
func (s *CheckStore) List(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.EmailCheck, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "checkedAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find email checks: %w", err)
	}
	defer cur.Close(ctx)

	checks := []models.EmailCheck{}
	if err := cur.All(ctx, &checks); err != nil {
		return nil, fmt.Errorf("decode email checks: %w", err)
	}
	return checks, nil
}

func (s *CheckStore) Count(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	n, err := s.coll.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("count email checks: %w", err)
	}
	return n, nil
}

// Stats aggregates the user's checks made at or after since. A zero since
// covers all time.
func (s *CheckStore) Stats(ctx context.Context, userID primitive.ObjectID, since time.Time) (models.UserStats, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	match := bson.M{"userId": userID}
	if !since.IsZero() {
		match["checkedAt"] = bson.M{"$gte": since}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalChecks", Value: bson.M{"$sum": 1}},
			{Key: "breachedCount", Value: bson.M{"$sum": bson.M{"$cond": bson.A{"$breached", 1, 0}}}},
			{Key: "totalBreaches", Value: bson.M{"$sum": "$breaches"}},
			{Key: "lastCheck", Value: bson.M{"$max": "$checkedAt"}},
			{Key: "uniqueEmails", Value: bson.M{"$addToSet": "$email"}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "totalChecks", Value: 1},
			{Key: "breachedCount", Value: 1},
			{Key: "totalBreaches", Value: 1},
			{Key: "lastCheck", Value: 1},
			{Key: "uniqueEmailCount", Value: bson.M{"$size": "$uniqueEmails"}},
		}}},
	}

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return models.UserStats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	defer cur.Close(ctx)

	var stats models.UserStats
	if cur.Next(ctx) {
		if err := cur.Decode(&stats); err != nil {
			return models.UserStats{}, fmt.Errorf("decode stats: %w", err)
		}
	}
	if err := cur.Err(); err != nil {
		return models.UserStats{}, fmt.Errorf("aggregate stats: %w", err)
	}

	stats.SafeCount = stats.TotalChecks - stats.BreachedCount
	return stats, nil
}

// FindOwned returns the check only if it belongs to userID.
func (s *CheckStore) FindOwned(ctx context.Context, userID, checkID primitive.ObjectID) (*models.EmailCheck, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var c models.EmailCheck
	err := s.coll.FindOne(ctx, bson.M{"_id": checkID, "userId": userID}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Email check record not found")
		}
		return nil, fmt.Errorf("find email check: %w", err)
	}
	return &c, nil
}

// DeleteOwned removes the check only if it belongs to userID and returns the
// deleted document.
func (s *CheckStore) DeleteOwned(ctx context.Context, userID, checkID primitive.ObjectID) (*models.EmailCheck, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var c models.EmailCheck
	err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": checkID, "userId": userID}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("Email check record not found")
		}
		return nil, fmt.Errorf("delete email check: %w", err)
	}
	return &c, nil
}
