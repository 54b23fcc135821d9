// Package mongo persists user snapshots as documents in MongoDB.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"finquest/core"
)

// Config holds MongoDB connection configuration
type Config struct {
	URI            string        `json:"uri" env:"FINQUEST_STORAGE_MONGO_URI"`
	Database       string        `json:"database" env:"FINQUEST_STORAGE_MONGO_DATABASE"`
	Collection     string        `json:"collection" env:"FINQUEST_STORAGE_MONGO_COLLECTION"`
	ConnectTimeout time.Duration `json:"connect_timeout" env:"FINQUEST_STORAGE_MONGO_CONNECT_TIMEOUT"`
}

// DefaultConfig returns sensible defaults for MongoDB configuration
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "finquest",
		Collection:     "user_snapshots",
		ConnectTimeout: 10 * time.Second,
	}
}

// snapshotDoc is the stored document. State holds the JSON form of core.State
// converted to BSON, so money amounts stay exact decimal strings.
type snapshotDoc struct {
	ID        string    `bson:"_id"`
	Version   int64     `bson:"version"`
	Level     int       `bson:"level"`
	TotalXP   int64     `bson:"total_xp"`
	State     bson.Raw  `bson:"state"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store is a snapshot store over one MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// New connects to MongoDB and ensures the ranking index exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}
	coll := client.Database(cfg.Database).Collection(cfg.Collection)

	xpIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "total_xp", Value: -1},
			{Key: "_id", Value: 1},
		},
		Options: options.Index(),
	}
	if _, err := coll.Indexes().CreateOne(ctx, xpIndex); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error creating total_xp index: %w", err)
	}
	return &Store{client: client, coll: coll}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Save upserts the snapshot unless a newer version is already stored.
func (s *Store) Save(ctx context.Context, user core.UserID, st core.State) error {
	doc, err := encodeState(st)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": string(user), "version": bson.M{"$lte": st.Version}}
	update := bson.M{"$set": bson.M{
		"version":    st.Version,
		"level":      st.User.Level,
		"total_xp":   st.User.TotalXP,
		"state":      doc,
		"updated_at": st.Updated,
	}}
	_, err = s.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// a newer version exists; the filter did not match and the upsert collided on _id
		return nil
	}
	if err != nil {
		return fmt.Errorf("error saving snapshot: %w", err)
	}
	return nil
}

// Load reads the user's snapshot.
func (s *Store) Load(ctx context.Context, user core.UserID) (core.State, bool, error) {
	var doc snapshotDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": string(user)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.State{}, false, nil
	}
	if err != nil {
		return core.State{}, false, fmt.Errorf("error loading snapshot: %w", err)
	}
	st, err := decodeState(doc.State)
	if err != nil {
		return core.State{}, false, err
	}
	return st, true, nil
}

// encodeState converts the JSON form of st into a BSON document.
func encodeState(st core.State) (bson.Raw, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("error encoding state: %w", err)
	}
	var doc bson.Raw
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("error converting state to bson: %w", err)
	}
	return doc, nil
}

// decodeState is the inverse of encodeState.
func decodeState(raw bson.Raw) (core.State, error) {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return core.State{}, fmt.Errorf("error converting bson to json: %w", err)
	}
	var st core.State
	if err := json.Unmarshal(data, &st); err != nil {
		return core.State{}, fmt.Errorf("error decoding state: %w", err)
	}
	st.Normalize()
	return st, nil
}
