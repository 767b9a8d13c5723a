package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greenscore/pkg/models"
	"greenscore/pkg/storage"
)

const (
	entriesColl  = "log_entries"
	countersColl = "counters"
)

type Storage struct {
	client *mongo.Client
	dbName string
}

func New(ctx context.Context, conf *Config) (*Storage, error) {
	client, err := mongo.Connect(ctx, conf.Options())
	if err != nil {
		return nil, err
	}

	s := Storage{client: client, dbName: conf.DBName}
	if err := s.createCollection(ctx, entriesColl); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	return &s, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Storage) Close() {
	s.client.Disconnect(context.Background())
}

// AddEntry reserves the next value of the log_entries sequence and inserts the entry under it.
// Mongo has no identity columns, so ids come from an atomically incremented counter document.
func (s *Storage) AddEntry(ctx context.Context, entry models.LogEntry) (int64, error) {
	id, err := s.nextID(ctx, entriesColl)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate entry id: %w", err)
	}

	entry.ID = id
	coll := s.client.Database(s.dbName).Collection(entriesColl)
	if _, err := coll.InsertOne(ctx, entry); err != nil {
		return 0, err
	}

	return id, nil
}

func (s *Storage) LatestEntries(ctx context.Context, limit int) ([]models.LogEntry, error) {
	if !storage.ValidLimit(limit) {
		return nil, storage.ErrInvalidLimit
	}

	coll := s.client.Database(s.dbName).Collection(entriesColl)
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(limit))

	cur, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}

	entries := []models.LogEntry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *Storage) nextID(ctx context.Context, seq string) (int64, error) {
	coll := s.client.Database(s.dbName).Collection(countersColl)
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := coll.FindOneAndUpdate(ctx, bson.M{"_id": seq}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&counter)
	if err != nil {
		return 0, err
	}

	return counter.Seq, nil
}

// createCollection creates a collection with the given name in the database if it doesn't already exist.
func (s *Storage) createCollection(ctx context.Context, collName string) error {
	collExists, err := collectionExists(ctx, s.client.Database(s.dbName), collName)
	if err != nil {
		return err
	}

	if !collExists {
		return s.client.Database(s.dbName).CreateCollection(ctx, collName)
	}

	return nil
}

// collectionExists checks if a collection with the given name exists in the database.
func collectionExists(ctx context.Context, db *mongo.Database, collName string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return false, fmt.Errorf("failed to list collection names: %w", err)
	}

	for _, name := range names {
		if name == collName {
			return true, nil
		}
	}

	return false, nil
}
