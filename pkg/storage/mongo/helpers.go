package mongo

import (
	"context"

	"greenscore/pkg/storage"
)

var MongoTestConf = &Config{
	Host:   "localhost",
	Port:   "27018",
	DBName: "greenscore_test",
}

// StorageConnect is a helper function that establishes a connection to the predefined test Mongo instance.
// It returns a connected Storage object or an error if connection fails.
func StorageConnect(ctx context.Context) (*Storage, error) {
	db, err := New(ctx, MongoTestConf)
	if err != nil {
		return nil, storage.ErrConnectDB
	}

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, storage.ErrDBNotResponding
	}

	return db, nil
}

// RestoreDB drops the call log and counter collections to reset the database state.
// WARNING: Use only in tests to avoid data loss.
func RestoreDB(ctx context.Context, db *Storage) error {
	for _, name := range []string{entriesColl, countersColl} {
		if err := db.client.Database(db.dbName).Collection(name).Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}
