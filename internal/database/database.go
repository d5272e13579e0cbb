package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// DefaultDatabase is used when the connection string does not name a database.
const DefaultDatabase = "eguard"

// Mongo bundles the client with the database the service works in.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect dials MongoDB and pings it before returning.
func Connect(ctx context.Context, mongoURI string) (*Mongo, error) {
	dbName, err := DatabaseName(mongoURI)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	// Atlas clusters can take a while to elect a primary after a cold start.
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	slog.Info("connecting to mongodb")
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	slog.Info("connected to mongodb", "database", dbName)

	return &Mongo{Client: client, DB: client.Database(dbName)}, nil
}

// Disconnect closes the client, waiting at most 10 seconds.
func (m *Mongo) Disconnect() error {
	if m == nil || m.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

// DatabaseName returns the database named in the connection string, or
// DefaultDatabase when it names none. mongodb+srv URIs are resolved through DNS.
func DatabaseName(mongoURI string) (string, error) {
	cs, err := connstring.ParseAndValidate(mongoURI)
	if err != nil {
		return "", fmt.Errorf("mongo connection string: %w", err)
	}
	if cs.Database == "" {
		return DefaultDatabase, nil
	}
	return cs.Database, nil
}
