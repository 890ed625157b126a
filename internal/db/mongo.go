package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"bibliophile/server/internal/logging"
)

// Collection names shared by the services.
const (
	UsersCollection          = "users"
	CategoriesCollection     = "categories"
	BooksCollection          = "books"
	BookingsCollection       = "bookings"
	PaymentsCollection       = "payments"
	ReportsCollection        = "reports"
	EmailTemplatesCollection = "email_templates"
)

// ConnectDB initializes and returns a MongoDB client and database instance.
func ConnectDB(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logging.L().Info("connected to MongoDB", zap.String("database", dbName))
	return client, client.Database(dbName), nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	logging.L().Info("MongoDB connection closed")
	return nil
}

// EnsureIndexes creates the indexes the services rely on. It is safe to call
// on every startup; existing indexes with the same definition are left alone.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_1")},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		BooksCollection: {
			{Keys: bson.D{{Key: "category_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "sellerEmail", Value: 1}}},
		},
		BookingsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		ReportsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "reportId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_1_reportId_1")},
		},
	}

	for collection, models := range indexes {
		if _, err := database.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
