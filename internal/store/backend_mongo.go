package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBackend persists the aggregate as a single document keyed by
// _id in a MongoDB collection.
type MongoBackend struct {
	client     *mongo.Client
	collection *mongo.Collection
	key        string
}

// storeDocument is the persisted document shape.
type storeDocument struct {
	ID        string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoBackend connects to MongoDB and selects the collection
// holding the store document.
func NewMongoBackend(ctx context.Context, uri, database, collection, key string) (*MongoBackend, error) {
	if uri == "" {
		return nil, fmt.Errorf("MongoDB connection URI is required")
	}
	if database == "" || collection == "" {
		return nil, fmt.Errorf("MongoDB database and collection are required")
	}
	if key == "" {
		return nil, fmt.Errorf("store key is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoBackend{
		client:     client,
		collection: client.Database(database).Collection(collection),
		key:        key,
	}, nil
}

// Load reads the store document, returning (nil, nil) when it does not
// exist yet.
func (b *MongoBackend) Load(ctx context.Context) ([]byte, error) {
	var doc storeDocument
	err := b.collection.FindOne(ctx, bson.M{"_id": b.key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store document: %w", err)
	}
	return doc.Value, nil
}

// Save upserts the store document.
func (b *MongoBackend) Save(ctx context.Context, data []byte) error {
	doc := storeDocument{ID: b.key, Value: data, UpdatedAt: time.Now().UTC()}
	_, err := b.collection.ReplaceOne(ctx, bson.M{"_id": b.key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write store document: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (b *MongoBackend) Close() error {
	if b.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := b.client.Disconnect(ctx)
		b.client = nil
		return err
	}
	return nil
}
