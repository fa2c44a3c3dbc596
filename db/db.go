package db

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"claimscope/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var MongoClient *mongo.Client
var MongoDatabase *mongo.Database
var DebateCollection *mongo.Collection

// extractDBName parses the database name from the URI, defaulting to "claimscope"
func extractDBName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "claimscope"
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:] // Trim leading '/'
	}
	return "claimscope"
}

// ConnectMongoDB establishes a connection to MongoDB using the provided URI
func ConnectMongoDB(uri string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify connection with a ping
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	MongoClient = client
	dbName := extractDBName(uri)
	log.Printf("Using database: %s", dbName)

	MongoDatabase = client.Database(dbName)
	DebateCollection = MongoDatabase.Collection("debates")
	return nil
}

// Connected reports whether a database is available. Persistence is
// optional; the streaming endpoints work without it.
func Connected() bool {
	return DebateCollection != nil
}

// SaveDebateRecord persists a completed debate and returns its ID.
func SaveDebateRecord(record *models.DebateRecord) (string, error) {
	if !Connected() {
		return "", fmt.Errorf("database not connected")
	}
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	_, err := DebateCollection.InsertOne(context.Background(), record)
	if err != nil {
		log.Printf("Error saving debate record: %v", err)
		return "", err
	}
	return record.ID.Hex(), nil
}

// ListDebateRecords returns the most recent debates, newest first.
func ListDebateRecords(limit int64) ([]models.DebateRecord, error) {
	if !Connected() {
		return nil, fmt.Errorf("database not connected")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(limit)
	cursor, err := DebateCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.DebateRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetDebateRecord retrieves one debate by its hex ID.
func GetDebateRecord(id string) (*models.DebateRecord, error) {
	if !Connected() {
		return nil, fmt.Errorf("database not connected")
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid debate id: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var record models.DebateRecord
	err = DebateCollection.FindOne(ctx, bson.M{"_id": oid}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("no debate found with id %s", id)
		}
		return nil, err
	}
	return &record, nil
}
