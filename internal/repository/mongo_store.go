package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/liliang-cn/gmassist/internal/domain"
)

// MongoScriptStore keeps scripts in a MongoDB collection. Documents are keyed
// by the string "id" field; the generated ObjectID "_id" gives insertion order.
type MongoScriptStore struct {
	client   *mongo.Client
	coll     *mongo.Collection
	database string
}

// NewMongoScriptStore connects to MongoDB and ensures the id index exists
func NewMongoScriptStore(ctx context.Context, uri, database, collection string) (*MongoScriptStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create script index: %w", err)
	}

	return &MongoScriptStore{client: client, coll: coll, database: database}, nil
}

// Create creates a new script
func (s *MongoScriptStore) Create(ctx context.Context, script *domain.Script) error {
	if script.ID == "" {
		script.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	script.CreatedAt = now
	script.UpdatedAt = now

	_, err := s.coll.InsertOne(ctx, script)
	return err
}

// Get retrieves a script by ID
func (s *MongoScriptStore) Get(ctx context.Context, id string) (*domain.Script, error) {
	var script domain.Script
	err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&script)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &script, nil
}

// List retrieves scripts in insertion order
func (s *MongoScriptStore) List(ctx context.Context, offset, limit int) ([]*domain.Script, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	return s.find(ctx, bson.M{}, opts)
}

// Update updates a script
func (s *MongoScriptStore) Update(ctx context.Context, script *domain.Script) error {
	script.UpdatedAt = time.Now().UTC()
	result, err := s.coll.UpdateOne(ctx, bson.M{"id": script.ID}, bson.M{"$set": bson.M{
		"title":              script.Title,
		"description":        script.Description,
		"content":            script.Content,
		"scene_descriptions": script.SceneDescriptions,
		"updated_at":         script.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("script %s: %w", script.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete deletes a script
func (s *MongoScriptStore) Delete(ctx context.Context, id string) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("script %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Count returns the number of stored scripts
func (s *MongoScriptStore) Count(ctx context.Context) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	return int(n), err
}

// SearchScripts ORs a case-insensitive regex over title, content and scene descriptions
func (s *MongoScriptStore) SearchScripts(ctx context.Context, keywords []string, limit int) ([]*domain.Script, error) {
	if len(keywords) == 0 || limit <= 0 {
		return nil, nil
	}

	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	re := primitive.Regex{Pattern: strings.Join(quoted, "|"), Options: "i"}

	filter := bson.M{"$or": bson.A{
		bson.M{"title": re},
		bson.M{"content": re},
		bson.M{"scene_descriptions": re},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	scripts, err := s.find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("search scripts: %w", err)
	}
	return scripts, nil
}

func (s *MongoScriptStore) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*domain.Script, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var scripts []*domain.Script
	if err := cursor.All(ctx, &scripts); err != nil {
		return nil, err
	}
	return scripts, nil
}

// Ping checks the server is reachable
func (s *MongoScriptStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Database returns the MongoDB database name
func (s *MongoScriptStore) Database() string {
	return s.database
}

// Close disconnects the client
func (s *MongoScriptStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ ScriptStore = (*MongoScriptStore)(nil)
