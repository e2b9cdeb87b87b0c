package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/formflow/pkg/api"
)

// MongoBackend is a StorageBackend on MongoDB. Session documents hold the
// cursor and extra data; every answered step is a document of its own,
// unique on (session_key, step).
type MongoBackend struct {
	sessions *mongo.Collection
	steps    *mongo.Collection
}

var (
	_ api.StorageBackend = (*MongoBackend)(nil)
	_ api.Storage        = (*mongoStorage)(nil)
)

type mongoSessionDoc struct {
	Key       string    `bson:"_id"`
	Current   string    `bson:"current_step"`
	Extra     []byte    `bson:"extra,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoStepDoc struct {
	Key   string `bson:"session_key"`
	Step  string `bson:"step"`
	Data  []byte `bson:"data,omitempty"`
	Files []byte `bson:"files,omitempty"`
}

// NewMongoBackend creates a MongoBackend in database dbName (default
// "formflow") and ensures its indexes.
func NewMongoBackend(ctx context.Context, client *mongo.Client, dbName string) (*MongoBackend, error) {
	if dbName == "" {
		dbName = "formflow"
	}
	db := client.Database(dbName)
	b := &MongoBackend{
		sessions: db.Collection("wizard_sessions"),
		steps:    db.Collection("wizard_steps"),
	}

	_, err := b.steps.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_key", Value: 1}, {Key: "step", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create step index: %w", err)
	}
	return b, nil
}

func (b *MongoBackend) Storage(key string) api.Storage {
	return &mongoStorage{b: b, key: key}
}

type mongoStorage struct {
	b   *MongoBackend
	key string
}

func (m *mongoStorage) session(ctx context.Context) (*mongoSessionDoc, error) {
	var doc mongoSessionDoc
	err := m.b.sessions.FindOne(ctx, bson.M{"_id": m.key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *mongoStorage) updateSession(ctx context.Context, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	_, err := m.b.sessions.UpdateOne(ctx,
		bson.M{"_id": m.key},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *mongoStorage) step(ctx context.Context, step string) (*mongoStepDoc, error) {
	var doc mongoStepDoc
	err := m.b.steps.FindOne(ctx, bson.M{"session_key": m.key, "step": step}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *mongoStorage) updateStep(ctx context.Context, step, field string, payload []byte) error {
	update := bson.M{"$set": bson.M{field: payload}}
	if payload == nil {
		update = bson.M{"$unset": bson.M{field: ""}}
	}
	_, err := m.b.steps.UpdateOne(ctx,
		bson.M{"session_key": m.key, "step": step},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *mongoStorage) CurrentStep(ctx context.Context) (string, error) {
	doc, err := m.session(ctx)
	if err != nil || doc == nil {
		return "", err
	}
	return doc.Current, nil
}

func (m *mongoStorage) SetCurrentStep(ctx context.Context, step string) error {
	return m.updateSession(ctx, bson.M{"current_step": step})
}

func (m *mongoStorage) StepData(ctx context.Context, step string) (api.Values, error) {
	doc, err := m.step(ctx, step)
	if err != nil || doc == nil {
		return nil, err
	}
	return decodeStepData(doc.Data)
}

func (m *mongoStorage) SetStepData(ctx context.Context, step string, data api.Values) error {
	payload, err := EncodeValue(valuesOrNil(data))
	if err != nil {
		return err
	}
	return m.updateStep(ctx, step, "data", payload)
}

func (m *mongoStorage) StepFiles(ctx context.Context, step string) (api.Files, error) {
	doc, err := m.step(ctx, step)
	if err != nil || doc == nil {
		return nil, err
	}
	return decodeStepFiles(doc.Files)
}

func (m *mongoStorage) SetStepFiles(ctx context.Context, step string, files api.Files) error {
	payload, err := EncodeValue(filesOrNil(files))
	if err != nil {
		return err
	}
	return m.updateStep(ctx, step, "files", payload)
}

func (m *mongoStorage) ExtraData(ctx context.Context) (map[string]any, error) {
	doc, err := m.session(ctx)
	if err != nil || doc == nil {
		return nil, err
	}
	return decodeExtra(doc.Extra)
}

func (m *mongoStorage) SetExtraData(ctx context.Context, extra map[string]any) error {
	payload, err := EncodeValue(extraOrNil(extra))
	if err != nil {
		return err
	}
	return m.updateSession(ctx, bson.M{"extra": payload})
}

func (m *mongoStorage) Reset(ctx context.Context) error {
	if _, err := m.b.steps.DeleteMany(ctx, bson.M{"session_key": m.key}); err != nil {
		return fmt.Errorf("delete steps: %w", err)
	}
	if _, err := m.b.sessions.DeleteOne(ctx, bson.M{"_id": m.key}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
