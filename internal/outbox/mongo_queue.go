package outbox

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoQueue implements Queue on a MongoDB collection.
//
// Document shape:
//
//	{
//	  _id:         ObjectId,
//	  submission:  string,
//	  wizard:      string,
//	  payload:     []byte,    // gob-encoded Submission
//	  enqueued_at: time.Time,
//	  not_before:  time.Time,
//	}
type MongoQueue struct {
	coll         *mongo.Collection
	pollInterval time.Duration
}

// NewMongoQueue creates a Mongo-backed queue.
// dbName defaults to "formflow", collName to "wizard_outbox".
func NewMongoQueue(client *mongo.Client, dbName, collName string) *MongoQueue {
	if dbName == "" {
		dbName = "formflow"
	}
	if collName == "" {
		collName = "wizard_outbox"
	}
	return &MongoQueue{
		coll:         client.Database(dbName).Collection(collName),
		pollInterval: 100 * time.Millisecond,
	}
}

var _ Queue = (*MongoQueue)(nil)

type mongoOutboxDoc struct {
	Submission string    `bson:"submission"`
	Wizard     string    `bson:"wizard"`
	Payload    []byte    `bson:"payload"`
	EnqueuedAt time.Time `bson:"enqueued_at"`
	NotBefore  time.Time `bson:"not_before"`
}

func (q *MongoQueue) Enqueue(ctx context.Context, s Submission) error {
	data, err := EncodeSubmission(s)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	notBefore := now
	if !s.NotBefore.IsZero() {
		notBefore = s.NotBefore.UTC()
	}
	_, err = q.coll.InsertOne(ctx, mongoOutboxDoc{
		Submission: s.ID,
		Wizard:     s.Wizard,
		Payload:    data,
		EnqueuedAt: now,
		NotBefore:  notBefore,
	})
	return err
}

// Dequeue blocks (via polling) until a submission is eligible or ctx is
// cancelled.
func (q *MongoQueue) Dequeue(ctx context.Context) (*Submission, error) {
	tmr := time.NewTimer(0)
	if !tmr.Stop() {
		<-tmr.C
	}
	defer tmr.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var doc mongoOutboxDoc
		err := q.coll.FindOneAndDelete(
			ctx,
			bson.M{"not_before": bson.M{"$lte": time.Now().UTC()}},
			options.FindOneAndDelete().SetSort(bson.D{{Key: "not_before", Value: 1}, {Key: "_id", Value: 1}}),
		).Decode(&doc)

		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				tmr.Reset(q.pollInterval)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-tmr.C:
				}
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		return DecodeSubmission(doc.Payload)
	}
}

// Len returns an approximate number of queued submissions.
func (q *MongoQueue) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := q.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0
	}
	return int(n)
}
