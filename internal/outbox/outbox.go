// Package outbox queues finished wizard submissions for asynchronous
// processing. A committed wizard hands its cleaned data to the outbox and
// returns immediately; a worker drains the queue into downstream systems.
package outbox

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/formflow/pkg/api"
)

func init() {
	gob.Register(map[string]any{})
	gob.Register([]map[string]any{})
	gob.Register([]any{})
	gob.Register([]string{})
	gob.Register(time.Time{})
	gob.Register(api.File{})
}

// Submission is one committed wizard run.
type Submission struct {
	ID     string
	Wizard string

	// Steps is the active sequence at commit time.
	Steps []string
	// Data maps step -> cleaned data.
	Data map[string]map[string]any

	SubmittedAt time.Time

	// NotBefore is the earliest time the submission may be processed. Zero
	// means immediately.
	NotBefore time.Time
	// Attempts counts failed processing attempts so far.
	Attempts int
}

// Queue orders submissions by NotBefore (zero means the enqueue time) and
// then by insertion.
type Queue interface {
	// Enqueue adds a submission. It should respect ctx for cancellation.
	Enqueue(ctx context.Context, s Submission) error

	// Dequeue removes and returns the first eligible submission, blocking
	// until one is due or the context is cancelled. A delayed submission
	// never holds back an eligible one.
	Dequeue(ctx context.Context) (*Submission, error)

	// Len returns the approximate number of queued submissions.
	Len() int
}

// Receipt is what the done handler returned by Handler answers with.
type Receipt struct {
	SubmissionID string `json:"submission_id"`
	Queued       bool   `json:"queued"`
}

// Handler returns a done handler that enqueues every completion on q.
func Handler(wizard string, q Queue) api.DoneHandler {
	return func(ctx context.Context, c *api.Completion) (any, error) {
		s := FromCompletion(wizard, c)
		if err := q.Enqueue(ctx, s); err != nil {
			return nil, err
		}
		return Receipt{SubmissionID: s.ID, Queued: true}, nil
	}
}

// FromCompletion builds a submission with a fresh ID.
func FromCompletion(wizard string, c *api.Completion) Submission {
	return Submission{
		ID:          uuid.NewString(),
		Wizard:      wizard,
		Steps:       append([]string(nil), c.Steps...),
		Data:        c.CleanedData,
		SubmittedAt: time.Now().UTC(),
	}
}

// EncodeSubmission gob-encodes a Submission.
func EncodeSubmission(s Submission) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSubmission gob-decodes a Submission.
func DecodeSubmission(data []byte) (*Submission, error) {
	var s Submission
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
