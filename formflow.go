package formflow

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/formflow/internal/definition"
	"github.com/petrijr/formflow/internal/files"
	"github.com/petrijr/formflow/internal/forms"
	"github.com/petrijr/formflow/internal/httpapi"
	"github.com/petrijr/formflow/internal/outbox"
	"github.com/petrijr/formflow/internal/persistence"
	"github.com/petrijr/formflow/internal/wizard"
	"github.com/petrijr/formflow/pkg/api"
	"github.com/petrijr/formflow/pkg/worker"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Wizard         = api.Wizard
	Session        = api.Session
	Config         = api.Config
	StepNames      = api.StepNames
	Spec           = api.Spec
	StepSpec       = api.StepSpec
	SpecFactory    = api.SpecFactory
	Catalog        = api.Catalog
	FormGroup      = api.FormGroup
	TaggedForm     = api.TaggedForm
	FormDescriptor = api.FormDescriptor
	Form           = api.Form
	Binding        = api.Binding
	Values         = api.Values
	File           = api.File
	Files          = api.Files
	Condition      = api.Condition
	Conditions     = api.Conditions
	Predicate      = api.Predicate
	StateAccessor  = api.StateAccessor
	Storage        = api.Storage
	StorageBackend = api.StorageBackend
	FileStorage    = api.FileStorage
	Snapshot       = api.Snapshot
	Completion     = api.Completion
	Phase          = api.Phase
	DoneHandler    = api.DoneHandler
	InitialFunc    = api.InitialFunc
	InstanceFunc   = api.InstanceFunc
	Renderer       = api.Renderer

	ConfigurationError = api.ConfigurationError
	ValidationError    = api.ValidationError
	NavigationError    = api.NavigationError
	StaleStateError    = api.StaleStateError

	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver

	Submission  = outbox.Submission
	Queue       = outbox.Queue
	Receipt     = outbox.Receipt
	HTTPOptions = httpapi.Options
)

// Re-export group, condition and observer helpers.

var (
	Single      = api.Single
	Tagged      = api.Tagged
	Tag         = api.Tag
	When        = api.When
	If          = api.If
	FieldEquals = api.FieldEquals
	Not         = api.Not

	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Declarative forms.

type (
	FormSchema = forms.Schema
	FormSet    = forms.FormSet
	Field      = forms.Field
)

var (
	NewForm    = forms.New
	NewFormSet = forms.NewFormSet

	TextField        = forms.Text
	BoolField        = forms.Bool
	IntField         = forms.Int
	EmailField       = forms.Email
	DateField        = forms.Date
	FileField        = forms.FileUpload
	SelectField      = forms.Select
	MultiSelectField = forms.MultiSelect
)

// Re-export sentinel errors for errors.Is.

var (
	ErrConfiguration = api.ErrConfiguration
	ErrValidation    = api.ErrValidation
	ErrNavigation    = api.ErrNavigation
	ErrStaleState    = api.ErrStaleState
)

// NewWizard compiles cfg into a Wizard.
func NewWizard(cfg Config) (Wizard, error) {
	return wizard.New(cfg)
}

// LoadDefinition reads a YAML wizard definition and compiles it into a
// Config. Hooks such as Done or FileStorage can be set on the result before
// it is passed to NewWizard.
func LoadDefinition(path string) (Config, error) {
	def, err := definition.LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	return def.Config()
}

// Storage backend constructors.
// These wrap the internal/persistence package so external callers
// never need to import internal packages.

// NewMemoryBackend keeps sessions in process memory.
func NewMemoryBackend() StorageBackend {
	return persistence.NewMemoryBackend()
}

// OpenSQLite opens a SQLite database suitable for NewSQLiteBackend and
// NewSQLiteQueue.
func OpenSQLite(path string) (*sqlx.DB, error) {
	return persistence.OpenSQLite(path, 0)
}

// NewSQLiteBackend persists sessions in SQLite.
func NewSQLiteBackend(db *sqlx.DB) (StorageBackend, error) {
	b, err := persistence.NewSQLiteBackend(db)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// NewPostgresBackend persists sessions in PostgreSQL. db must use the pgx
// stdlib driver.
func NewPostgresBackend(db *sql.DB) (StorageBackend, error) {
	b, err := persistence.NewPostgresBackend(db)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// NewRedisBackend persists sessions in Redis hashes. A positive ttl expires
// idle sessions.
func NewRedisBackend(client redis.UniversalClient, prefix string, ttl time.Duration) StorageBackend {
	return persistence.NewRedisBackend(client, prefix, ttl)
}

// NewMongoBackend persists sessions in MongoDB database dbName.
func NewMongoBackend(ctx context.Context, client *mongo.Client, dbName string) (StorageBackend, error) {
	b, err := persistence.NewMongoBackend(ctx, client, dbName)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// File storage constructors.

// NewFileStorage stores uploads below dir on disk.
func NewFileStorage(dir string) (FileStorage, error) {
	s, err := files.NewOS(dir)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemoryFileStorage keeps uploads in memory.
func NewMemoryFileStorage() FileStorage {
	return files.NewMemory()
}

// NewHTTPHandler serves w over HTTP with sessions in backend.
func NewHTTPHandler(w Wizard, backend StorageBackend, opts HTTPOptions) http.Handler {
	return httpapi.New(w, backend, opts)
}

// Outbox constructors.

// NewInMemoryQueue returns a submission queue with the given capacity.
func NewInMemoryQueue(capacity int) Queue {
	return outbox.NewInMemoryQueue(capacity)
}

// NewSQLiteQueue returns a persistent submission queue in db.
func NewSQLiteQueue(db *sqlx.DB) (Queue, error) {
	q, err := outbox.NewSQLiteQueue(db)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// NewPostgresQueue returns a submission queue in PostgreSQL. db must use
// the pgx stdlib driver.
func NewPostgresQueue(db *sql.DB) (Queue, error) {
	q, err := outbox.NewPostgresQueue(db)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// NewMongoQueue returns a submission queue in collection collName of dbName.
// Empty names select "formflow" and "wizard_outbox".
func NewMongoQueue(client *mongo.Client, dbName, collName string) Queue {
	return outbox.NewMongoQueue(client, dbName, collName)
}

// NewRedisQueue returns a submission queue on a Redis list.
func NewRedisQueue(client redis.UniversalClient, prefix string) Queue {
	return outbox.NewRedisQueue(client, prefix)
}

// OutboxHandler returns a DoneHandler that enqueues completed wizards on q
// and answers with a Receipt.
func OutboxHandler(wizardName string, q Queue) DoneHandler {
	return outbox.Handler(wizardName, q)
}

// NewWorker returns a worker draining q into p.
func NewWorker(p worker.Processor, q Queue, cfg worker.Config) *worker.Worker {
	return worker.NewWithConfig(p, q, cfg)
}
