package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const startTimeout = 3 * time.Minute

// shared starts one container per test binary and remembers its endpoint
// or the error that prevented it.
type shared struct {
	name     string
	once     sync.Once
	endpoint string
	err      error
}

func (s *shared) get(t *testing.T, start func(ctx context.Context) (string, error)) string {
	t.Helper()
	SkipIfShort(t)

	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()
		s.endpoint, s.err = start(ctx)
	})

	requireContainer(t, s.name, s.err)
	return s.endpoint
}

// run starts image and returns the host:port of its first exposed port.
func run(ctx context.Context, image, port string, strategy wait.Strategy, opts ...testcontainers.ContainerCustomizer) (string, error) {
	opts = append(opts,
		testcontainers.WithExposedPorts(port),
		testcontainers.WithWaitStrategy(strategy),
	)
	c, err := testcontainers.Run(ctx, image, opts...)
	if err != nil {
		return "", err
	}
	return c.Endpoint(ctx, "")
}

var (
	redisContainer    = &shared{name: "redis"}
	postgresContainer = &shared{name: "postgres"}
	mongoContainer    = &shared{name: "mongo"}
)

// GetRedisAddress returns the host:port of a shared Redis. The outbox claims
// submissions with a Lua script, so readiness includes a working EVAL.
func GetRedisAddress(t *testing.T) string {
	t.Helper()
	return redisContainer.get(t, func(ctx context.Context) (string, error) {
		return run(ctx, "redis:7", "6379/tcp", wait.ForAll(
			wait.ForListeningPort("6379/tcp"),
			wait.ForLog("Ready to accept connections"),
			wait.ForExec([]string{"redis-cli", "EVAL", "return 1", "0"}),
		))
	})
}

const (
	pgUser     = "formflow"
	pgPassword = "formflow"
	pgDatabase = "formflow_test"
)

func postgresDSN(hostPort string) string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", pgUser, pgPassword, hostPort, pgDatabase)
}

// GetPostgresDSN returns a pgx DSN of a shared PostgreSQL. Readiness is
// checked through the pgx stdlib driver the backends use.
func GetPostgresDSN(t *testing.T) string {
	t.Helper()
	endpoint := postgresContainer.get(t, func(ctx context.Context) (string, error) {
		return run(ctx, "postgres:16", "5432/tcp",
			wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("ready to accept connections"),
				wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
					return postgresDSN(host + ":" + port.Port())
				}).WithQuery("SELECT 1"),
			).WithDeadline(2*time.Minute),
			testcontainers.WithEnv(map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			}),
		)
	})
	return postgresDSN(endpoint)
}

// GetMongoURI returns the connection URI of a shared MongoDB that answers
// ping.
func GetMongoURI(t *testing.T) string {
	t.Helper()
	endpoint := mongoContainer.get(t, func(ctx context.Context) (string, error) {
		return run(ctx, "mongo:7", "27017/tcp", wait.ForAll(
			wait.ForListeningPort("27017/tcp"),
			wait.ForLog("mongod startup complete"),
			wait.ForExec([]string{"mongosh", "--quiet", "--eval", "db.adminCommand({ping: 1})"}),
		))
	})
	return "mongodb://" + endpoint
}
