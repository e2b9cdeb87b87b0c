package outbox

import (
	"database/sql"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/suite"

	"github.com/petrijr/formflow/internal/testutil"
)

type PostgresQueueTestSuite struct {
	suite.Suite
	db    *sql.DB
	queue *PostgresQueue
}

func TestPostgresQueueTestSuite(t *testing.T) {
	dsn := testutil.GetPostgresDSN(t)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	q, err := NewPostgresQueue(db)
	if err != nil {
		t.Fatalf("NewPostgresQueue failed: %v", err)
	}

	suite.Run(t, &PostgresQueueTestSuite{db: db, queue: q})
}

func (p *PostgresQueueTestSuite) SetupTest() {
	_, err := p.db.Exec(`TRUNCATE wizard_outbox`)
	p.Require().NoError(err)
}

func (p *PostgresQueueTestSuite) TestContract() {
	runQueueContract(p.T(), p.queue)
}

func (p *PostgresQueueTestSuite) TestHonoursNotBefore() {
	runNotBeforeCheck(p.T(), p.queue)
}

func (p *PostgresQueueTestSuite) TestSchemaIsIdempotent() {
	_, err := NewPostgresQueue(p.db)
	p.Require().NoError(err)
}
