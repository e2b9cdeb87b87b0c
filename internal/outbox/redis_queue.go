package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a Queue on a Redis sorted set:
//
//	<prefix>outbox     => ZSET of "<seq>:<gob submission>" scored by not_before (unix µs)
//	<prefix>outbox:seq => STRING insertion counter
//
// The zero-padded sequence keeps members unique and orders submissions that
// share a score by insertion. Dequeue claims the lowest eligible member with
// a Lua script so several workers can share the set.
type RedisQueue struct {
	client       redis.UniversalClient
	key          string
	seqKey       string
	pollInterval time.Duration
}

// claimScript pops the first member scored at or below ARGV[1].
var claimScript = redis.NewScript(`
local items = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #items == 0 then
	return false
end
redis.call('ZREM', KEYS[1], items[1])
return items[1]
`)

// NewRedisQueue constructs a Redis-backed Queue.
// prefix is optional but recommended (e.g. "formflow:").
func NewRedisQueue(client redis.UniversalClient, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "formflow:"
	}
	return &RedisQueue{
		client:       client,
		key:          prefix + "outbox",
		seqKey:       prefix + "outbox:seq",
		pollInterval: 50 * time.Millisecond,
	}
}

var _ Queue = (*RedisQueue)(nil)

func (q *RedisQueue) Enqueue(ctx context.Context, s Submission) error {
	data, err := EncodeSubmission(s)
	if err != nil {
		return fmt.Errorf("encode submission %s: %w", s.ID, err)
	}
	seq, err := q.client.Incr(ctx, q.seqKey).Result()
	if err != nil {
		return fmt.Errorf("outbox sequence: %w", err)
	}
	at := s.NotBefore
	if at.IsZero() {
		at = time.Now()
	}
	member := fmt.Sprintf("%020d:%s", seq, data)
	return q.client.ZAdd(ctx, q.key, redis.Z{Score: float64(at.UnixMicro()), Member: member}).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Submission, error) {
	tmr := time.NewTimer(0)
	if !tmr.Stop() {
		<-tmr.C
	}
	defer tmr.Stop()

	for {
		now := strconv.FormatInt(time.Now().UnixMicro(), 10)
		member, err := claimScript.Run(ctx, q.client, []string{q.key}, now).Text()
		if err == redis.Nil {
			tmr.Reset(q.pollInterval)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-tmr.C:
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		_, payload, ok := strings.Cut(member, ":")
		if !ok {
			slog.Warn("outbox: malformed member", slog.String("key", q.key))
			continue
		}
		return DecodeSubmission([]byte(payload))
	}
}

// Len returns ZCARD of the set, or 0 when Redis is unreachable.
func (q *RedisQueue) Len() int {
	n, err := q.client.ZCard(context.Background(), q.key).Result()
	if err != nil {
		slog.Warn("outbox: ZCARD failed", slog.Any("error", err))
		return 0
	}
	return int(n)
}
