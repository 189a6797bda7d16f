package orphans

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "smarttracing/pkg/domain"
)

// DefaultKey is the hash holding one field per orphaned organization.
const DefaultKey = "smarttracing:onboarding:orphans"

// RedisLedger keeps the ledger in a single Redis hash so every instance of
// the service sees the same open entries.
type RedisLedger struct {
	client redis.UniversalClient
	key    string
}

var _ Ledger = (*RedisLedger)(nil)

type RedisOption func(*RedisLedger)

// WithKey overrides DefaultKey.
func WithKey(key string) RedisOption {
	return func(l *RedisLedger) {
		if key != "" {
			l.key = key
		}
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) *RedisLedger {
	l := &RedisLedger{client: client, key: DefaultKey}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func (l *RedisLedger) Record(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode orphan entry: %w", err)
	}
	if err := l.client.HSet(ctx, l.key, entry.OrganizationID.String(), payload).Err(); err != nil {
		return fmt.Errorf("record orphan %s: %w", entry.OrganizationID, err)
	}
	return nil
}

func (l *RedisLedger) List(ctx context.Context) ([]Entry, error) {
	fields, err := l.client.HGetAll(ctx, l.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}
	out := make([]Entry, 0, len(fields))
	for field, raw := range fields {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode orphan %s: %w", field, err)
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (l *RedisLedger) Resolve(ctx context.Context, orgID id.OrganizationID) error {
	if err := l.client.HDel(ctx, l.key, orgID.String()).Err(); err != nil {
		return fmt.Errorf("resolve orphan %s: %w", orgID, err)
	}
	return nil
}
