package yearcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/searchcal/internal/domain/calendar"
)

// ValkeyStore persists year indexes in a Valkey-compatible database. Entries
// are namespaced by a generation counter so Invalidate is a single INCR.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "searchcal"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) GetYears(ctx context.Context, key string) ([]int, bool, error) {
	if key == "" {
		return nil, false, nil
	}
	gen, err := s.generation(ctx)
	if err != nil {
		return nil, false, err
	}
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.entryKey(gen, key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var years []int
	if err := json.Unmarshal([]byte(payload), &years); err != nil {
		return nil, false, err
	}
	return years, true, nil
}

func (s *ValkeyStore) PutYears(ctx context.Context, key string, years []int, ttl time.Duration) error {
	if years == nil {
		years = []int{}
	}
	payload, err := json.Marshal(years)
	if err != nil {
		return err
	}
	gen, err := s.generation(ctx)
	if err != nil {
		return err
	}
	return s.setString(ctx, s.entryKey(gen, key), string(payload), ttl)
}

// Invalidate moves every reader to a fresh generation; stale entries age out
// through their TTL.
func (s *ValkeyStore) Invalidate(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Incr().Key(s.generationKey()).Build()).Error()
}

func (s *ValkeyStore) generation(ctx context.Context) (int64, error) {
	gen, err := s.client.Do(ctx, s.client.B().Get().Key(s.generationKey()).Build()).AsInt64()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return 0, nil
		}
		return 0, err
	}
	return gen, nil
}

func (s *ValkeyStore) setString(ctx context.Context, key, value string, ttl time.Duration) error {
	builder := s.client.B().Set().Key(key).Value(value)
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) entryKey(gen int64, key string) string {
	return fmt.Sprintf("%s:years:%d:%s", s.prefix, gen, key)
}

func (s *ValkeyStore) generationKey() string {
	return fmt.Sprintf("%s:years:gen", s.prefix)
}

var _ calendar.YearCache = (*ValkeyStore)(nil)
