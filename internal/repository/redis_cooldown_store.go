package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domrepo "SignalForge/internal/domain/repository"
)

var _ domrepo.CooldownStore = (*RedisCooldownStore)(nil)

// acquireScript compares against the stored fire time rather than relying on the
// key TTL alone, so replays driven by signal timestamps see the same windows as live runs.
var acquireScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local last = tonumber(cur)
  if tonumber(ARGV[1]) - last < tonumber(ARGV[2]) then
    return {0, last}
  end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return {1, tonumber(ARGV[1])}
`)

// RedisCooldownStore keeps cooldown entries in Redis so several scanner
// processes share one view of what has already fired.
type RedisCooldownStore struct {
	client *redis.Client
	prefix string
}

func NewRedisCooldownStore(client *redis.Client, prefix string) *RedisCooldownStore {
	if prefix == "" {
		prefix = "cooldown"
	}
	return &RedisCooldownStore{client: client, prefix: prefix}
}

func (s *RedisCooldownStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisCooldownStore) Acquire(ctx context.Context, key string, now time.Time, window time.Duration) (bool, time.Time, error) {
	res, err := acquireScript.Run(ctx, s.client, []string{s.key(key)}, now.UnixMilli(), window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, time.Time{}, fmt.Errorf("redis cooldown acquire %s: %w", key, err)
	}
	if len(res) != 2 {
		return false, time.Time{}, fmt.Errorf("redis cooldown acquire %s: unexpected reply %v", key, res)
	}
	return res[0] == 1, time.UnixMilli(res[1]).In(now.Location()), nil
}
