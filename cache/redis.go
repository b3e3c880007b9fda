package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ZaguanLabs/gotlex"
)

const defaultKeyPrefix = "gotlex:"

// cleanupScript removes expired fields of one namespace hash atomically.
// KEYS[1] = namespace hash, KEYS[2] = namespace registry
// ARGV[1] = now (epoch seconds), ARGV[2] = TTL seconds, ARGV[3] = namespace
const cleanupScript = `
local removed = 0
local kv = redis.call('HGETALL', KEYS[1])
local now = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
for i = 1, #kv, 2 do
  local ok, e = pcall(cjson.decode, kv[i + 1])
  if ok and type(e) == 'table' and type(e.created_at) == 'number' and now - e.created_at >= ttl then
    redis.call('HDEL', KEYS[1], kv[i])
    removed = removed + 1
  end
end
if redis.call('HLEN', KEYS[1]) == 0 then
  redis.call('SREM', KEYS[2], ARGV[3])
end
return removed
`

// deleteScript removes one field and unregisters the namespace once its
// hash is empty. Returns 1 when the field existed.
// KEYS[1] = namespace hash, KEYS[2] = namespace registry
// ARGV[1] = field, ARGV[2] = namespace
const deleteScript = `
local n = redis.call('HDEL', KEYS[1], ARGV[1])
if redis.call('HLEN', KEYS[1]) == 0 then
  redis.call('SREM', KEYS[2], ARGV[2])
end
return n
`

// clearScript deletes every registered namespace hash and returns the
// number of entries they held.
// KEYS[1] = namespace registry, ARGV[1] = namespace hash key prefix
const clearScript = `
local names = redis.call('SMEMBERS', KEYS[1])
local cleared = 0
for _, name in ipairs(names) do
  local key = ARGV[1] .. name
  cleared = cleared + redis.call('HLEN', key)
  redis.call('DEL', key)
end
redis.call('DEL', KEYS[1])
return cleared
`

// RedisStore is a Redis-backed gotlex.Store. Each namespace is a hash of
// normalized key -> {"value":..., "created_at":...}; a set tracks the
// namespaces that have been written to.
type RedisStore struct {
	client     *redis.Client
	namespaces gotlex.NamespaceSet
	opts       options
}

// RedisConfig holds configuration for the Redis store.
type RedisConfig struct {
	URL       string // Redis connection URL (e.g., "redis://localhost:6379/0")
	KeyPrefix string // Prefix for all keys (default: "gotlex:")
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, namespaces []gotlex.Namespace, opts ...Option) (*RedisStore, error) {
	redisOpts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, &gotlex.StorageError{Op: "open", Path: cfg.URL, Message: "parsing redis URL", Cause: err}
	}

	client := redis.NewClient(redisOpts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &gotlex.StorageError{Op: "open", Path: redisOpts.Addr, Message: "connecting to redis", Cause: err}
	}

	return NewRedisStoreFromClient(client, namespaces, append(opts, WithKeyPrefix(cfg.KeyPrefix))...)
}

// NewRedisStoreFromClient creates a RedisStore from an existing Redis client.
func NewRedisStoreFromClient(client *redis.Client, namespaces []gotlex.Namespace, opts ...Option) (*RedisStore, error) {
	set, err := gotlex.NewNamespaceSet(namespaces...)
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		client:     client,
		namespaces: set,
		opts:       buildOptions(opts),
	}, nil
}

func (s *RedisStore) hashKey(namespace string) string {
	return s.opts.keyPrefix + "ns:" + namespace
}

func (s *RedisStore) registryKey() string {
	return s.opts.keyPrefix + "namespaces"
}

func (s *RedisStore) storageError(op, message string, err error) error {
	return &gotlex.StorageError{Op: op, Path: s.client.Options().Addr, Message: message, Cause: err}
}

// Get retrieves a value from Redis.
func (s *RedisStore) Get(ctx context.Context, namespace, key string) (json.RawMessage, bool, error) {
	ttl, err := s.namespaces.TTL(namespace)
	if err != nil {
		return nil, false, err
	}
	key = gotlex.NormalizeKey(key)

	raw, err := s.client.HGet(ctx, s.hashKey(namespace), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.storageError("get", "reading entry", err)
	}

	e, ok := s.decode(namespace, key, raw)
	if !ok || gotlex.IsExpired(e.createdAt(), s.opts.now(), ttl) {
		return nil, false, nil
	}
	return e.Value, true, nil
}

// Put stores a value in Redis.
func (s *RedisStore) Put(ctx context.Context, namespace, key string, value json.RawMessage) error {
	if _, err := s.namespaces.TTL(namespace); err != nil {
		return err
	}
	key = gotlex.NormalizeKey(key)
	if err := gotlex.ValidateValue(namespace, key, value); err != nil {
		return err
	}

	encoded, err := encodeEntry(newStoredEntry(value, s.opts.now()))
	if err != nil {
		return s.storageError("put", "encoding entry", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.hashKey(namespace), key, encoded)
		pipe.SAdd(ctx, s.registryKey(), namespace)
		return nil
	})
	if err != nil {
		return s.storageError("put", "writing entry", err)
	}
	return nil
}

// Delete removes an entry from Redis.
func (s *RedisStore) Delete(ctx context.Context, namespace, key string) (bool, error) {
	if _, err := s.namespaces.TTL(namespace); err != nil {
		return false, err
	}

	n, err := s.client.Eval(ctx, deleteScript,
		[]string{s.hashKey(namespace), s.registryKey()},
		gotlex.NormalizeKey(key), namespace,
	).Int()
	if err != nil {
		return false, s.storageError("delete", "deleting entry", err)
	}
	return n > 0, nil
}

// CleanupExpired removes expired entries of every configured namespace.
func (s *RedisStore) CleanupExpired(ctx context.Context) (int, error) {
	now := formatSeconds(toEpoch(s.opts.now()))
	removed := 0
	for _, name := range s.namespaces.Names() {
		ttl, _ := s.namespaces.TTL(name)
		n, err := s.client.Eval(ctx, cleanupScript,
			[]string{s.hashKey(name), s.registryKey()},
			now, formatSeconds(ttl.Seconds()), name,
		).Int()
		if err != nil {
			return removed, s.storageError("cleanup", "removing expired entries of "+name, err)
		}
		removed += n
	}
	return removed, nil
}

// ClearAll deletes every namespace hash.
func (s *RedisStore) ClearAll(ctx context.Context) (int, error) {
	n, err := s.client.Eval(ctx, clearScript,
		[]string{s.registryKey()},
		s.hashKey(""),
	).Int()
	if err != nil {
		return 0, s.storageError("clear", "deleting namespaces", err)
	}
	return n, nil
}

// Stats reports per-namespace counts. The size of a Redis keyspace is not reported.
func (s *RedisStore) Stats(ctx context.Context) (*gotlex.Report, error) {
	b := gotlex.NewReportBuilder(s.namespaces, s.opts.now())
	err := s.scan(ctx, "stats", func(namespace, key string, e storedEntry) {
		b.Add(namespace, e.createdAt())
	})
	if err != nil {
		return nil, err
	}
	return b.Report(), nil
}

// Dump returns every entry of every known namespace.
func (s *RedisStore) Dump(ctx context.Context) ([]gotlex.Entry, error) {
	data := namespaceMap{}
	err := s.scan(ctx, "dump", func(namespace, key string, e storedEntry) {
		data.put(namespace, key, e)
	})
	if err != nil {
		return nil, err
	}
	return data.dump(), nil
}

// Restore writes entries back with their original timestamps.
func (s *RedisStore) Restore(ctx context.Context, entries []gotlex.Entry) (int, error) {
	data := namespaceMap{}
	written := data.restore(s.namespaces, entries)
	if written == 0 {
		return 0, nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range data.dump() {
			encoded, err := encodeEntry(newStoredEntry(e.Value, e.CreatedAt))
			if err != nil {
				return err
			}
			pipe.HSet(ctx, s.hashKey(e.Namespace), e.Key, encoded)
			pipe.SAdd(ctx, s.registryKey(), e.Namespace)
		}
		return nil
	})
	if err != nil {
		return 0, s.storageError("restore", "writing entries", err)
	}
	return written, nil
}

// scan visits every decodable entry of the configured and registered namespaces.
func (s *RedisStore) scan(ctx context.Context, op string, visit func(namespace, key string, e storedEntry)) error {
	registered, err := s.client.SMembers(ctx, s.registryKey()).Result()
	if err != nil {
		return s.storageError(op, "listing namespaces", err)
	}

	names := s.namespaces.Names()
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
	}
	for _, name := range registered {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, name := range names {
		fields, err := s.client.HGetAll(ctx, s.hashKey(name)).Result()
		if err != nil {
			return s.storageError(op, "reading namespace "+name, err)
		}
		for key, raw := range fields {
			if e, ok := s.decode(name, key, []byte(raw)); ok {
				visit(name, key, e)
			}
		}
	}
	return nil
}

// decode parses a stored entry; corrupt entries are logged and treated as absent.
func (s *RedisStore) decode(namespace, key string, raw []byte) (storedEntry, bool) {
	var e storedEntry
	if err := json.Unmarshal(raw, &e); err != nil || !e.valid() {
		s.opts.logger.Warn("corrupt redis cache entry, treating it as absent",
			zap.String("namespace", namespace),
			zap.String("key", key),
			zap.Error(err),
		)
		return storedEntry{}, false
	}
	return e, true
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping tests the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func encodeEntry(e storedEntry) (string, error) {
	raw, err := marshalJSON(e, false)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(raw, "\n")), nil
}

func formatSeconds(secs float64) string {
	return strconv.FormatFloat(secs, 'f', -1, 64)
}

// Verify RedisStore implements the store interfaces
var (
	_ gotlex.Store    = (*RedisStore)(nil)
	_ gotlex.Dumper   = (*RedisStore)(nil)
	_ gotlex.Restorer = (*RedisStore)(nil)
)
