package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avatarctic/timecache/internal/core/domain/cacheerr"
	"github.com/avatarctic/timecache/internal/core/ports"
	"github.com/avatarctic/timecache/internal/infrastructure/events"
	"github.com/gobwas/glob"
	"github.com/samber/mo"
)

const remoteLayer = "remote"

// RemoteCacheConfig holds the client-side settings of a RemoteCache.
type RemoteCacheConfig struct {
	// KeyPrefix namespaces every key as "<prefix>:<key>". Empty disables namespacing.
	KeyPrefix string
	// DefaultTTL applies to scalar and hash writes that do not pass a TTL. Zero means no expiry.
	DefaultTTL time.Duration
	// OpTimeout bounds every remote call. Zero leaves only the caller's deadline.
	OpTimeout time.Duration
}

// RemoteCache is a typed facade over an out-of-process key-value store.
//
// The backing store must implement ports.ScalarStore. The other families are
// discovered by interface assertion; calling an operation the backend lacks
// fails with cacheerr.ErrUnsupported. Typed reads are package-level generic
// functions (GetString, GetHashAll, ListRange, ...) taking the client.
//
// Keys share a single flat namespace across families. Using the same key for
// two families is a caller error that the store may or may not reject.
type RemoteCache struct {
	scalars ports.ScalarStore
	batch   ports.BatchStore
	hashes  ports.HashStore
	lists   ports.ListStore
	zsets   ports.SortedSetStore
	sets    ports.SetStore
	streams ports.StreamStore
	finder  ports.KeyFinder

	codec ports.Codec
	clock ports.Clock
	sink  ports.EventSink
	cfg   RemoteCacheConfig
}

// NewRemoteCache builds a client over store. sink may be nil.
func NewRemoteCache(store ports.ScalarStore, codec ports.Codec, clk ports.Clock, cfg RemoteCacheConfig, sink ports.EventSink) (*RemoteCache, error) {
	switch {
	case store == nil:
		return nil, cacheerr.InvalidArgument("store is required")
	case codec == nil:
		return nil, cacheerr.InvalidArgument("codec is required")
	case clk == nil:
		return nil, cacheerr.InvalidArgument("clock is required")
	case cfg.DefaultTTL < 0:
		return nil, cacheerr.InvalidArgument("default ttl %s is negative", cfg.DefaultTTL)
	case cfg.OpTimeout < 0:
		return nil, cacheerr.InvalidArgument("operation timeout %s is negative", cfg.OpTimeout)
	}
	if sink == nil {
		sink = events.Noop{}
	}
	c := &RemoteCache{scalars: store, codec: codec, clock: clk, sink: sink, cfg: cfg}
	c.batch, _ = store.(ports.BatchStore)
	c.hashes, _ = store.(ports.HashStore)
	c.lists, _ = store.(ports.ListStore)
	c.zsets, _ = store.(ports.SortedSetStore)
	c.sets, _ = store.(ports.SetStore)
	c.streams, _ = store.(ports.StreamStore)
	c.finder, _ = store.(ports.KeyFinder)
	return c, nil
}

// Config returns the client settings.
func (c *RemoteCache) Config() RemoteCacheConfig { return c.cfg }

func (c *RemoteCache) key(k string) string {
	if c.cfg.KeyPrefix == "" {
		return k
	}
	return c.cfg.KeyPrefix + ":" + k
}

func (c *RemoteCache) unkey(k string) string {
	if c.cfg.KeyPrefix == "" {
		return k
	}
	return strings.TrimPrefix(k, c.cfg.KeyPrefix+":")
}

// begin applies the per-operation deadline and starts the latency clock.
func (c *RemoteCache) begin(ctx context.Context) (context.Context, context.CancelFunc, time.Time) {
	start := c.clock.Now()
	if c.cfg.OpTimeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
		return ctx, cancel, start
	}
	return ctx, func() {}, start
}

func (c *RemoteCache) observe(op, key string, start time.Time, kind ports.EventKind) {
	c.sink.Emit(ports.Event{Layer: remoteLayer, Op: op, Kind: kind, Key: key, Elapsed: c.clock.Now().Sub(start)})
}

// fail reports err and returns it wrapped with the operation and key.
func (c *RemoteCache) fail(op, key string, start time.Time, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, cacheerr.ErrTimeout) {
		err = fmt.Errorf("%w: %w", cacheerr.ErrTimeout, err)
	}
	c.sink.Emit(ports.Event{Layer: remoteLayer, Op: op, Kind: ports.EventError, Key: key, Elapsed: c.clock.Now().Sub(start), Err: err})
	return fmt.Errorf("%s %q: %w", op, key, err)
}

func validKey(key string) error {
	if key == "" {
		return cacheerr.InvalidArgument("empty key")
	}
	return nil
}

func validTTL(ttl time.Duration) error {
	if ttl < 0 {
		return cacheerr.InvalidArgument("ttl %s is negative", ttl)
	}
	return nil
}

func unsupported(family string) error {
	return fmt.Errorf("%w: %s", cacheerr.ErrUnsupported, family)
}

func (c *RemoteCache) encode(v any) ([]byte, error) {
	b, err := c.codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cacheerr.ErrInvalidArgument, err)
	}
	return b, nil
}

func decode[T any](codec ports.Codec, raw []byte) (T, error) {
	var v T
	if err := codec.Decode(raw, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// fetchOne runs a single-value read and decodes the result.
func fetchOne[T any](ctx context.Context, c *RemoteCache, op, key string, get func(ctx context.Context) ([]byte, bool, error)) (mo.Option[T], error) {
	if err := validKey(key); err != nil {
		return mo.None[T](), err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()

	raw, ok, err := get(ctx)
	if err != nil {
		return mo.None[T](), c.fail(op, key, start, err)
	}
	if !ok {
		c.observe(op, key, start, ports.EventMiss)
		return mo.None[T](), nil
	}
	v, err := decode[T](c.codec, raw)
	if err != nil {
		return mo.None[T](), c.fail(op, key, start, err)
	}
	c.observe(op, key, start, ports.EventHit)
	return mo.Some(v), nil
}

// decodeAll decodes every element of raws, failing on the first corrupt one.
func decodeAll[T any](codec ports.Codec, raws [][]byte) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		v, err := decode[T](codec, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SetString stores value under key with the client's default TTL.
func (c *RemoteCache) SetString(ctx context.Context, key string, value any) error {
	return c.SetStringWithTTL(ctx, key, value, c.cfg.DefaultTTL)
}

// SetStringWithTTL stores value under key. A zero ttl stores it without expiry.
func (c *RemoteCache) SetStringWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	const op = "set_string"
	if err := validKey(key); err != nil {
		return err
	}
	if err := validTTL(ttl); err != nil {
		return err
	}
	raw, err := c.encode(value)
	if err != nil {
		return err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	if err := c.scalars.Set(ctx, c.key(key), raw, ttl); err != nil {
		return c.fail(op, key, start, err)
	}
	c.observe(op, key, start, ports.EventWrite)
	return nil
}

// GetString reads and decodes the scalar at key.
func GetString[T any](ctx context.Context, c *RemoteCache, key string) (mo.Option[T], error) {
	return fetchOne[T](ctx, c, "get_string", key, func(ctx context.Context) ([]byte, bool, error) {
		return c.scalars.Get(ctx, c.key(key))
	})
}

// Delete removes key and reports whether it existed.
func (c *RemoteCache) Delete(ctx context.Context, key string) (bool, error) {
	n, err := c.DeleteMultiple(ctx, key)
	return n > 0, err
}

// DeleteMultiple removes keys and returns how many existed.
func (c *RemoteCache) DeleteMultiple(ctx context.Context, keys ...string) (int64, error) {
	const op = "delete"
	if len(keys) == 0 {
		return 0, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		if err := validKey(k); err != nil {
			return 0, err
		}
		full[i] = c.key(k)
	}
	label := strings.Join(keys, ",")
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	n, err := c.scalars.Delete(ctx, full...)
	if err != nil {
		return 0, c.fail(op, label, start, err)
	}
	c.observe(op, label, start, ports.EventDelete)
	return n, nil
}

// Exists reports whether key is present.
func (c *RemoteCache) Exists(ctx context.Context, key string) (bool, error) {
	const op = "exists"
	if err := validKey(key); err != nil {
		return false, err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	ok, err := c.scalars.Exists(ctx, c.key(key))
	if err != nil {
		return false, c.fail(op, key, start, err)
	}
	c.observe(op, key, start, hitOrMiss(ok))
	return ok, nil
}

// Expire sets key's TTL, replacing any previous one. It returns false if the
// key does not exist. ttl must be positive.
func (c *RemoteCache) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	const op = "expire"
	if err := validKey(key); err != nil {
		return false, err
	}
	if ttl <= 0 {
		return false, cacheerr.InvalidArgument("expire ttl %s must be positive", ttl)
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	ok, err := c.scalars.Expire(ctx, c.key(key), ttl)
	if err != nil {
		return false, c.fail(op, key, start, err)
	}
	c.observe(op, key, start, ports.EventWrite)
	return ok, nil
}

// TTL returns the remaining time to live. It is None both for a missing key
// and for a key without expiry; use Exists to tell them apart.
func (c *RemoteCache) TTL(ctx context.Context, key string) (mo.Option[time.Duration], error) {
	const op = "ttl"
	if err := validKey(key); err != nil {
		return mo.None[time.Duration](), err
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	d, ok, err := c.scalars.TTL(ctx, c.key(key))
	if err != nil {
		return mo.None[time.Duration](), c.fail(op, key, start, err)
	}
	c.observe(op, key, start, hitOrMiss(ok))
	if !ok {
		return mo.None[time.Duration](), nil
	}
	return mo.Some(d), nil
}

// ExpiresAt converts TTL into an instant on the client's clock.
func (c *RemoteCache) ExpiresAt(ctx context.Context, key string) (mo.Option[time.Time], error) {
	ttl, err := c.TTL(ctx, key)
	if err != nil {
		return mo.None[time.Time](), err
	}
	d, ok := ttl.Get()
	if !ok {
		return mo.None[time.Time](), nil
	}
	return mo.Some(c.clock.Now().Add(d)), nil
}

// SetMultiple stores every entry with the client's default TTL.
func (c *RemoteCache) SetMultiple(ctx context.Context, entries map[string]any) error {
	const op = "set_multiple"
	encoded := make(map[string][]byte, len(entries))
	for k, v := range entries {
		if err := validKey(k); err != nil {
			return err
		}
		raw, err := c.encode(v)
		if err != nil {
			return fmt.Errorf("%s %q: %w", op, k, err)
		}
		encoded[c.key(k)] = raw
	}
	if len(encoded) == 0 {
		return nil
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	var err error
	if c.batch != nil {
		err = c.batch.SetMany(ctx, encoded, c.cfg.DefaultTTL)
	} else {
		for k, raw := range encoded {
			if err = c.scalars.Set(ctx, k, raw, c.cfg.DefaultTTL); err != nil {
				break
			}
		}
	}
	if err != nil {
		return c.fail(op, "", start, err)
	}
	c.observe(op, "", start, ports.EventWrite)
	return nil
}

// GetMultiple returns the decoded values of the keys that exist. Missing keys
// are omitted; a corrupt value fails the whole call.
func GetMultiple[T any](ctx context.Context, c *RemoteCache, keys []string) (map[string]T, error) {
	const op = "get_multiple"
	out := make(map[string]T, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		if err := validKey(k); err != nil {
			return nil, err
		}
		full[i] = c.key(k)
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()

	var (
		raws map[string][]byte
		err  error
	)
	if c.batch != nil {
		raws, err = c.batch.GetMany(ctx, full)
	} else {
		raws = make(map[string][]byte, len(full))
		for _, k := range full {
			raw, ok, gerr := c.scalars.Get(ctx, k)
			if gerr != nil {
				err = gerr
				break
			}
			if ok {
				raws[k] = raw
			}
		}
	}
	if err != nil {
		return nil, c.fail(op, "", start, err)
	}
	for k, raw := range raws {
		v, err := decode[T](c.codec, raw)
		if err != nil {
			return nil, c.fail(op, c.unkey(k), start, err)
		}
		out[c.unkey(k)] = v
	}
	c.observe(op, "", start, ports.EventHit)
	return out, nil
}

// SearchKeys returns the keys matching a glob pattern such as "user:*".
// The client's prefix is applied to the pattern and stripped from results.
func (c *RemoteCache) SearchKeys(ctx context.Context, pattern string) ([]string, error) {
	const op = "search_keys"
	if c.finder == nil {
		return nil, unsupported("key discovery")
	}
	if pattern == "" {
		return nil, cacheerr.InvalidArgument("empty key pattern")
	}
	if _, err := glob.Compile(pattern); err != nil {
		return nil, cacheerr.InvalidArgument("key pattern %q: %v", pattern, err)
	}
	ctx, cancel, start := c.begin(ctx)
	defer cancel()
	keys, err := c.finder.Keys(ctx, c.key(pattern))
	if err != nil {
		return nil, c.fail(op, pattern, start, err)
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = c.unkey(k)
	}
	c.observe(op, pattern, start, hitOrMiss(len(out) > 0))
	return out, nil
}

func hitOrMiss(ok bool) ports.EventKind {
	if ok {
		return ports.EventHit
	}
	return ports.EventMiss
}
