package storage

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atinyakov/shortlink/internal/errx"
	"github.com/atinyakov/shortlink/internal/models"
)

// DefaultRedisPrefix namespaces every key written by RedisStorage.
const DefaultRedisPrefix = "shortlink"

// Mutations run as Lua scripts, which Redis executes atomically. A code key
// is only ever set by a script that has checked it is free, so two writers
// racing for the same code get exactly one winner.
var (
	createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 0
end
local id = redis.call('INCR', KEYS[1])
redis.call('HSET', ARGV[4] .. ':url:' .. id, 'id', id, 'code', ARGV[1], 'url', ARGV[2], 'created', ARGV[3])
redis.call('SET', KEYS[2], id)
redis.call('ZADD', KEYS[3], ARGV[3], id)
return id
`)

	updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local owner = redis.call('GET', KEYS[2])
if owner and owner ~= ARGV[1] then
  return 0
end
local old = redis.call('HGET', KEYS[1], 'code')
if old ~= ARGV[2] then
  redis.call('DEL', ARGV[4] .. ':code:' .. old)
  redis.call('SET', KEYS[2], ARGV[1])
end
redis.call('HSET', KEYS[1], 'code', ARGV[2], 'url', ARGV[3])
return 1
`)

	deleteScript = redis.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code then
  return 0
end
redis.call('DEL', KEYS[1], ARGV[2] .. ':code:' .. code)
redis.call('ZREM', KEYS[2], ARGV[1])
return 1
`)
)

// RedisStorage keeps each record in a hash, a code to id string key per
// record and a sorted set of ids scored by creation time.
type RedisStorage struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	return &RedisStorage{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStorage) seqKey() string { return s.prefix + ":seq" }

func (s *RedisStorage) indexKey() string { return s.prefix + ":index" }

func (s *RedisStorage) codeKey(code string) string { return s.prefix + ":code:" + code }

func (s *RedisStorage) urlKey(id int64) string {
	return s.prefix + ":url:" + strconv.FormatInt(id, 10)
}

func (s *RedisStorage) Create(ctx context.Context, longURL, shortCode string) (*models.URL, error) {
	const op = "storage.redis.Create"

	created := s.now().UTC().Truncate(time.Microsecond)

	id, err := createScript.Run(ctx, s.client,
		[]string{s.seqKey(), s.codeKey(shortCode), s.indexKey()},
		shortCode, longURL, created.UnixMicro(), s.prefix,
	).Int64()
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	if id == 0 {
		return nil, errx.Errorf(op, errx.Conflict, "short code %q already exists", shortCode)
	}

	return &models.URL{
		ID:        id,
		ShortCode: shortCode,
		LongURL:   longURL,
		CreatedAt: created,
	}, nil
}

func (s *RedisStorage) FindByCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "storage.redis.FindByCode"

	id, err := s.client.Get(ctx, s.codeKey(shortCode)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}

	record, err := s.load(ctx, id)
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	return record, nil
}

func (s *RedisStorage) FindByID(ctx context.Context, id int64) (*models.URL, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, errx.E("storage.redis.FindByID", errx.Unavailable, err)
	}
	return record, nil
}

// List reads the index and then every record in one pipeline. Records
// deleted between the two steps are skipped.
func (s *RedisStorage) List(ctx context.Context) ([]models.URL, error) {
	const op = "storage.redis.List"

	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	if len(ids) > 0 {
		_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range ids {
				cmds = append(cmds, pipe.HGetAll(ctx, s.prefix+":url:"+id))
			}
			return nil
		})
		if err != nil {
			return nil, errx.E(op, errx.Unavailable, err)
		}
	}

	records := make([]models.URL, 0, len(cmds))
	for _, cmd := range cmds {
		record, err := decodeRecord(cmd.Val())
		if err != nil {
			return nil, errx.E(op, errx.Internal, err)
		}
		if record != nil {
			records = append(records, *record)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})

	return records, nil
}

func (s *RedisStorage) ExistsByCode(ctx context.Context, shortCode string) (bool, error) {
	n, err := s.client.Exists(ctx, s.codeKey(shortCode)).Result()
	if err != nil {
		return false, errx.E("storage.redis.ExistsByCode", errx.Unavailable, err)
	}
	return n == 1, nil
}

func (s *RedisStorage) Update(ctx context.Context, id int64, shortCode, longURL string) (*models.URL, error) {
	const op = "storage.redis.Update"

	res, err := updateScript.Run(ctx, s.client,
		[]string{s.urlKey(id), s.codeKey(shortCode)},
		strconv.FormatInt(id, 10), shortCode, longURL, s.prefix,
	).Int64()
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}

	switch res {
	case -1:
		return nil, nil
	case 0:
		return nil, errx.Errorf(op, errx.Conflict, "short code %q belongs to another url", shortCode)
	}

	record, err := s.load(ctx, id)
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	return record, nil
}

func (s *RedisStorage) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := deleteScript.Run(ctx, s.client,
		[]string{s.urlKey(id), s.indexKey()},
		strconv.FormatInt(id, 10), s.prefix,
	).Int64()
	if err != nil {
		return false, errx.E("storage.redis.Delete", errx.Unavailable, err)
	}
	return res == 1, nil
}

func (s *RedisStorage) PingContext(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}

func (s *RedisStorage) load(ctx context.Context, id int64) (*models.URL, error) {
	fields, err := s.client.HGetAll(ctx, s.urlKey(id)).Result()
	if err != nil {
		return nil, err
	}
	return decodeRecord(fields)
}

// decodeRecord returns nil for an empty hash.
func decodeRecord(fields map[string]string) (*models.URL, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, err
	}
	created, err := strconv.ParseInt(fields["created"], 10, 64)
	if err != nil {
		return nil, err
	}

	return &models.URL{
		ID:        id,
		ShortCode: fields["code"],
		LongURL:   fields["url"],
		CreatedAt: time.UnixMicro(created).UTC(),
	}, nil
}
