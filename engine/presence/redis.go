package presence

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/fdswitch/fdswitch/engine/config"
	"github.com/fdswitch/fdswitch/engine/consts"
	"github.com/fdswitch/fdswitch/engine/fslog"
	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
)

// RedisSink stores the presence under a key and publishes it on a channel
type RedisSink struct {
	key     string
	channel string
	dial    func() (redis.Conn, error)

	mu   sync.Mutex
	conn redis.Conn
}

// NewRedisSink creates a RedisSink. The connection is made on first use
// and made again after any error. Every dial, read and write is bounded
// by cfg.RedisTimeout so a stuck server cannot block the caller.
func NewRedisSink(cfg config.PresenceConfig) *RedisSink {
	addr, db := cfg.RedisURL, cfg.RedisDB
	timeout := cfg.RedisTimeout
	if timeout <= 0 {
		timeout = consts.REDIS_TIMEOUT
	}
	opts := []redis.DialOption{
		redis.DialConnectTimeout(timeout),
		redis.DialReadTimeout(timeout),
		redis.DialWriteTimeout(timeout),
	}
	return &RedisSink{
		key:     cfg.RedisKey,
		channel: cfg.RedisChannel,
		dial: func() (redis.Conn, error) {
			if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
				return redis.DialURL(addr, opts...)
			}
			return redis.Dial("tcp", addr, append(opts, redis.DialDatabase(db))...)
		},
	}
}

// SetPresence writes p as json
func (s *RedisSink) SetPresence(p Presence) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encode presence")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		conn, err := s.dial()
		if err != nil {
			return errors.Wrap(err, "redis dial failed")
		}
		s.conn = conn
	}

	if err = s.write(data); err != nil {
		fslog.Warnf("Redis presence sink: %v, will reconnect", err)
		s.conn.Close()
		s.conn = nil
	}
	return err
}

func (s *RedisSink) write(data []byte) error {
	if s.key != "" {
		if _, err := s.conn.Do("SET", s.key, data); err != nil {
			return errors.Wrapf(err, "redis SET %s", s.key)
		}
	}
	if s.channel != "" {
		if _, err := s.conn.Do("PUBLISH", s.channel, data); err != nil {
			return errors.Wrapf(err, "redis PUBLISH %s", s.channel)
		}
	}
	return nil
}

// Close closes the connection if any
func (s *RedisSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
