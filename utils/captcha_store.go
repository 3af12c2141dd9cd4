package utils

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mojocn/base64Captcha"
	"github.com/redis/go-redis/v9"
)

const captchaKeyPrefix = "captcha:register:"

// redisCaptchaStore keeps registration captcha answers in Redis so any instance can verify them.
type redisCaptchaStore struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewRedisCaptchaStore returns a base64Captcha.Store on rc; answers expire after ttl.
func NewRedisCaptchaStore(rc *redis.Client, ttl time.Duration) base64Captcha.Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisCaptchaStore{rc: rc, ttl: ttl}
}

func (s *redisCaptchaStore) Set(id string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.rc.Set(ctx, captchaKeyPrefix+id, value, s.ttl).Err()
}

// Get returns the stored answer; clear deletes it in the same round trip.
func (s *redisCaptchaStore) Get(id string, clear bool) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cmd := s.rc.Get
	if clear {
		cmd = s.rc.GetDel
	}
	v, err := cmd(ctx, captchaKeyPrefix+id).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			Sugar.Warnw("captcha lookup failed", "error", err)
		}
		return ""
	}
	return v
}

// Verify is single use when clear is set; digits are compared after trimming.
func (s *redisCaptchaStore) Verify(id, answer string, clear bool) bool {
	v := s.Get(id, clear)
	return v != "" && v == strings.TrimSpace(answer)
}
