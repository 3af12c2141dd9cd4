package utils

import (
	"context"
	"time"
)

func regDayKey(ip string, now time.Time) string {
	return "reg:succday:" + ip + ":" + now.Format("20060102")
}

// RegistrationDailyLimitCheck allows up to limit successful registrations per day per IP.
// Without Redis, or on Redis errors, it fails open.
func RegistrationDailyLimitCheck(ip string, limit int) bool {
	cli := GetRedis()
	if limit <= 0 || cli == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	n, err := cli.Get(ctx, regDayKey(ip, time.Now())).Int()
	if err != nil {
		// redis.Nil means no registration today
		return true
	}
	return n < limit
}

// RegistrationDailyIncrement increments the success counter for today.
func RegistrationDailyIncrement(ip string) {
	cli := GetRedis()
	if cli == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := regDayKey(ip, time.Now())
	if err := cli.Incr(ctx, key).Err(); err == nil {
		_ = cli.Expire(ctx, key, 24*time.Hour).Err()
	}
}
