// Package ratelimit provides a Redis-backed fixed-window limiter for
// abuse-prone auth endpoints, plus a per-email cooldown for flows that
// send mail.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ipWindow  = 15 * time.Minute
	ipLimit   = 10
	cooldown  = 2 * time.Minute
	keyPrefix = "ratelimit"
)

// Limiter tracks request counts per IP and cooldowns per email.
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

func ipKey(ip, purpose string) string {
	if purpose == "" {
		purpose = "default"
	}
	return fmt.Sprintf("%s:ip:%s:%s", keyPrefix, purpose, ip)
}

func emailCooldownKey(email string) string {
	return fmt.Sprintf("%s:email_cooldown:%s", keyPrefix, email)
}

// CheckIPRateLimit reports whether the IP has exhausted the window.
func (l *Limiter) CheckIPRateLimit(ctx context.Context, ip string) (bool, error) {
	return l.CheckIPRateLimitWithPurpose(ctx, ip, "")
}

// CheckIPRateLimitWithPurpose is CheckIPRateLimit with a separate
// counter per purpose (login, signup, ...) so endpoints do not share a
// budget.
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, ipKey(ip, purpose)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}
	return count >= ipLimit, nil
}

// RecordIPRequest counts a request against the IP's window.
func (l *Limiter) RecordIPRequest(ctx context.Context, ip string) error {
	return l.RecordIPRequestWithPurpose(ctx, ip, "")
}

func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := ipKey(ip, purpose)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}

	// First hit in the window starts the clock.
	if incr.Val() == 1 {
		if err := l.client.Expire(ctx, key, ipWindow).Err(); err != nil {
			return fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return nil
}

// CheckEmailCooldown reports whether the address asked for mail too recently.
func (l *Limiter) CheckEmailCooldown(ctx context.Context, email string) (bool, error) {
	exists, err := l.client.Exists(ctx, emailCooldownKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check email cooldown: %w", err)
	}
	return exists > 0, nil
}

// SetEmailCooldown starts the cooldown for an address.
func (l *Limiter) SetEmailCooldown(ctx context.Context, email string) error {
	if err := l.client.Set(ctx, emailCooldownKey(email), "1", cooldown).Err(); err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return nil
}
