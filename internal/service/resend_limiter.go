package service

import (
	"time"

	"github.com/jellydator/ttlcache/v2"
)

// ResendLimiter throttles verification-mail resends to one per address
// per window. Entries fall out of the cache on their own, there is no
// cleanup to run.
type ResendLimiter struct {
	cache *ttlcache.Cache
}

func NewResendLimiter(window time.Duration) *ResendLimiter {
	c := ttlcache.NewCache()
	c.SetTTL(window)
	c.SkipTTLExtensionOnHit(true)

	return &ResendLimiter{cache: c}
}

// Allow reports whether a resend for email may proceed and, when it
// may, starts the cooldown window.
func (l *ResendLimiter) Allow(email string) bool {
	if _, err := l.cache.Get(email); err == nil {
		return false
	}

	l.cache.Set(email, struct{}{})
	return true
}

func (l *ResendLimiter) Close() {
	l.cache.Close()
}
