package main

import (
	"time"

	"golang.org/x/time/rate"
)

// uploadLimiter tracks one user's upload budget. Exceeding either window
// puts the user in a temporary cooldown.
type uploadLimiter struct {
	hourlyLimiter *rate.Limiter
	dailyLimiter  *rate.Limiter
	lastReset     time.Time
	banUntil      time.Time
}

// checkUploadLimits reports whether the user may upload another file now.
func (b *Bot) checkUploadLimits(userID int64) bool {
	b.uploadLimitersMu.Lock()
	defer b.uploadLimitersMu.Unlock()

	limiter, exists := b.uploadLimiters[userID]
	if !exists {
		limiter = &uploadLimiter{
			hourlyLimiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(b.config.UploadsPerHour)), b.config.UploadsPerHour),
			dailyLimiter:  rate.NewLimiter(rate.Every(24*time.Hour/time.Duration(b.config.UploadsPerDay)), b.config.UploadsPerDay),
			lastReset:     b.clock.Now(),
		}
		b.uploadLimiters[userID] = limiter
	}

	now := b.clock.Now()

	if now.Before(limiter.banUntil) {
		return false
	}

	if now.Sub(limiter.lastReset) >= 24*time.Hour {
		limiter.dailyLimiter = rate.NewLimiter(rate.Every(24*time.Hour/time.Duration(b.config.UploadsPerDay)), b.config.UploadsPerDay)
		limiter.lastReset = now
	}

	if !limiter.hourlyLimiter.Allow() || !limiter.dailyLimiter.Allow() {
		limiter.banUntil = now.Add(b.config.TempBanDuration)
		return false
	}

	return true
}
