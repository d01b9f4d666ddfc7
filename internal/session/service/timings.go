package service

import (
	"fmt"
	"time"
)

// Timings holds every tunable duration of the session engine.
type Timings struct {
	// ExpiryBuffer is how long before expiry an access token stops being
	// handed out.
	ExpiryBuffer time.Duration `yaml:"expiry_buffer" env:"EXPIRY_BUFFER"`
	// RefreshCooldown is the minimum gap after a successful refresh.
	RefreshCooldown time.Duration `yaml:"refresh_cooldown" env:"REFRESH_COOLDOWN"`
	// FailedRefreshCooldown is the backoff base after the first failure.
	FailedRefreshCooldown time.Duration `yaml:"failed_refresh_cooldown" env:"FAILED_REFRESH_COOLDOWN"`
	// MaxFailedRefreshCooldown caps the exponential backoff.
	MaxFailedRefreshCooldown time.Duration `yaml:"max_failed_refresh_cooldown" env:"MAX_FAILED_REFRESH_COOLDOWN"`
	// CacheExpiry is how long a snapshot is fresh. Stale reads accept twice that.
	CacheExpiry time.Duration `yaml:"cache_expiry" env:"CACHE_EXPIRY"`
	// BackgroundGracePeriod is the longest background stay that trusts the cache.
	BackgroundGracePeriod time.Duration `yaml:"background_grace_period" env:"BACKGROUND_GRACE_PERIOD"`
	// MaxBackgroundDuration forces reauthentication when exceeded.
	MaxBackgroundDuration time.Duration `yaml:"max_background_duration" env:"MAX_BACKGROUND_DURATION"`
	// CleanupInterval is the housekeeping period.
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL"`
}

func DefaultTimings() Timings {
	return Timings{
		ExpiryBuffer:             5 * time.Minute,
		RefreshCooldown:          30 * time.Second,
		FailedRefreshCooldown:    time.Minute,
		MaxFailedRefreshCooldown: 30 * time.Minute,
		CacheExpiry:              15 * time.Minute,
		BackgroundGracePeriod:    30 * time.Minute,
		MaxBackgroundDuration:    24 * time.Hour,
		CleanupInterval:          time.Hour,
	}
}

// StaleLimit is the oldest age a stale-tolerant read accepts.
func (t Timings) StaleLimit() time.Duration { return 2 * t.CacheExpiry }

// Backoff returns the refresh backoff after n consecutive failures:
// FailedRefreshCooldown * 2^(n-1), capped at MaxFailedRefreshCooldown.
func (t Timings) Backoff(n uint) time.Duration {
	if n == 0 {
		return 0
	}

	d := t.FailedRefreshCooldown
	for i := uint(1); i < n; i++ {
		if d >= t.MaxFailedRefreshCooldown {
			break
		}
		d *= 2
	}
	return min(d, t.MaxFailedRefreshCooldown)
}

// Validate rejects non-positive durations and inconsistent windows.
func (t Timings) Validate() error {
	fields := map[string]time.Duration{
		"expiry_buffer":               t.ExpiryBuffer,
		"refresh_cooldown":            t.RefreshCooldown,
		"failed_refresh_cooldown":     t.FailedRefreshCooldown,
		"max_failed_refresh_cooldown": t.MaxFailedRefreshCooldown,
		"cache_expiry":                t.CacheExpiry,
		"background_grace_period":     t.BackgroundGracePeriod,
		"max_background_duration":     t.MaxBackgroundDuration,
		"cleanup_interval":            t.CleanupInterval,
	}
	for name, d := range fields {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if t.MaxFailedRefreshCooldown < t.FailedRefreshCooldown {
		return fmt.Errorf("max_failed_refresh_cooldown (%s) is below failed_refresh_cooldown (%s)",
			t.MaxFailedRefreshCooldown, t.FailedRefreshCooldown)
	}
	if t.MaxBackgroundDuration <= t.BackgroundGracePeriod {
		return fmt.Errorf("max_background_duration (%s) must exceed background_grace_period (%s)",
			t.MaxBackgroundDuration, t.BackgroundGracePeriod)
	}
	return nil
}
