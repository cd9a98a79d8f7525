// Package config holds the startup configuration surface consumed by the
// core. It is read once at initialization; nothing reloads at runtime.
package config

import "time"

const demoQuietPeriod = 20 * time.Second

// Config is assembled from CLI flags / environment in cmd and handed to the
// components that need it.
type Config struct {
	Port        int
	EventBus    string
	QuietPeriod time.Duration
	Demo        bool
	LogLevel    string
}

// EffectiveQuietPeriod returns the inactivity delay, shortened in demo mode
// so the reminder path can be watched without waiting out the real period.
func (c Config) EffectiveQuietPeriod() time.Duration {
	if c.Demo && c.QuietPeriod > demoQuietPeriod {
		return demoQuietPeriod
	}

	return c.QuietPeriod
}
