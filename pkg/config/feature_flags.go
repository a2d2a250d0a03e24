package config

import "sync/atomic"

// Runtime feature toggles. Write-ahead logging is the one flag from the
// storage layer worth keeping independently toggleable at runtime (tests
// need to flip it per-case); every other feature flag the storage layer
// once carried (Kalman filtering, GPU clustering, decay/cooldown tuning)
// belonged to a product surface this module does not implement and was
// dropped along with it.
var walEnabled atomic.Bool

func init() {
	walEnabled.Store(true)
}

// EnableWAL turns on write-ahead logging. WAL.Append and the WALEngine
// mutations check the flag on every call; NewBadgerEngine checks it when
// it builds an engine.
func EnableWAL() { walEnabled.Store(true) }

// DisableWAL turns off write-ahead logging, with the same reach as EnableWAL.
func DisableWAL() { walEnabled.Store(false) }

// IsWALEnabled reports the current WAL toggle state.
func IsWALEnabled() bool { return walEnabled.Load() }

// WithWALEnabled enables WAL and returns a cleanup func that restores the
// previous state, for scoped use in tests.
func WithWALEnabled() func() {
	prev := walEnabled.Load()
	walEnabled.Store(true)
	return func() { walEnabled.Store(prev) }
}

// ResetFeatureFlags restores the WAL toggle to its default (enabled).
func ResetFeatureFlags() {
	walEnabled.Store(true)
}
