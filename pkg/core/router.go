package core

import "context"

// StatsSource is the capability surface a host scheduler consumes.
// Implementations are not required to support concurrent calls.
type StatsSource interface {
	// Authenticate (re)establishes a session with the router.
	Authenticate(ctx context.Context) error

	// GetStats performs one poll cycle and returns the derived rates.
	GetStats(ctx context.Context) (*Stats, error)
}
