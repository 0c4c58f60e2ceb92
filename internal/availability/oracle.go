// Package availability abstracts developer availability checks. In
// production this would consult presence, calendar, and workload
// systems; the default oracle treats everyone as available.
package availability

import "context"

// Oracle reports whether a developer can take an assignment right now.
type Oracle interface {
	IsAvailable(ctx context.Context, developer string) bool
}

// AlwaysAvailable is the default oracle: every developer is available.
type AlwaysAvailable struct{}

// IsAvailable always returns true.
func (AlwaysAvailable) IsAvailable(ctx context.Context, developer string) bool {
	return true
}

// StaticOracle answers from a fixed map, unknown developers default to
// available. Useful for tests and manual overrides.
type StaticOracle struct {
	Availability map[string]bool
}

// IsAvailable looks the developer up in the static map.
func (o StaticOracle) IsAvailable(ctx context.Context, developer string) bool {
	available, ok := o.Availability[developer]
	if !ok {
		return true
	}
	return available
}
