package daemon

import (
	"context"
)

// HealthStatus is the daemon-level lifecycle phase, distinct from
// per-component health.
type HealthStatus string

const (
	StatusStarting HealthStatus = "starting"
	StatusRunning  HealthStatus = "running"
	StatusStopping HealthStatus = "stopping"
	StatusStopped  HealthStatus = "stopped"
)

// ComponentHealth is one component's answer to a health probe. Error
// carries detail when Healthy is false, e.g. a stream client that has
// lost its connection.
type ComponentHealth struct {
	Name    string
	Healthy bool
	Error   error
}

// Component is a managed daemon unit: the stream client, the staleness
// sweeper, the introspection server. Init order follows Dependencies
// (by Name), Stop runs in reverse registration order.
type Component interface {
	Name() string
	Dependencies() []string
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) (*ComponentHealth, error)
}
