package ports

import (
	"context"

	"kbweb/domain/core/aggregates"
)

// Renderer displays assembled results. The viewer is taken from ctx;
// every call replaces what was shown before.
type Renderer interface {
	Render(ctx context.Context, graph *aggregates.ResultGraph) error
}
