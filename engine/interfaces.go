package engine

import (
	"context"

	"finquest/core"
)

// Persistence is the external snapshot store keyed by user identity.
// Load reports found=false for users it has never seen.
type Persistence interface {
	Load(ctx context.Context, user core.UserID) (st core.State, found bool, err error)
	Save(ctx context.Context, user core.UserID, st core.State) error
}

// EventHandler receives published events.
type EventHandler func(context.Context, core.Event)
