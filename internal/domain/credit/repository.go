package credit

import "context"

// Repository persists per-player credit state.
type Repository interface {
	Get(ctx context.Context, username string) (State, bool, error)
	Set(ctx context.Context, username string, state State) error
	Exists(ctx context.Context, username string) (bool, error)
}
