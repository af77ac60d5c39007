package season

import (
	"context"
	"time"
)

// Repository describes season persistence needs from use cases.
type Repository interface {
	GetCurrentSeason(ctx context.Context) (Season, bool, error)
	SetCurrentSeason(ctx context.Context, s Season) error

	GetSettings(ctx context.Context) (Settings, error)
	SetSettings(ctx context.Context, settings Settings) error

	GetHistory(ctx context.Context, number int) (History, bool, error)
	SaveHistory(ctx context.Context, h History) error
	ListHistory(ctx context.Context) ([]History, error)

	GetJobs(ctx context.Context, number int) (Jobs, bool, error)
	SetJobs(ctx context.Context, number int, jobs Jobs) error
	DeleteJobs(ctx context.Context, number int) error

	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error

	AddFailedPost(ctx context.Context, post FailedPost) error
	ListFailedPosts(ctx context.Context) ([]FailedPost, error)
	ClearFailedPosts(ctx context.Context) error
}

// HistoryReader is the read-only slice of Repository the request layer and
// the caching decorator need.
type HistoryReader interface {
	GetHistory(ctx context.Context, number int) (History, bool, error)
	ListHistory(ctx context.Context) ([]History, error)
}
