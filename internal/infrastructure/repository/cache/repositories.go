package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/riskibarqy/turf-wars/internal/domain/season"
	basecache "github.com/riskibarqy/turf-wars/internal/platform/cache"
)

// SeasonRepository caches the read side of season persistence. History is
// immutable once saved, so cached entries only need invalidation when a
// new record lands at season end.
type SeasonRepository struct {
	next  season.Repository
	cache *basecache.Store
}

func NewSeasonRepository(next season.Repository, cache *basecache.Store) *SeasonRepository {
	return &SeasonRepository{next: next, cache: cache}
}

func (r *SeasonRepository) GetCurrentSeason(ctx context.Context) (season.Season, bool, error) {
	return r.next.GetCurrentSeason(ctx)
}

func (r *SeasonRepository) SetCurrentSeason(ctx context.Context, s season.Season) error {
	return r.next.SetCurrentSeason(ctx, s)
}

func (r *SeasonRepository) GetSettings(ctx context.Context) (season.Settings, error) {
	v, err := r.cache.GetOrLoad(ctx, settingsKey, func(ctx context.Context) (any, error) {
		return r.next.GetSettings(ctx)
	})
	if err != nil {
		return season.Settings{}, err
	}

	settings, _ := v.(season.Settings)
	return settings, nil
}

func (r *SeasonRepository) SetSettings(ctx context.Context, settings season.Settings) error {
	if err := r.next.SetSettings(ctx, settings); err != nil {
		return err
	}
	r.cache.Delete(ctx, settingsKey)
	return nil
}

func (r *SeasonRepository) GetHistory(ctx context.Context, number int) (season.History, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, historyKey(number), func(ctx context.Context) (any, error) {
		h, exists, err := r.next.GetHistory(ctx, number)
		if err != nil {
			return nil, err
		}
		return cachedHistory{value: cloneHistory(h), exists: exists}, nil
	})
	if err != nil {
		return season.History{}, false, err
	}

	cached, _ := v.(cachedHistory)
	return cloneHistory(cached.value), cached.exists, nil
}

func (r *SeasonRepository) SaveHistory(ctx context.Context, h season.History) error {
	if err := r.next.SaveHistory(ctx, h); err != nil {
		return err
	}
	r.cache.Delete(ctx, historyKey(h.Number))
	r.cache.Delete(ctx, historyListKey)
	return nil
}

func (r *SeasonRepository) ListHistory(ctx context.Context) ([]season.History, error) {
	v, err := r.cache.GetOrLoad(ctx, historyListKey, func(ctx context.Context) (any, error) {
		items, err := r.next.ListHistory(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]season.History, 0, len(items))
		for _, item := range items {
			out = append(out, cloneHistory(item))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]season.History)
	out := make([]season.History, 0, len(items))
	for _, item := range items {
		out = append(out, cloneHistory(item))
	}
	return out, nil
}

func (r *SeasonRepository) GetJobs(ctx context.Context, number int) (season.Jobs, bool, error) {
	return r.next.GetJobs(ctx, number)
}

func (r *SeasonRepository) SetJobs(ctx context.Context, number int, jobs season.Jobs) error {
	return r.next.SetJobs(ctx, number, jobs)
}

func (r *SeasonRepository) DeleteJobs(ctx context.Context, number int) error {
	return r.next.DeleteJobs(ctx, number)
}

func (r *SeasonRepository) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.next.AcquireLock(ctx, key, ttl)
}

func (r *SeasonRepository) ReleaseLock(ctx context.Context, key string) error {
	return r.next.ReleaseLock(ctx, key)
}

func (r *SeasonRepository) AddFailedPost(ctx context.Context, post season.FailedPost) error {
	return r.next.AddFailedPost(ctx, post)
}

func (r *SeasonRepository) ListFailedPosts(ctx context.Context) ([]season.FailedPost, error) {
	return r.next.ListFailedPosts(ctx)
}

func (r *SeasonRepository) ClearFailedPosts(ctx context.Context) error {
	return r.next.ClearFailedPosts(ctx)
}

type cachedHistory struct {
	value  season.History
	exists bool
}

func cloneHistory(h season.History) season.History {
	out := h
	out.FinalStandings = append([]season.Standing(nil), h.FinalStandings...)
	return out
}

const (
	settingsKey    = "season:settings"
	historyListKey = "season:history:list"
)

func historyKey(number int) string {
	return "season:history:" + strconv.Itoa(number)
}
