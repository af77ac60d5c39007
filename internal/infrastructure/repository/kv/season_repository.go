package kv

import (
	"context"
	"fmt"
	"strconv"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/turf-wars/internal/domain/season"
	"github.com/riskibarqy/turf-wars/internal/platform/kvstore"
)

// maxSeasonHistory caps the history index; the oldest record falls off when
// an eleventh season completes.
const maxSeasonHistory = 10

// SeasonRepository persists season metadata, settings, history, job records,
// the transition lock and the failed-posts queue.
type SeasonRepository struct {
	store kvstore.Store
}

func NewSeasonRepository(store kvstore.Store) *SeasonRepository {
	return &SeasonRepository{store: store}
}

func (r *SeasonRepository) GetCurrentSeason(ctx context.Context) (season.Season, bool, error) {
	raw, ok, err := r.store.Get(ctx, keySeasonCurrent)
	if err != nil {
		return season.Season{}, false, fmt.Errorf("get current season: %w", err)
	}
	if !ok {
		return season.Season{}, false, nil
	}

	var s season.Season
	if err := sonic.UnmarshalString(raw, &s); err != nil {
		return season.Season{}, false, fmt.Errorf("decode current season: %w", err)
	}
	return s, true, nil
}

func (r *SeasonRepository) SetCurrentSeason(ctx context.Context, s season.Season) error {
	if err := s.Validate(); err != nil {
		return err
	}

	raw, err := sonic.MarshalString(s)
	if err != nil {
		return fmt.Errorf("encode current season: %w", err)
	}
	if err := r.store.Set(ctx, keySeasonCurrent, raw); err != nil {
		return fmt.Errorf("set current season: %w", err)
	}
	return nil
}

func (r *SeasonRepository) GetSettings(ctx context.Context) (season.Settings, error) {
	raw, ok, err := r.store.Get(ctx, keySeasonSettings)
	if err != nil {
		return season.Settings{}, fmt.Errorf("get season settings: %w", err)
	}
	if !ok {
		return season.DefaultSettings(), nil
	}

	var settings season.Settings
	if err := sonic.UnmarshalString(raw, &settings); err != nil {
		return season.Settings{}, fmt.Errorf("decode season settings: %w", err)
	}
	return settings, nil
}

func (r *SeasonRepository) SetSettings(ctx context.Context, settings season.Settings) error {
	if settings.DurationMs <= 0 {
		return fmt.Errorf("season duration must be positive, got %d", settings.DurationMs)
	}

	raw, err := sonic.MarshalString(settings)
	if err != nil {
		return fmt.Errorf("encode season settings: %w", err)
	}
	if err := r.store.Set(ctx, keySeasonSettings, raw); err != nil {
		return fmt.Errorf("set season settings: %w", err)
	}
	return nil
}

func (r *SeasonRepository) GetHistory(ctx context.Context, number int) (season.History, bool, error) {
	if number < 1 {
		return season.History{}, false, fmt.Errorf("season number must be positive, got %d", number)
	}

	raw, ok, err := r.store.Get(ctx, seasonHistoryKey(number))
	if err != nil {
		return season.History{}, false, fmt.Errorf("get season %d history: %w", number, err)
	}
	if !ok {
		return season.History{}, false, nil
	}

	var h season.History
	if err := sonic.UnmarshalString(raw, &h); err != nil {
		return season.History{}, false, fmt.Errorf("decode season %d history: %w", number, err)
	}
	return h, true, nil
}

func (r *SeasonRepository) SaveHistory(ctx context.Context, h season.History) error {
	if h.Number < 1 {
		return fmt.Errorf("season number must be positive, got %d", h.Number)
	}

	raw, err := sonic.MarshalString(h)
	if err != nil {
		return fmt.Errorf("encode season %d history: %w", h.Number, err)
	}
	if err := r.store.Set(ctx, seasonHistoryKey(h.Number), raw); err != nil {
		return fmt.Errorf("save season %d history: %w", h.Number, err)
	}

	member := kvstore.ZMember{Member: strconv.Itoa(h.Number), Score: float64(h.Number)}
	if err := r.store.ZAdd(ctx, keySeasonHistoryIndex, member); err != nil {
		return fmt.Errorf("index season %d history: %w", h.Number, err)
	}

	return r.trimHistoryIndex(ctx)
}

func (r *SeasonRepository) ListHistory(ctx context.Context) ([]season.History, error) {
	members, err := r.store.ZRangeByRank(ctx, keySeasonHistoryIndex, 0, maxSeasonHistory-1, true)
	if err != nil {
		return nil, fmt.Errorf("read history index: %w", err)
	}

	out := make([]season.History, 0, len(members))
	for _, m := range members {
		number, err := strconv.Atoi(m.Member)
		if err != nil {
			continue
		}
		h, ok, err := r.GetHistory(ctx, number)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *SeasonRepository) trimHistoryIndex(ctx context.Context) error {
	count, err := r.store.ZCard(ctx, keySeasonHistoryIndex)
	if err != nil {
		return fmt.Errorf("count history index: %w", err)
	}
	if count <= maxSeasonHistory {
		return nil
	}
	if err := r.store.ZRemRangeByRank(ctx, keySeasonHistoryIndex, 0, count-maxSeasonHistory-1); err != nil {
		return fmt.Errorf("trim history index: %w", err)
	}
	return nil
}

func (r *SeasonRepository) GetJobs(ctx context.Context, number int) (season.Jobs, bool, error) {
	raw, ok, err := r.store.Get(ctx, seasonJobsKey(number))
	if err != nil {
		return nil, false, fmt.Errorf("get season %d jobs: %w", number, err)
	}
	if !ok {
		return nil, false, nil
	}

	var jobs season.Jobs
	if err := sonic.UnmarshalString(raw, &jobs); err != nil {
		return nil, false, fmt.Errorf("decode season %d jobs: %w", number, err)
	}
	return jobs, true, nil
}

func (r *SeasonRepository) SetJobs(ctx context.Context, number int, jobs season.Jobs) error {
	raw, err := sonic.MarshalString(jobs)
	if err != nil {
		return fmt.Errorf("encode season %d jobs: %w", number, err)
	}
	if err := r.store.Set(ctx, seasonJobsKey(number), raw); err != nil {
		return fmt.Errorf("set season %d jobs: %w", number, err)
	}
	return nil
}

func (r *SeasonRepository) DeleteJobs(ctx context.Context, number int) error {
	if err := r.store.Del(ctx, seasonJobsKey(number)); err != nil {
		return fmt.Errorf("delete season %d jobs: %w", number, err)
	}
	return nil
}

func (r *SeasonRepository) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.store.SetNX(ctx, key, "locked", ttl)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return ok, nil
}

func (r *SeasonRepository) ReleaseLock(ctx context.Context, key string) error {
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}

func (r *SeasonRepository) AddFailedPost(ctx context.Context, post season.FailedPost) error {
	raw, err := sonic.MarshalString(post)
	if err != nil {
		return fmt.Errorf("encode failed post: %w", err)
	}
	member := kvstore.ZMember{Member: raw, Score: float64(post.Timestamp)}
	if err := r.store.ZAdd(ctx, keyFailedPosts, member); err != nil {
		return fmt.Errorf("queue failed post: %w", err)
	}
	return nil
}

func (r *SeasonRepository) ListFailedPosts(ctx context.Context) ([]season.FailedPost, error) {
	members, err := r.store.ZRangeByRank(ctx, keyFailedPosts, 0, -1, false)
	if err != nil {
		return nil, fmt.Errorf("read failed posts: %w", err)
	}

	out := make([]season.FailedPost, 0, len(members))
	for _, m := range members {
		var post season.FailedPost
		if err := sonic.UnmarshalString(m.Member, &post); err != nil {
			continue
		}
		out = append(out, post)
	}
	return out, nil
}

func (r *SeasonRepository) ClearFailedPosts(ctx context.Context) error {
	if err := r.store.Del(ctx, keyFailedPosts); err != nil {
		return fmt.Errorf("clear failed posts: %w", err)
	}
	return nil
}
