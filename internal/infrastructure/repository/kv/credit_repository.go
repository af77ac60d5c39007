package kv

import (
	"context"
	"fmt"
	"strconv"

	"github.com/riskibarqy/turf-wars/internal/domain/credit"
	"github.com/riskibarqy/turf-wars/internal/platform/kvstore"
)

// CreditRepository stores each player's credit state in a small hash, one
// key per player.
type CreditRepository struct {
	store      kvstore.Store
	instanceID string
}

func NewCreditRepository(store kvstore.Store, instanceID string) *CreditRepository {
	return &CreditRepository{store: store, instanceID: instanceID}
}

func (r *CreditRepository) Get(ctx context.Context, username string) (credit.State, bool, error) {
	data, err := r.store.HGetAll(ctx, userCreditsKey(r.instanceID, username))
	if err != nil {
		return credit.State{}, false, fmt.Errorf("get credits for %s: %w", username, err)
	}
	raw, ok := data["credits"]
	if !ok {
		return credit.State{}, false, nil
	}

	credits, err := strconv.Atoi(raw)
	if err != nil {
		return credit.State{}, false, fmt.Errorf("decode credits for %s: %w", username, err)
	}
	var nextCreditTime int64
	if rawNext, ok := data["nextCreditTime"]; ok {
		nextCreditTime, err = strconv.ParseInt(rawNext, 10, 64)
		if err != nil {
			return credit.State{}, false, fmt.Errorf("decode credit cooldown for %s: %w", username, err)
		}
	}

	return credit.State{Credits: credits, NextCreditTime: nextCreditTime}, true, nil
}

func (r *CreditRepository) Set(ctx context.Context, username string, state credit.State) error {
	fields := map[string]string{
		"credits":        strconv.Itoa(state.Credits),
		"nextCreditTime": strconv.FormatInt(state.NextCreditTime, 10),
	}
	if err := r.store.HSet(ctx, userCreditsKey(r.instanceID, username), fields); err != nil {
		return fmt.Errorf("set credits for %s: %w", username, err)
	}
	return nil
}

func (r *CreditRepository) Exists(ctx context.Context, username string) (bool, error) {
	ok, err := r.store.Exists(ctx, userCreditsKey(r.instanceID, username))
	if err != nil {
		return false, fmt.Errorf("check credits for %s: %w", username, err)
	}
	return ok, nil
}
