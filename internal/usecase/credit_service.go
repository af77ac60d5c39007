package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/turf-wars/internal/domain/credit"
	"github.com/riskibarqy/turf-wars/internal/domain/game"
)

// CreditService owns the regenerating action currency. Regeneration is
// lazy: nothing ticks in the background, missed credits are granted on
// the next read.
type CreditService struct {
	creditRepo credit.Repository
	cfg        game.Config
	now        func() time.Time
}

func NewCreditService(creditRepo credit.Repository, cfg game.Config) *CreditService {
	return &CreditService{
		creditRepo: creditRepo,
		cfg:        cfg,
		now:        time.Now,
	}
}

// GetUserCredits returns the player's state after applying any pending
// regeneration. A player with no stored state gets the configured initial
// credits without a write; persistence starts on the first spend.
func (s *CreditService) GetUserCredits(ctx context.Context, username string) (credit.State, error) {
	ctx, span := startUsecaseSpan(ctx, "CreditService.GetUserCredits")
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" {
		return credit.State{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	state, exists, err := s.creditRepo.Get(ctx, username)
	if err != nil {
		return credit.State{}, fmt.Errorf("get credits: %w", err)
	}
	if !exists {
		return credit.State{Credits: s.cfg.InitialCredits, NextCreditTime: 0}, nil
	}

	now := s.now().UnixMilli()
	if state.Credits < s.cfg.MaxCredits && state.NextCreditTime > 0 && now >= state.NextCreditTime {
		return s.regenerate(ctx, username, state, now)
	}

	return state, nil
}

// regenerate grants floor(elapsed/cooldown) credits since the anchor time
// and advances the anchor by exactly the granted amount, so the remainder
// of a partially elapsed interval is never lost.
func (s *CreditService) regenerate(ctx context.Context, username string, state credit.State, now int64) (credit.State, error) {
	cooldownMs := s.cfg.CreditCooldownMs()
	creditsToAdd := int((now - state.NextCreditTime) / cooldownMs)
	if creditsToAdd <= 0 {
		return state, nil
	}

	newCredits := state.Credits + creditsToAdd
	if newCredits > s.cfg.MaxCredits {
		newCredits = s.cfg.MaxCredits
	}

	next := credit.State{Credits: newCredits}
	if newCredits < s.cfg.MaxCredits {
		next.NextCreditTime = state.NextCreditTime + int64(creditsToAdd)*cooldownMs
	}

	if err := s.creditRepo.Set(ctx, username, next); err != nil {
		return credit.State{}, fmt.Errorf("persist regenerated credits: %w", err)
	}
	return next, nil
}

// DeductCredit spends one credit and returns the resulting state. The
// cooldown anchor is set once per refill cycle: spending while a cooldown
// is already running keeps the existing anchor.
func (s *CreditService) DeductCredit(ctx context.Context, username string) (credit.State, error) {
	ctx, span := startUsecaseSpan(ctx, "CreditService.DeductCredit")
	defer span.End()

	current, err := s.GetUserCredits(ctx, username)
	if err != nil {
		return credit.State{}, err
	}
	if current.Credits <= 0 {
		return credit.State{}, fmt.Errorf("%w: user=%s", ErrInsufficientCredits, username)
	}

	next := credit.State{
		Credits:        current.Credits - 1,
		NextCreditTime: current.NextCreditTime,
	}
	if current.NextCreditTime == 0 || current.Credits == s.cfg.MaxCredits {
		next.NextCreditTime = s.now().UnixMilli() + s.cfg.CreditCooldownMs()
	}

	if err := s.creditRepo.Set(ctx, username, next); err != nil {
		return credit.State{}, fmt.Errorf("persist deducted credits: %w", err)
	}
	return next, nil
}

// InitializeUser writes the initial state only when none exists, so an
// active player is never reset.
func (s *CreditService) InitializeUser(ctx context.Context, username string) error {
	ctx, span := startUsecaseSpan(ctx, "CreditService.InitializeUser")
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	exists, err := s.creditRepo.Exists(ctx, username)
	if err != nil {
		return fmt.Errorf("check credits: %w", err)
	}
	if exists {
		return nil
	}

	state := credit.State{Credits: s.cfg.InitialCredits, NextCreditTime: 0}
	if err := s.creditRepo.Set(ctx, username, state); err != nil {
		return fmt.Errorf("initialize credits: %w", err)
	}
	return nil
}

func (s *CreditService) HasCredits(ctx context.Context, username string) (bool, error) {
	state, err := s.GetUserCredits(ctx, username)
	if err != nil {
		return false, err
	}
	return state.Credits > 0, nil
}

// TimeUntilNextCredit reports the remaining cooldown in milliseconds, or
// zero when the player is at max or no cooldown is running.
func (s *CreditService) TimeUntilNextCredit(ctx context.Context, username string) (int64, error) {
	state, err := s.GetUserCredits(ctx, username)
	if err != nil {
		return 0, err
	}
	if state.Credits >= s.cfg.MaxCredits || state.NextCreditTime == 0 {
		return 0, nil
	}

	remaining := state.NextCreditTime - s.now().UnixMilli()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
