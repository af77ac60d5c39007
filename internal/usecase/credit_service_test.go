package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/turf-wars/internal/domain/credit"
	"github.com/riskibarqy/turf-wars/internal/domain/game"
)

func creditTestConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.CreditCooldown = 120
	cfg.MaxCredits = 10
	cfg.InitialCredits = 5
	return cfg
}

func TestCreditService_GetUserCredits_NewUserGetsInitialWithoutWrite(t *testing.T) {
	t.Parallel()

	repo := newStubCreditRepository()
	service := NewCreditService(repo, creditTestConfig())

	got, err := service.GetUserCredits(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetUserCredits error: %v", err)
	}
	if got.Credits != 5 || got.NextCreditTime != 0 {
		t.Fatalf("unexpected state for new user: %+v", got)
	}
	if repo.writes != 0 {
		t.Fatalf("expected no write for new user, got %d", repo.writes)
	}
}

func TestCreditService_GetUserCredits_RegeneratesElapsedIntervals(t *testing.T) {
	t.Parallel()

	repo := newStubCreditRepository()
	repo.states["alice"] = credit.State{Credits: 2, NextCreditTime: 1_000_000}

	service := NewCreditService(repo, creditTestConfig())
	// 2.5 cooldown intervals past the anchor: two full intervals elapsed.
	service.now = fixedClock(1_000_000 + 300_000)

	got, err := service.GetUserCredits(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetUserCredits error: %v", err)
	}
	if got.Credits != 4 {
		t.Fatalf("expected 4 credits, got %d", got.Credits)
	}
	if want := int64(1_000_000 + 240_000); got.NextCreditTime != want {
		t.Fatalf("expected anchor advanced to %d, got %d", want, got.NextCreditTime)
	}
	if repo.states["alice"] != got {
		t.Fatalf("regenerated state not persisted: %+v", repo.states["alice"])
	}
}

func TestCreditService_GetUserCredits_RegenerationCapsAtMax(t *testing.T) {
	t.Parallel()

	repo := newStubCreditRepository()
	repo.states["alice"] = credit.State{Credits: 9, NextCreditTime: 1_000_000}

	service := NewCreditService(repo, creditTestConfig())
	service.now = fixedClock(1_000_000 + 10*120_000)

	got, err := service.GetUserCredits(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetUserCredits error: %v", err)
	}
	if got.Credits != 10 {
		t.Fatalf("expected max credits, got %d", got.Credits)
	}
	if got.NextCreditTime != 0 {
		t.Fatalf("expected cooldown cleared at max, got %d", got.NextCreditTime)
	}
}

func TestCreditService_DeductCredit_StartsCooldownOnlyOncePerCycle(t *testing.T) {
	t.Parallel()

	repo := newStubCreditRepository()
	repo.states["alice"] = credit.State{Credits: 10, NextCreditTime: 0}

	service := NewCreditService(repo, creditTestConfig())
	service.now = fixedClock(500_000)

	first, err := service.DeductCredit(context.Background(), "alice")
	if err != nil {
		t.Fatalf("DeductCredit error: %v", err)
	}
	if first.Credits != 9 {
		t.Fatalf("expected 9 credits, got %d", first.Credits)
	}
	if want := int64(500_000 + 120_000); first.NextCreditTime != want {
		t.Fatalf("expected cooldown anchor %d, got %d", want, first.NextCreditTime)
	}

	service.now = fixedClock(560_000)
	second, err := service.DeductCredit(context.Background(), "alice")
	if err != nil {
		t.Fatalf("DeductCredit error: %v", err)
	}
	if second.Credits != 8 {
		t.Fatalf("expected 8 credits, got %d", second.Credits)
	}
	if second.NextCreditTime != first.NextCreditTime {
		t.Fatalf("cooldown anchor must not move on later spends: got %d want %d",
			second.NextCreditTime, first.NextCreditTime)
	}
}

func TestCreditService_DeductCredit_FailsWhenEmpty(t *testing.T) {
	t.Parallel()

	repo := newStubCreditRepository()
	repo.states["alice"] = credit.State{Credits: 0, NextCreditTime: 900_000}

	service := NewCreditService(repo, creditTestConfig())
	service.now = fixedClock(100_000)

	_, err := service.DeductCredit(context.Background(), "alice")
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if got := repo.states["alice"]; got.Credits != 0 || got.NextCreditTime != 900_000 {
		t.Fatalf("state must be untouched on failure: %+v", got)
	}
}

func TestCreditService_InitializeUser_DoesNotResetActivePlayer(t *testing.T) {
	t.Parallel()

	repo := newStubCreditRepository()
	repo.states["alice"] = credit.State{Credits: 1, NextCreditTime: 42}

	service := NewCreditService(repo, creditTestConfig())

	if err := service.InitializeUser(context.Background(), "alice"); err != nil {
		t.Fatalf("InitializeUser error: %v", err)
	}
	if got := repo.states["alice"]; got.Credits != 1 || got.NextCreditTime != 42 {
		t.Fatalf("existing state must survive initialize: %+v", got)
	}

	if err := service.InitializeUser(context.Background(), "bob"); err != nil {
		t.Fatalf("InitializeUser error: %v", err)
	}
	if got := repo.states["bob"]; got.Credits != 5 || got.NextCreditTime != 0 {
		t.Fatalf("unexpected initialized state: %+v", got)
	}
}

func TestCreditService_TimeUntilNextCredit(t *testing.T) {
	t.Parallel()

	repo := newStubCreditRepository()
	repo.states["alice"] = credit.State{Credits: 3, NextCreditTime: 200_000}

	service := NewCreditService(repo, creditTestConfig())
	service.now = fixedClock(150_000)

	remaining, err := service.TimeUntilNextCredit(context.Background(), "alice")
	if err != nil {
		t.Fatalf("TimeUntilNextCredit error: %v", err)
	}
	if remaining != 50_000 {
		t.Fatalf("expected 50000ms remaining, got %d", remaining)
	}

	repo.states["bob"] = credit.State{Credits: 10, NextCreditTime: 0}
	remaining, err = service.TimeUntilNextCredit(context.Background(), "bob")
	if err != nil {
		t.Fatalf("TimeUntilNextCredit error: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected 0 at max credits, got %d", remaining)
	}
}

func fixedClock(unixMilli int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(unixMilli) }
}

type stubCreditRepository struct {
	states map[string]credit.State
	writes int
	getErr error
	setErr error
}

func newStubCreditRepository() *stubCreditRepository {
	return &stubCreditRepository{states: map[string]credit.State{}}
}

func (s *stubCreditRepository) Get(_ context.Context, username string) (credit.State, bool, error) {
	if s.getErr != nil {
		return credit.State{}, false, s.getErr
	}
	state, ok := s.states[username]
	return state, ok, nil
}

func (s *stubCreditRepository) Set(_ context.Context, username string, state credit.State) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.writes++
	s.states[username] = state
	return nil
}

func (s *stubCreditRepository) Exists(_ context.Context, username string) (bool, error) {
	_, ok := s.states[username]
	return ok, nil
}
