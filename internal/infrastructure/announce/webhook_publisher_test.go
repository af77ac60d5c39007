package announce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/turf-wars/internal/domain/season"
	"github.com/riskibarqy/turf-wars/internal/platform/resilience"
)

func TestWebhookPublisher_PublishSendsJSON(t *testing.T) {
	t.Parallel()

	var got Announcement
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	publisher, err := NewWebhookPublisher(WebhookPublisherConfig{URL: server.URL, Token: "secret"}, nil)
	require.NoError(t, err)

	announcement := BuildWarning(season.JobWarning1h, season.Season{Number: 4, EndTime: 1_000_000}, 42)
	require.NoError(t, publisher.Publish(context.Background(), announcement))

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, KindWarning1h, got.Kind)
	assert.Equal(t, 4, got.SeasonNumber)
	assert.Equal(t, int64(42), got.Timestamp)
}

func TestWebhookPublisher_NonSuccessStatusIsAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	publisher, err := NewWebhookPublisher(WebhookPublisherConfig{URL: server.URL}, nil)
	require.NoError(t, err)

	err = publisher.Publish(context.Background(), Announcement{Kind: KindSeasonEnd, SeasonNumber: 1})
	assert.Error(t, err)
}

func TestWebhookPublisher_TransientClassification(t *testing.T) {
	t.Parallel()

	serverDown := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer serverDown.Close()

	publisher, err := NewWebhookPublisher(WebhookPublisherConfig{URL: serverDown.URL}, nil)
	require.NoError(t, err)

	err = publisher.Publish(context.Background(), Announcement{Kind: KindSeasonStart, SeasonNumber: 3})
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad payload", http.StatusUnprocessableEntity)
	}))
	defer rejecting.Close()

	publisher, err = NewWebhookPublisher(WebhookPublisherConfig{URL: rejecting.URL}, nil)
	require.NoError(t, err)

	err = publisher.Publish(context.Background(), Announcement{Kind: KindSeasonStart, SeasonNumber: 3})
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

func TestWebhookPublisher_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	publisher, err := NewWebhookPublisher(WebhookPublisherConfig{
		URL:     server.URL,
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute, HalfOpenMaxReq: 1},
	}, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.Error(t, publisher.Publish(context.Background(), Announcement{Kind: KindWarning24h}))
	}

	err = publisher.Publish(context.Background(), Announcement{Kind: KindWarning24h})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestWebhookPublisher_RejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := NewWebhookPublisher(WebhookPublisherConfig{URL: "ftp://example.com"}, nil)
	assert.Error(t, err)

	_, err = NewWebhookPublisher(WebhookPublisherConfig{URL: "   "}, nil)
	assert.Error(t, err)
}

func TestBuildSeasonEnd_RendersStandings(t *testing.T) {
	t.Parallel()

	history := season.History{
		Number:     2,
		DurationMs: 7 * 24 * time.Hour.Milliseconds(),
		WinningTeam: season.WinningTeam{
			ID: "red", Name: "Red Team", Color: "#FF4444", FinalScore: 512,
		},
		FinalStandings: []season.Standing{
			{TeamID: "red", TeamName: "Red Team", Score: 512, ZonesControlled: 5, PlayerCount: 12},
			{TeamID: "blue", TeamName: "Blue Team", Score: 100, ZonesControlled: 1, PlayerCount: 9},
		},
		Statistics: season.Statistics{
			TotalPixelsPlaced: 612,
			TotalPlayers:      21,
			TopPlayer:         season.TopPlayer{Username: "alice", TeamID: "red", PixelsPlaced: 77},
		},
	}

	a := BuildSeasonEnd(history, 99)
	assert.Equal(t, KindSeasonEnd, a.Kind)
	assert.Equal(t, "Season 2 Winner: Red Team!", a.Title)
	assert.Contains(t, a.Body, "| 1 | Red Team | 512 | 5 | 12 |")
	assert.Contains(t, a.Body, "Top player: alice (77 pixels)")
	assert.Contains(t, a.Body, "Season duration: 7 days")
	assert.Contains(t, a.Body, "Season 3 is starting now")
}
