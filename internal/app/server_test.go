package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/booth-feedback/internal/config"
	"github.com/godilite/booth-feedback/internal/repository/models"
	"github.com/godilite/booth-feedback/internal/stt"
)

func writeMembers(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "members.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Server.DBPath = ":memory:"
	cfg.Server.RedisAddr = ""
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Server.GRPCPort = 0
	cfg.Server.STTStaticText = "nice booth"
	cfg.Server.MembersFile = writeMembers(t, `
members:
  - email: Ann@Example.com
    name: Ann
    booth_id: A-01
    team_name: Alpha
`)
	return cfg
}

func TestLoadMembers(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		members, err := LoadMembers(writeMembers(t, `
members:
  - email: ann@example.com
    name: Ann
    booth_id: a-01
    team_name: Alpha
  - email: bob@example.com
    booth_id: a-01
`))
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Equal(t, models.Member{Email: "ann@example.com", Name: "Ann", BoothID: "a-01", TeamName: "Alpha"}, members[0])
	})

	t.Run("missing booth", func(t *testing.T) {
		_, err := LoadMembers(writeMembers(t, "members:\n  - email: ann@example.com\n"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadMembers(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestNewRecognizer(t *testing.T) {
	r, err := newRecognizer(context.Background(), config.ServerConfig{STTProvider: "static", STTStaticText: "hi"})
	require.NoError(t, err)
	assert.Equal(t, stt.StaticRecognizer{Text: "hi"}, r)

	_, err = newRecognizer(context.Background(), config.ServerConfig{STTProvider: "whisper"})
	assert.Error(t, err)
}

func TestServerRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv, err := NewServer(ctx, testConfig(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	api := httptest.NewServer(srv.Handler())
	defer api.Close()

	resp, err := http.Post(api.URL+"/api/submit_feedback", "application/json", strings.NewReader(
		`{"booth_id":"A-01","praise_ratio":"80","advice_ratio":"20","raw_text":"great demo","visitor_attribute":"student"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(api.URL + "/api/feedback/ann@example.com")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		TeamName     string  `json:"team_name"`
		BoothID      string  `json:"booth_id"`
		AverageScore float64 `json:"average_score"`
		TotalCount   int     `json:"total_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Alpha", body.TeamName)
	assert.Equal(t, "a-01", body.BoothID)
	assert.Equal(t, 80.0, body.AverageScore)
	assert.Equal(t, 1, body.TotalCount)
}

func TestNewServerUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.DBDriver = "oracle"

	_, err := NewServer(context.Background(), cfg, zaptest.NewLogger(t))

	assert.Error(t, err)
}
