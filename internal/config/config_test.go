package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"millaudit/internal/scoring"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load()
	require.ErrorIs(t, err, ErrNoDatabase)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 2, cfg.VerifyWorkers)
	assert.Equal(t, 500*time.Millisecond, cfg.VerifyPollInterval)
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, scoring.UnansweredExclude, cfg.Unanswered)
	assert.Equal(t, scoring.DefaultGradeBands(), cfg.GradeBands)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://audit@localhost/audit")
	t.Setenv("APP_ENV", "production")
	t.Setenv("VERIFY_WORKERS", "8")
	t.Setenv("VERIFY_POLL_INTERVAL", "2s")
	t.Setenv("MAX_CONNS", "20")
	t.Setenv("UNANSWERED_POLICY", "Penalize")
	t.Setenv("GRADE_EXCELLENT", "95")
	t.Setenv("GRADE_SATISFACTORY", "80")
	t.Setenv("GRADE_NEEDS_IMPROVEMENT", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 8, cfg.VerifyWorkers)
	assert.Equal(t, 2*time.Second, cfg.VerifyPollInterval)
	assert.Equal(t, int32(20), cfg.MaxConns)
	assert.Equal(t, scoring.UnansweredPenalize, cfg.Unanswered)

	p := scoring.New(cfg.EngineOptions()...).Policy()
	assert.Equal(t, scoring.GradeBands{Excellent: 95, Satisfactory: 80, NeedsImprovement: 60}, p.Bands)
	assert.Equal(t, scoring.UnansweredPenalize, p.Unanswered)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("VERIFY_WORKERS", "many")
	t.Setenv("VERIFY_POLL_INTERVAL", "-1s")
	t.Setenv("UNANSWERED_POLICY", "ignore")
	t.Setenv("GRADE_SATISFACTORY", "95")

	_, err := Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDatabase)
	for _, key := range []string{"VERIFY_WORKERS", "VERIFY_POLL_INTERVAL", "UNANSWERED_POLICY", "grade bands"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoad_MaxConnsMustFitInt32(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("MAX_CONNS", "4294967306")

	cfg, err := Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "MAX_CONNS")
	assert.Equal(t, int32(10), cfg.MaxConns)

	t.Setenv("MAX_CONNS", "2147483647")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, int32(2147483647), cfg.MaxConns)
}
