package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"millaudit/internal/domain"
)

var sampleTemplate = filepath.Join("..", "..", "templates", "flour-fortification.yaml")

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func answers(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const fullMarks = `
premix-storage: yes
premix-expiry: yes
feeder-calibration: Current
iron-ppm: 31
spot-test: Strong red
pest-control: yes
`

func TestScore(t *testing.T) {
	out, err := run(t, "score", "--template", sampleTemplate, "--responses", answers(t, fullMarks))
	require.NoError(t, err)

	var res domain.AuditResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 100.0, res.OverallPercent)
	assert.Equal(t, domain.GradeExcellent, res.Grade)
	assert.Equal(t, 6, res.Answered)
}

func TestScore_PenalizeUnanswered(t *testing.T) {
	partial := answers(t, "premix-expiry: yes\niron-ppm: 30\n")

	out, err := run(t, "score", "-t", sampleTemplate, "-r", partial)
	require.NoError(t, err)
	var res domain.AuditResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 100.0, res.OverallPercent)

	out, err = run(t, "score", "-t", sampleTemplate, "-r", partial, "--penalize-unanswered")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	// 20 of 34 weight answered.
	assert.InDelta(t, 20.0/34.0*100, res.OverallPercent, 1e-9)
	assert.Equal(t, domain.GradeNeedsImprovement, res.Grade)
}

func TestHash(t *testing.T) {
	path := answers(t, fullMarks)
	first, err := run(t, "hash", "--template", sampleTemplate, "--responses", path)
	require.NoError(t, err)
	second, err := run(t, "hash", "--template", sampleTemplate, "--responses", path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "sha256:"))

	changed, err := run(t, "hash", "--template", sampleTemplate, "--responses", answers(t, strings.Replace(fullMarks, "31", "32", 1)))
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)

	short, err := run(t, "hash", "--short", "--template", sampleTemplate, "--responses", path)
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(short), 12)
	assert.True(t, strings.HasPrefix(strings.TrimPrefix(first, "sha256:"), strings.TrimSpace(short)))
}

func TestScore_RequiresFlags(t *testing.T) {
	_, err := run(t, "score", "--template", sampleTemplate)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	out, err := run(t, "validate", sampleTemplate)
	require.NoError(t, err)
	assert.Contains(t, out, "flour-fortification@1.0.0 ok")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("id: bad\nversion: \"1\"\nsections:\n  - id: s\n    items:\n      - id: x\n        type: Numeric\n        criticality: Major\n        weight: 1\n"), 0o600))
	out, err = run(t, "validate", sampleTemplate, bad)
	require.Error(t, err)
	assert.Contains(t, out, "missing_numeric_config")
}
