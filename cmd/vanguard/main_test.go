package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/cds-vanguard/internal/question"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFallbackCommandPrintsOfflinePack(t *testing.T) {
	t.Setenv("GENERATOR_API_KEYS", "")

	out, err := run(t, "fallback", "--topic", "polity", "--name", "Indian Polity")
	require.NoError(t, err)

	var pack question.Pack
	require.NoError(t, json.Unmarshal([]byte(out), &pack))
	assert.Equal(t, question.SourceFallback, pack.Source)
	assert.Equal(t, "polity", pack.Topic.ID)
	assert.NotEmpty(t, pack.Questions)
	for _, q := range pack.Questions {
		assert.True(t, q.Valid())
	}
}

func TestSupplyWithoutCredentialsFallsBack(t *testing.T) {
	t.Setenv("GENERATOR_API_KEYS", "")

	out, err := run(t, "supply", "--topic", "quantum-widgets", "--count", "4")
	require.NoError(t, err)

	var pack question.Pack
	require.NoError(t, json.Unmarshal([]byte(out), &pack))
	assert.Equal(t, question.SourceFallback, pack.Source)
	assert.Equal(t, 4, pack.Requested)
}

func TestTopicValidation(t *testing.T) {
	_, err := run(t, "fallback", "--topic", "polity", "--section", "astrology")
	assert.ErrorContains(t, err, "unknown section")

	_, err = run(t, "fallback")
	assert.Error(t, err)
}
