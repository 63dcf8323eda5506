package ci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCommonEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GITHUB_SHA", "abc123")
	t.Setenv("GITHUB_RUN_ID", "9000")
	t.Setenv("GITHUB_RUN_NUMBER", "42")
	t.Setenv("GITHUB_ACTOR", "octocat")
	t.Setenv("GITHUB_REF_NAME", "main")
	t.Setenv("GITHUB_HEAD_REF", "")
	t.Setenv("GITHUB_BASE_REF", "")
	t.Setenv("GITHUB_REF", "refs/heads/main")
}

func TestBuildContextFromEnv_Push(t *testing.T) {
	setCommonEnv(t)
	t.Setenv("GITHUB_EVENT_NAME", "push")

	b, err := BuildContextFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "abc123", b.CommitSHA)
	assert.Equal(t, "main", b.Branch)
	assert.Equal(t, "9000", b.RunID)
	assert.Equal(t, int64(42), b.RunNumber)
	assert.Equal(t, "push", b.EventName)
	assert.False(t, b.IsPullRequest())
	assert.Nil(t, b.PRBase)
}

func TestBuildContextFromEnv_PullRequest(t *testing.T) {
	setCommonEnv(t)
	t.Setenv("GITHUB_EVENT_NAME", "pull_request")
	t.Setenv("GITHUB_HEAD_REF", "feature/faster-parser")
	t.Setenv("GITHUB_BASE_REF", "main")
	t.Setenv("GITHUB_REF", "refs/pull/123/merge")

	b, err := BuildContextFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "feature/faster-parser", b.Branch)
	require.True(t, b.IsPullRequest())
	assert.Equal(t, int64(123), *b.PRNumber)
	assert.Equal(t, "main", *b.PRBase)
	assert.Equal(t, "feature/faster-parser", *b.PRHead)
}

func TestBuildContextFromEnv_MissingRequired(t *testing.T) {
	t.Setenv("GITHUB_SHA", "")
	t.Setenv("GITHUB_RUN_ID", "")
	_, err := BuildContextFromEnv()
	require.Error(t, err)
}

func TestPRNumberFromRef(t *testing.T) {
	n, ok := prNumberFromRef("refs/pull/456/merge")
	require.True(t, ok)
	assert.Equal(t, int64(456), n)

	_, ok = prNumberFromRef("refs/heads/main")
	assert.False(t, ok)

	_, ok = prNumberFromRef("refs/pull/notanumber/merge")
	assert.False(t, ok)
}
