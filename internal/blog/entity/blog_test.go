package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
)

func TestParseNewBlogPostDerivesSlug(t *testing.T) {
	raw := json.RawMessage(`{"title":"Hello, World!","authorId":"1","preview":"intro"}`)
	p, err := ParseNewBlogPost(raw)
	require.NoError(t, err)
	assert.Equal(t, "hello-world", p.TitleSlug)
	assert.Equal(t, "intro", p.Preview)
	assert.False(t, p.Published)
	assert.Empty(t, p.Content)
	assert.JSONEq(t, `{}`, string(p.Meta))
}

func TestParseNewBlogPostSuppliedSlug(t *testing.T) {
	raw := json.RawMessage(`{"title":"Anything","titleSlug":"my-slug","authorId":"1"}`)
	p, err := ParseNewBlogPost(raw)
	require.NoError(t, err)
	assert.Equal(t, "my-slug", p.TitleSlug)

	raw = json.RawMessage(`{"title":"Anything","titleSlug":"Bad Slug!","authorId":"1"}`)
	_, err = ParseNewBlogPost(raw)
	assert.ErrorIs(t, err, errs.ErrInvalidSlug)
}

func TestParseNewBlogPostRequiredFields(t *testing.T) {
	bad := []string{
		`{"authorId":"1"}`,
		`{"title":"x"}`,
		`{"title":"","authorId":"1"}`,
		`{"title":"!!!","authorId":"1"}`, // slug derivation yields nothing
	}
	for _, in := range bad {
		_, err := ParseNewBlogPost(json.RawMessage(in))
		assert.Error(t, err, "input %s", in)
	}
}

func TestParseNewBlogPostDropsBadSections(t *testing.T) {
	raw := json.RawMessage(`{
		"title": "Post",
		"authorId": "1",
		"content": [
			{"name":"ok","classes":[],"contentType":"text","content":"body"},
			{"name":"bad"}
		]
	}`)
	p, err := ParseNewBlogPost(raw)
	require.NoError(t, err)
	require.Len(t, p.Content, 1)
	assert.Equal(t, "ok", p.Content[0].Name)
}

func TestParseEditBlogPostRequiresDateAdded(t *testing.T) {
	_, err := ParseEditBlogPost(json.RawMessage(`{"id":"3","title":"Post","authorId":"1"}`))
	assert.ErrorIs(t, err, errs.ErrValidation)

	p, err := ParseEditBlogPost(json.RawMessage(
		`{"id":"3","title":"Post","authorId":"1","dateAdded":1700000000000}`))
	require.NoError(t, err)
	assert.Equal(t, "3", p.ID)
	assert.Equal(t, int64(1700000000000), p.DateAdded.UnixMilli())
}

func TestStoredBlogPostRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	p := BlogPost{
		ID:          "9",
		Title:       "Title",
		TitleSlug:   "title",
		Preview:     "pv",
		Meta:        json.RawMessage(`{"a":1}`),
		AuthorID:    "2",
		Published:   true,
		DateAdded:   now,
		DateUpdated: now,
	}
	raw, err := json.Marshal(p.Stored())
	require.NoError(t, err)

	got, err := ParseStoredBlogPost(raw)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.TitleSlug, got.TitleSlug)
	assert.True(t, got.Published)
	assert.True(t, got.DateUpdated.Equal(now))
}
