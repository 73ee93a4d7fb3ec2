package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/usertype"
)

func testUser(types *usertype.Map, username string) entity.User {
	return entity.User{
		Username:     username,
		Email:        username + "@x.com",
		UserType:     types.Get("Writer"),
		PasswordHash: "hash",
		UserMeta:     []byte("{}"),
		Enabled:      true,
	}
}

func TestFileRepoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	types := usertype.NewMap()
	log := zap.NewNop().Sugar()

	r, err := NewFileRepo(dir, types, log)
	require.NoError(t, err)

	added, err := r.Add(context.Background(), testUser(types, "alice"))
	require.NoError(t, err)
	require.NotEmpty(t, added.ID)
	assert.False(t, added.DateAdded.IsZero())
	r.Close()

	// a fresh repo sees what the first one wrote
	r2, err := NewFileRepo(dir, types, log)
	require.NoError(t, err)
	got, err := r2.GetByID(context.Background(), added.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "Writer", got.UserType.Name())
}

func TestFileRepoUniqueness(t *testing.T) {
	types := usertype.NewMap()
	r, err := NewFileRepo(t.TempDir(), types, zap.NewNop().Sugar())
	require.NoError(t, err)

	a, err := r.Add(context.Background(), testUser(types, "alice"))
	require.NoError(t, err)

	dup := testUser(types, "alice")
	dup.Email = "other@x.com"
	_, err = r.Add(context.Background(), dup)
	assert.ErrorIs(t, err, errs.ErrUserExists)

	dup = testUser(types, "alice2")
	dup.Email = "alice@x.com"
	_, err = r.Add(context.Background(), dup)
	assert.ErrorIs(t, err, errs.ErrEmailExists)

	// editing back its own identity is not a collision
	a.FirstName = "Alice"
	_, err = r.Edit(context.Background(), a)
	assert.NoError(t, err)
}

func TestFileRepoSkipsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"1":{"id":"1"},"2":{
		"id":"2","username":"bob","email":"bob@x.com","userType":"Writer",
		"passwordHash":"hash","enabled":true,"dateAdded":1700000000000,
		"dateUpdated":1700000000000}}`), 0o644))

	types := usertype.NewMap()
	r, err := NewFileRepo(dir, types, zap.NewNop().Sugar())
	require.NoError(t, err)

	n, err := r.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = r.GetByUsername(context.Background(), "bob")
	assert.NoError(t, err)
}

func TestFileRepoDelete(t *testing.T) {
	types := usertype.NewMap()
	r, err := NewFileRepo(t.TempDir(), types, zap.NewNop().Sugar())
	require.NoError(t, err)

	a, err := r.Add(context.Background(), testUser(types, "alice"))
	require.NoError(t, err)

	require.NoError(t, r.Delete(context.Background(), a.ID))
	assert.ErrorIs(t, r.Delete(context.Background(), a.ID), errs.ErrNotFound)
}
