package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/kontera/internal/cache"
	"github.com/smallbiznis/kontera/internal/contact/domain"
	contactrepo "github.com/smallbiznis/kontera/internal/contact/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newContactService(t *testing.T) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Contact{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     contactrepo.Provide(),
		TagCache: cache.NewContactTagCache(),
	})
}

func TestCreateContactNormalizesTag(t *testing.T) {
	svc := newContactService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateContactRequest{
		Name: "  Acme Interiors  ",
		Tag:  "  Wholesale ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Interiors", created.Name)
	assert.Equal(t, "wholesale", created.Tag)
}

func TestCreateContactRejectsBlankName(t *testing.T) {
	svc := newContactService(t)

	_, err := svc.Create(context.Background(), domain.CreateContactRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestCurrentTagReflectsSetTag(t *testing.T) {
	svc := newContactService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateContactRequest{Name: "Acme", Tag: "retail"})
	require.NoError(t, err)

	// Prime the cache, then change the tag. SetTag must invalidate so the
	// next read sees the new value.
	tag, err := svc.CurrentTag(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "retail", tag)

	_, err = svc.SetTag(ctx, domain.SetTagRequest{ID: created.ID.String(), Tag: "Wholesale"})
	require.NoError(t, err)

	tag, err = svc.CurrentTag(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "wholesale", tag)
}

func TestCurrentTagUnknownContact(t *testing.T) {
	svc := newContactService(t)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	_, err = svc.CurrentTag(context.Background(), node.Generate())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetTagCanClear(t *testing.T) {
	svc := newContactService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateContactRequest{Name: "Acme", Tag: "retail"})
	require.NoError(t, err)

	updated, err := svc.SetTag(ctx, domain.SetTagRequest{ID: created.ID.String(), Tag: ""})
	require.NoError(t, err)
	assert.Empty(t, updated.Tag)
}
