package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

func TestLinkRepo_Categories(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLinkRepo(db)
	ctx := context.Background()

	social, err := repo.AddCategory(ctx, "Social")
	require.NoError(t, err)
	assert.NotZero(t, social.ID)

	_, err = repo.AddCategory(ctx, "Email")
	require.NoError(t, err)

	_, err = repo.AddCategory(ctx, "Social")
	assert.ErrorIs(t, err, driven.ErrCategoryExists)

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Email", cats[0].Name)
	assert.Equal(t, "Social", cats[1].Name)
}

func TestLinkRepo_AddAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLinkRepo(db)
	ctx := context.Background()

	social, err := repo.AddCategory(ctx, "Social")
	require.NoError(t, err)
	email, err := repo.AddCategory(ctx, "Email")
	require.NoError(t, err)

	gh, err := repo.AddLink(ctx, model.ContactLink{Name: "GitHub", Href: "https://github.com/aidaco", CategoryID: social.ID})
	require.NoError(t, err)
	assert.NotZero(t, gh.ID)
	assert.Equal(t, "Social", gh.CategoryName)

	_, err = repo.AddLink(ctx, model.ContactLink{Name: "Mail", Href: "mailto:a@example.com", CategoryID: email.ID})
	require.NoError(t, err)

	links, err := repo.ListLinks(ctx)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "Mail", links[0].Name)
	assert.Equal(t, "Email", links[0].CategoryName)
	assert.Equal(t, "GitHub", links[1].Name)
}

func TestLinkRepo_AddLinkUnknownCategory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLinkRepo(db)

	_, err := repo.AddLink(context.Background(), model.ContactLink{Name: "x", Href: "https://x.example", CategoryID: 99})
	assert.ErrorIs(t, err, driven.ErrCategoryNotFound)
}

func TestLinkRepo_UpdateLink(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLinkRepo(db)
	ctx := context.Background()

	social, err := repo.AddCategory(ctx, "Social")
	require.NoError(t, err)
	code, err := repo.AddCategory(ctx, "Code")
	require.NoError(t, err)

	link, err := repo.AddLink(ctx, model.ContactLink{Name: "GitHub", Href: "https://github.com/a", CategoryID: social.ID})
	require.NoError(t, err)

	link.Name = "Forge"
	link.Href = "https://codeberg.org/a"
	link.CategoryID = code.ID
	updated, err := repo.UpdateLink(ctx, link)
	require.NoError(t, err)
	assert.Equal(t, "Forge", updated.Name)
	assert.Equal(t, "https://codeberg.org/a", updated.Href)
	assert.Equal(t, "Code", updated.CategoryName)

	_, err = repo.UpdateLink(ctx, model.ContactLink{ID: 999, Name: "x", Href: "https://x.example", CategoryID: code.ID})
	assert.ErrorIs(t, err, driven.ErrLinkNotFound)

	link.CategoryID = 999
	_, err = repo.UpdateLink(ctx, link)
	assert.ErrorIs(t, err, driven.ErrCategoryNotFound)
}
