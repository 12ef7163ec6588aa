package application_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidaco/wwwmin/internal/application"
	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockLinkStore struct {
	mu         sync.Mutex
	categories []model.LinkCategory
	links      []model.ContactLink
}

func (m *mockLinkStore) AddCategory(_ context.Context, name string) (model.LinkCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Name == name {
			return model.LinkCategory{}, driven.ErrCategoryExists
		}
	}
	c := model.LinkCategory{ID: int64(len(m.categories) + 1), Name: name}
	m.categories = append(m.categories, c)
	return c, nil
}

func (m *mockLinkStore) ListCategories(_ context.Context) ([]model.LinkCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.LinkCategory(nil), m.categories...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockLinkStore) categoryName(id int64) (string, bool) {
	for _, c := range m.categories {
		if c.ID == id {
			return c.Name, true
		}
	}
	return "", false
}

func (m *mockLinkStore) AddLink(_ context.Context, l model.ContactLink) (model.ContactLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.categoryName(l.CategoryID)
	if !ok {
		return model.ContactLink{}, driven.ErrCategoryNotFound
	}
	l.ID = int64(len(m.links) + 1)
	l.CategoryName = name
	m.links = append(m.links, l)
	return l, nil
}

func (m *mockLinkStore) UpdateLink(_ context.Context, l model.ContactLink) (model.ContactLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.categoryName(l.CategoryID)
	if !ok {
		return model.ContactLink{}, driven.ErrCategoryNotFound
	}
	for i := range m.links {
		if m.links[i].ID == l.ID {
			l.CategoryName = name
			m.links[i] = l
			return l, nil
		}
	}
	return model.ContactLink{}, driven.ErrLinkNotFound
}

func (m *mockLinkStore) ListLinks(_ context.Context) ([]model.ContactLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ContactLink(nil), m.links...), nil
}

// --- Tests ---

func TestLinkService_AddAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc := application.NewLinkService(&mockLinkStore{}, nil)

	cat, err := svc.AddCategory(ctx, application.CategoryInput{Name: " Social "})
	require.NoError(t, err)
	assert.Equal(t, "Social", cat.Name)

	_, err = svc.AddCategory(ctx, application.CategoryInput{Name: "Social"})
	assert.ErrorIs(t, err, driven.ErrCategoryExists)

	link, err := svc.AddLink(ctx, application.LinkInput{Name: "GitHub", Href: "https://github.com/aidaco", CategoryID: cat.ID})
	require.NoError(t, err)
	assert.Equal(t, "Social", link.CategoryName)

	updated, err := svc.UpdateLink(ctx, link.ID, application.LinkInput{Name: "Code", Href: "https://git.example.com", CategoryID: cat.ID})
	require.NoError(t, err)
	assert.Equal(t, "Code", updated.Name)

	_, err = svc.UpdateLink(ctx, 42, application.LinkInput{Name: "x", Href: "https://x.example", CategoryID: cat.ID})
	assert.ErrorIs(t, err, driven.ErrLinkNotFound)

	_, err = svc.AddLink(ctx, application.LinkInput{Name: "x", Href: "https://x.example", CategoryID: 7})
	assert.ErrorIs(t, err, driven.ErrCategoryNotFound)
}

func TestLinkService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := application.NewLinkService(&mockLinkStore{}, nil)

	_, err := svc.AddCategory(ctx, application.CategoryInput{Name: "   "})
	var verr *application.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")

	_, err = svc.AddLink(ctx, application.LinkInput{Name: "x", Href: "not a url", CategoryID: 1})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "href")

	_, err = svc.AddLink(ctx, application.LinkInput{Name: "x", Href: "https://x.example"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "categoryid")
}

func TestLinkService_Grouped(t *testing.T) {
	ctx := context.Background()
	store := &mockLinkStore{}
	svc := application.NewLinkService(store, []model.StaticLink{
		{Category: "Social", Name: "Mastodon", Href: "https://mastodon.example/@a"},
		{Category: "Elsewhere", Name: "Blog", Href: "https://blog.example"},
	})

	social, err := svc.AddCategory(ctx, application.CategoryInput{Name: "Social"})
	require.NoError(t, err)
	_, err = svc.AddCategory(ctx, application.CategoryInput{Name: "Empty"})
	require.NoError(t, err)
	email, err := svc.AddCategory(ctx, application.CategoryInput{Name: "Email"})
	require.NoError(t, err)

	_, err = svc.AddLink(ctx, application.LinkInput{Name: "GitHub", Href: "https://github.com/a", CategoryID: social.ID})
	require.NoError(t, err)
	_, err = svc.AddLink(ctx, application.LinkInput{Name: "Mail", Href: "mailto:a@example.com", CategoryID: email.ID})
	require.NoError(t, err)

	groups, err := svc.Grouped(ctx)
	require.NoError(t, err)

	var names []string
	for _, g := range groups {
		names = append(names, g.Category)
	}
	assert.Equal(t, []string{"Email", "Social", "Elsewhere"}, names)

	require.Len(t, groups[1].Links, 2)
	assert.Equal(t, "GitHub", groups[1].Links[0].Name)
	assert.Equal(t, "Mastodon", groups[1].Links[1].Name)
	assert.Equal(t, "Blog", groups[2].Links[0].Name)
}
