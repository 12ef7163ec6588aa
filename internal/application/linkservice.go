package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// CategoryInput names a new link category.
type CategoryInput struct {
	Name string `validate:"required,max=100"`
}

// LinkInput describes a contact link to create or update.
type LinkInput struct {
	Name       string `validate:"required,max=100"`
	Href       string `validate:"required,url,max=2048"`
	CategoryID int64  `validate:"gt=0"`
}

// LinkService manages categorized contact links. Links declared in the
// configuration file are merged into Grouped but never stored.
type LinkService struct {
	store  driven.LinkStore
	static []model.StaticLink
}

// NewLinkService creates a LinkService.
func NewLinkService(store driven.LinkStore, static []model.StaticLink) *LinkService {
	return &LinkService{store: store, static: static}
}

// AddCategory creates a category. Names are unique.
func (s *LinkService) AddCategory(ctx context.Context, in CategoryInput) (model.LinkCategory, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return model.LinkCategory{}, err
	}
	return s.store.AddCategory(ctx, in.Name)
}

// ListCategories returns all categories ordered by name.
func (s *LinkService) ListCategories(ctx context.Context) ([]model.LinkCategory, error) {
	return s.store.ListCategories(ctx)
}

// AddLink creates a link in an existing category.
func (s *LinkService) AddLink(ctx context.Context, in LinkInput) (model.ContactLink, error) {
	in = normalizeLink(in)
	if err := validateStruct(in); err != nil {
		return model.ContactLink{}, err
	}
	return s.store.AddLink(ctx, model.ContactLink{
		Name:       in.Name,
		Href:       in.Href,
		CategoryID: in.CategoryID,
	})
}

// UpdateLink replaces the name, href and category of link id.
func (s *LinkService) UpdateLink(ctx context.Context, id int64, in LinkInput) (model.ContactLink, error) {
	in = normalizeLink(in)
	if err := validateStruct(in); err != nil {
		return model.ContactLink{}, err
	}
	return s.store.UpdateLink(ctx, model.ContactLink{
		ID:         id,
		Name:       in.Name,
		Href:       in.Href,
		CategoryID: in.CategoryID,
	})
}

// ListLinks returns stored links with their category names.
func (s *LinkService) ListLinks(ctx context.Context) ([]model.ContactLink, error) {
	return s.store.ListLinks(ctx)
}

// Grouped returns stored links grouped by category in category order, with
// static links appended to their named category. Categories named only by
// static links come last, in declaration order.
func (s *LinkService) Grouped(ctx context.Context) ([]model.LinkGroup, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	links, err := s.store.ListLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	var groups []model.LinkGroup
	index := make(map[string]int)
	group := func(name string) *model.LinkGroup {
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, model.LinkGroup{Category: name})
		}
		return &groups[i]
	}

	byID := make(map[int64]string, len(categories))
	for _, c := range categories {
		byID[c.ID] = c.Name
		group(c.Name)
	}

	for _, l := range links {
		name := l.CategoryName
		if name == "" {
			name = byID[l.CategoryID]
		}
		g := group(name)
		g.Links = append(g.Links, l)
	}
	for _, l := range s.static {
		g := group(l.Category)
		g.Links = append(g.Links, model.ContactLink{
			Name:         l.Name,
			Href:         l.Href,
			CategoryName: l.Category,
		})
	}

	// Empty categories are omitted.
	out := groups[:0]
	for _, g := range groups {
		if len(g.Links) > 0 {
			out = append(out, g)
		}
	}
	return out, nil
}

func normalizeLink(in LinkInput) LinkInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Href = strings.TrimSpace(in.Href)
	return in
}
