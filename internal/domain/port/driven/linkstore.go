package driven

import (
	"context"
	"errors"

	"github.com/aidaco/wwwmin/internal/domain/model"
)

// Sentinel errors returned by LinkStore implementations.
var (
	// ErrCategoryExists indicates a category with the same name already exists.
	ErrCategoryExists = errors.New("link category already exists")

	// ErrCategoryNotFound indicates a link referenced an unknown category.
	ErrCategoryNotFound = errors.New("link category not found")

	// ErrLinkNotFound indicates the link to update does not exist.
	ErrLinkNotFound = errors.New("link not found")
)

// LinkStore defines the driven port for link categories and contact links.
type LinkStore interface {
	AddCategory(ctx context.Context, name string) (model.LinkCategory, error)
	ListCategories(ctx context.Context) ([]model.LinkCategory, error)
	AddLink(ctx context.Context, link model.ContactLink) (model.ContactLink, error)
	UpdateLink(ctx context.Context, link model.ContactLink) (model.ContactLink, error)
	ListLinks(ctx context.Context) ([]model.ContactLink, error)
}
