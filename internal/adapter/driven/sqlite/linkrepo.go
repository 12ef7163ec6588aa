package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.LinkStore = (*LinkRepo)(nil)

// LinkRepo is the SQLite implementation of the LinkStore port interface.
type LinkRepo struct {
	db *DB
}

// NewLinkRepo creates a new LinkRepo backed by the given DB.
func NewLinkRepo(db *DB) *LinkRepo {
	return &LinkRepo{db: db}
}

// AddCategory inserts a category. Returns driven.ErrCategoryExists when the
// name is taken.
func (r *LinkRepo) AddCategory(ctx context.Context, name string) (model.LinkCategory, error) {
	const query = `INSERT INTO link_categories (name) VALUES (?) RETURNING id`

	c := model.LinkCategory{Name: name}
	err := r.db.Writer.QueryRowContext(ctx, query, name).Scan(&c.ID)
	if isUniqueViolation(err) {
		return model.LinkCategory{}, fmt.Errorf("add category %s: %w", name, driven.ErrCategoryExists)
	}
	if err != nil {
		return model.LinkCategory{}, fmt.Errorf("add category %s: %w", name, err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func (r *LinkRepo) ListCategories(ctx context.Context) ([]model.LinkCategory, error) {
	const query = `SELECT id, name FROM link_categories ORDER BY name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []model.LinkCategory
	for rows.Next() {
		var c model.LinkCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// AddLink inserts a link. Returns driven.ErrCategoryNotFound when the
// category does not exist.
func (r *LinkRepo) AddLink(ctx context.Context, link model.ContactLink) (model.ContactLink, error) {
	const query = `INSERT INTO contact_links (name, href, category_id) VALUES (?, ?, ?) RETURNING id`

	err := r.db.Writer.QueryRowContext(ctx, query, link.Name, link.Href, link.CategoryID).Scan(&link.ID)
	if isForeignKeyViolation(err) {
		return model.ContactLink{}, fmt.Errorf("add link %s: %w", link.Name, driven.ErrCategoryNotFound)
	}
	if err != nil {
		return model.ContactLink{}, fmt.Errorf("add link %s: %w", link.Name, err)
	}
	return r.get(ctx, link.ID)
}

// UpdateLink replaces name, href and category of an existing link.
func (r *LinkRepo) UpdateLink(ctx context.Context, link model.ContactLink) (model.ContactLink, error) {
	const query = `UPDATE contact_links SET name = ?, href = ?, category_id = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, link.Name, link.Href, link.CategoryID, link.ID)
	if isForeignKeyViolation(err) {
		return model.ContactLink{}, fmt.Errorf("update link %d: %w", link.ID, driven.ErrCategoryNotFound)
	}
	if err != nil {
		return model.ContactLink{}, fmt.Errorf("update link %d: %w", link.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return model.ContactLink{}, fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return model.ContactLink{}, fmt.Errorf("update link %d: %w", link.ID, driven.ErrLinkNotFound)
	}
	return r.get(ctx, link.ID)
}

// ListLinks returns all links with their category names, ordered by category
// then link name.
func (r *LinkRepo) ListLinks(ctx context.Context) ([]model.ContactLink, error) {
	const query = `SELECT l.id, l.name, l.href, l.category_id, c.name
		FROM contact_links l JOIN link_categories c ON c.id = l.category_id
		ORDER BY c.name, l.name, l.id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var out []model.ContactLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return out, nil
}

// get reads through the writer so a row written a moment ago is visible.
func (r *LinkRepo) get(ctx context.Context, id int64) (model.ContactLink, error) {
	const query = `SELECT l.id, l.name, l.href, l.category_id, c.name
		FROM contact_links l JOIN link_categories c ON c.id = l.category_id
		WHERE l.id = ?`

	l, err := scanLink(r.db.Writer.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ContactLink{}, fmt.Errorf("get link %d: %w", id, driven.ErrLinkNotFound)
	}
	if err != nil {
		return model.ContactLink{}, fmt.Errorf("get link %d: %w", id, err)
	}
	return *l, nil
}

func scanLink(s scanner) (*model.ContactLink, error) {
	var l model.ContactLink
	if err := s.Scan(&l.ID, &l.Name, &l.Href, &l.CategoryID, &l.CategoryName); err != nil {
		return nil, err
	}
	return &l, nil
}
