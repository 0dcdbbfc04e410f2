package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mrpavithran/SmartCanteen/internal/model"
)

func (s *Store) CreateCategory(ctx context.Context, category model.Category) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO categories (id, name, description, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, category.ID, category.Name, category.Description, category.IsActive, category.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Store) GetCategory(ctx context.Context, categoryID string) (model.Category, error) {
	var category model.Category
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM categories
		WHERE id = $1
	`, categoryID)
	err := row.Scan(&category.ID, &category.Name, &category.Description, &category.IsActive, &category.CreatedAt)
	return category, err
}

func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	query := `SELECT id, name, description, is_active, created_at FROM categories`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var category model.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Description, &category.IsActive, &category.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

type CategoryUpdate struct {
	Name        *string
	Description *string
	IsActive    *bool
}

func (s *Store) UpdateCategory(ctx context.Context, categoryID string, update CategoryUpdate) (model.Category, error) {
	var category model.Category
	row := s.pool.QueryRow(ctx, `
		UPDATE categories
		SET name = COALESCE($1, name),
		    description = COALESCE($2, description),
		    is_active = COALESCE($3, is_active)
		WHERE id = $4
		RETURNING id, name, description, is_active, created_at
	`, update.Name, update.Description, update.IsActive, categoryID)
	err := row.Scan(&category.ID, &category.Name, &category.Description, &category.IsActive, &category.CreatedAt)
	if isUniqueViolation(err) {
		return model.Category{}, ErrDuplicate
	}
	return category, err
}

// DeleteCategory refuses while the category still owns items.
func (s *Store) DeleteCategory(ctx context.Context, categoryID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM categories
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM items WHERE category_id = $1)
	`, categoryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var hasItems bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE category_id = $1)`, categoryID).Scan(&hasItems); err != nil {
			return err
		}
		if hasItems {
			return ErrCategoryNotEmpty
		}
		return pgx.ErrNoRows
	}
	return nil
}

const itemColumns = `i.id, i.category_id, i.name, i.description, i.price, i.image_url, i.is_available, i.created_at, c.name`

func scanItem(row pgx.Row) (model.Item, error) {
	var item model.Item
	err := row.Scan(
		&item.ID,
		&item.CategoryID,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.ImageURL,
		&item.IsAvailable,
		&item.CreatedAt,
		&item.CategoryName,
	)
	return item, err
}

func (s *Store) CreateItem(ctx context.Context, item model.Item) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO items (id, category_id, name, description, price, image_url, is_available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, item.ID, item.CategoryID, item.Name, item.Description, item.Price, item.ImageURL, item.IsAvailable, item.CreatedAt)
	return err
}

func (s *Store) GetItem(ctx context.Context, itemID string) (model.Item, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM items i
		JOIN categories c ON c.id = i.category_id
		WHERE i.id = $1
	`, itemID)
	return scanItem(row)
}

func (s *Store) ListItems(ctx context.Context, categoryID string, availableOnly bool) ([]model.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items i
		JOIN categories c ON c.id = i.category_id
	`
	var args []any
	var conditions []string
	if categoryID != "" {
		args = append(args, categoryID)
		conditions = append(conditions, `i.category_id = $1`)
	}
	if availableOnly {
		conditions = append(conditions, `i.is_available = TRUE`)
	}
	for i, cond := range conditions {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY i.name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type ItemUpdate struct {
	Name        *string
	Description *string
	Price       *int64
	CategoryID  *string
	ImageURL    *string
	IsAvailable *bool
}

func (s *Store) UpdateItem(ctx context.Context, itemID string, update ItemUpdate) (model.Item, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE items
		SET name = COALESCE($1, name),
		    description = COALESCE($2, description),
		    price = COALESCE($3, price),
		    category_id = COALESCE($4, category_id),
		    image_url = COALESCE($5, image_url),
		    is_available = COALESCE($6, is_available)
		WHERE id = $7
	`, update.Name, update.Description, update.Price, update.CategoryID, update.ImageURL, update.IsAvailable, itemID)
	if err != nil {
		return model.Item{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Item{}, pgx.ErrNoRows
	}
	return s.GetItem(ctx, itemID)
}

func (s *Store) SetItemAvailability(ctx context.Context, itemID string, available bool) (model.Item, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE items SET is_available = $1 WHERE id = $2`, available, itemID)
	if err != nil {
		return model.Item{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Item{}, pgx.ErrNoRows
	}
	return s.GetItem(ctx, itemID)
}

func (s *Store) DeleteItem(ctx context.Context, itemID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
