package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mrpavithran/SmartCanteen/internal/model"
)

// PlaceOrder debits the wallet and creates the order in one transaction.
// The debit is a conditional update: zero rows affected means the balance
// was too low, and nothing is written. Two concurrent placements against
// the same account can therefore never jointly overdraw it, and a failed
// insert can never leave an order without a matching debit.
func (s *Store) PlaceOrder(ctx context.Context, order model.Order) (model.Order, error) {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return model.Order{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.Order{}, err
	}
	defer tx.Rollback(ctx)

	var balanceAfter int64
	err = tx.QueryRow(ctx, `
		UPDATE users
		SET wallet_balance = wallet_balance - $1, updated_at = $2
		WHERE id = $3 AND wallet_balance >= $1
		RETURNING wallet_balance
	`, order.TotalAmount, time.Now().UTC(), order.UserID).Scan(&balanceAfter)
	if err == pgx.ErrNoRows {
		return model.Order{}, ErrInsufficientFunds
	}
	if err != nil {
		return model.Order{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, items, total_amount, token_number, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, order.ID, order.UserID, itemsJSON, order.TotalAmount, order.TokenNumber, order.Status, order.CreatedAt)
	if err != nil {
		return model.Order{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO wallet_transactions (id, user_id, amount, kind, order_id, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), order.UserID, -order.TotalAmount, model.TransactionOrder, order.ID, balanceAfter, order.CreatedAt)
	if err != nil {
		return model.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

const orderColumns = `o.id, o.user_id, o.items, o.total_amount, o.token_number, o.status, o.created_at`

func scanOrder(row pgx.Row, withUser bool) (model.Order, error) {
	var order model.Order
	var itemsJSON []byte
	dest := []any{
		&order.ID,
		&order.UserID,
		&itemsJSON,
		&order.TotalAmount,
		&order.TokenNumber,
		&order.Status,
		&order.CreatedAt,
	}
	if withUser {
		dest = append(dest, &order.UserName, &order.UserStudentID)
	}
	if err := row.Scan(dest...); err != nil {
		return model.Order{}, err
	}
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, orderID)
	return scanOrder(row, false)
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows, false)
}

func (s *Store) ListAllOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`, u.name, u.student_id
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows, true)
}

func (s *Store) ListOrdersSince(ctx context.Context, since time.Time) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.created_at >= $1
		ORDER BY o.created_at DESC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows, false)
}

func collectOrders(rows pgx.Rows, withUser bool) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows, withUser)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// AdvanceOrderStatus moves an order from one status to another with a
// compare-and-set, so two staff members racing on the same order cannot
// skip or rewind a step.
func (s *Store) AdvanceOrderStatus(ctx context.Context, orderID, from, to string) (model.Order, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = $1 WHERE id = $2 AND status = $3
	`, to, orderID, from)
	if err != nil {
		return model.Order{}, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetOrder(ctx, orderID); err != nil {
			return model.Order{}, err
		}
		return model.Order{}, ErrStatusConflict
	}
	return s.GetOrder(ctx, orderID)
}
