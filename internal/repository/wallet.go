package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mrpavithran/SmartCanteen/internal/model"
)

func (s *Store) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx, `SELECT wallet_balance FROM users WHERE id = $1`, userID).Scan(&balance)
	return balance, err
}

// Recharge atomically increments the balance and records the transaction.
// Amount validation (> 0) happens at the handler; the store only guarantees
// the increment and its journal row commit together.
func (s *Store) Recharge(ctx context.Context, userID string, amount int64) (int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	var balanceAfter int64
	err = tx.QueryRow(ctx, `
		UPDATE users
		SET wallet_balance = wallet_balance + $1, updated_at = $2
		WHERE id = $3
		RETURNING wallet_balance
	`, amount, now, userID).Scan(&balanceAfter)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO wallet_transactions (id, user_id, amount, kind, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), userID, amount, model.TransactionRecharge, balanceAfter, now)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balanceAfter, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]model.WalletTransaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, amount, kind, order_id, balance_after, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []model.WalletTransaction
	for rows.Next() {
		var transaction model.WalletTransaction
		err := rows.Scan(
			&transaction.ID,
			&transaction.UserID,
			&transaction.Amount,
			&transaction.Kind,
			&transaction.OrderID,
			&transaction.BalanceAfter,
			&transaction.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}
	return transactions, rows.Err()
}
