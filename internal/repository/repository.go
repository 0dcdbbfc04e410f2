package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrpavithran/SmartCanteen/internal/model"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicate         = errors.New("already exists")
	ErrActiveOrders      = errors.New("user has active orders")
	ErrCategoryNotEmpty  = errors.New("category has items")
	ErrStatusConflict    = errors.New("order status changed concurrently")
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const userColumns = `id, name, student_id, role, pin_hash, qr_code, wallet_balance, created_at, updated_at, last_login`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.StudentID,
		&user.Role,
		&user.PINHash,
		&user.QRCode,
		&user.WalletBalance,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLogin,
	)
	return user, err
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, student_id, role, pin_hash, qr_code, wallet_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Name, user.StudentID, user.Role, user.PINHash, user.QRCode, user.WalletBalance, user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (s *Store) GetUserByStudentID(ctx context.Context, studentID string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE student_id = $1`, studentID)
	return scanUser(row)
}

func (s *Store) GetUserByQRCode(ctx context.Context, qrCode string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE qr_code = $1`, qrCode)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type UserUpdate struct {
	Name    *string
	Role    *string
	PINHash *string
}

func (s *Store) UpdateUser(ctx context.Context, userID string, update UserUpdate) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET name = COALESCE($1, name),
		    role = COALESCE($2, role),
		    pin_hash = COALESCE($3, pin_hash),
		    updated_at = $4
		WHERE id = $5
		RETURNING `+userColumns+`
	`, update.Name, update.Role, update.PINHash, time.Now().UTC(), userID)
	return scanUser(row)
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, userID)
	return err
}

func (s *Store) SetPINHash(ctx context.Context, userID, pinHash string) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET pin_hash = $1, updated_at = $2 WHERE id = $3`, pinHash, time.Now().UTC(), userID)
	return err
}

// DeleteUser removes an account with all its dependent rows. It refuses
// while any order is still in a non-terminal status.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var active bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE user_id = $1 AND status NOT IN ('completed', 'cancelled')
		)
	`, userID).Scan(&active)
	if err != nil {
		return err
	}
	if active {
		return ErrActiveOrders
	}

	for _, stmt := range []string{
		`DELETE FROM password_reset_tokens WHERE user_id = $1`,
		`DELETE FROM notification_settings WHERE user_id = $1`,
		`DELETE FROM notifications WHERE user_id = $1`,
		`DELETE FROM wallet_transactions WHERE user_id = $1`,
		`DELETE FROM orders WHERE user_id = $1`,
	} {
		if _, err := tx.Exec(ctx, stmt, userID); err != nil {
			return err
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}
