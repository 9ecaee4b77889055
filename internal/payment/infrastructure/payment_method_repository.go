package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sebuszqo/CardVault/internal/payment/domain"
	paymentErrors "github.com/sebuszqo/CardVault/internal/payment/errors"
)

const uniqueViolationCode = "23505"

const paymentMethodColumns = "id, user_id, stripe_customer_id, stripe_payment_method_id, is_default, created_at"

type PaymentMethodRepository struct {
	db *sql.DB
}

func NewPaymentMethodRepository(db *sql.DB) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

func (r *PaymentMethodRepository) FindByUser(ctx context.Context, userID string) ([]domain.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + `
              FROM payment_methods
              WHERE user_id = $1
              ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []domain.PaymentMethod
	for rows.Next() {
		var method domain.PaymentMethod
		if err := rows.Scan(&method.ID, &method.UserID, &method.StripeCustomerID, &method.StripePaymentMethodID, &method.IsDefault, &method.CreatedAt); err != nil {
			return nil, err
		}
		methods = append(methods, method)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return methods, nil
}

// FindByInstrument looks a record up across all users. It backs the
// global-uniqueness check only and must not be used for ownership decisions.
func (r *PaymentMethodRepository) FindByInstrument(ctx context.Context, instrumentID string) (*domain.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + `
              FROM payment_methods
              WHERE stripe_payment_method_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, instrumentID))
}

func (r *PaymentMethodRepository) FindByUserAndInstrument(ctx context.Context, userID, instrumentID string) (*domain.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + `
              FROM payment_methods
              WHERE user_id = $1 AND stripe_payment_method_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID, instrumentID))
}

func (r *PaymentMethodRepository) scanOne(row *sql.Row) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	err := row.Scan(&method.ID, &method.UserID, &method.StripeCustomerID, &method.StripePaymentMethodID, &method.IsDefault, &method.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &method, nil
}

func (r *PaymentMethodRepository) Insert(ctx context.Context, method *domain.PaymentMethod) error {
	query := `INSERT INTO payment_methods (` + paymentMethodColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, method.ID, method.UserID, method.StripeCustomerID, method.StripePaymentMethodID, method.IsDefault, method.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return paymentErrors.ErrAlreadyExists
		}
		return fmt.Errorf("could not insert payment method: %w", err)
	}
	return nil
}

func (r *PaymentMethodRepository) Delete(ctx context.Context, method *domain.PaymentMethod) error {
	query := `DELETE FROM payment_methods
              WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, method.ID, method.UserID)
	if err != nil {
		return fmt.Errorf("could not delete payment method: %w", err)
	}
	return nil
}
