// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/syriamall-payments/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrOrderNotFound возвращается, если заказ не найден.
var ErrOrderNotFound = errors.New("order not found")

var retryDelays = []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 500 * time.Millisecond}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет идемпотентную операцию при конфликте сериализации,
// дедлоке или обрыве соединения.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(retryDelays) {
			break
		}

		timer := time.NewTimer(retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// GetOrder возвращает заказ вместе с позициями.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var (
		o             model.Order
		paymentStatus string
		status        string
	)

	err := r.pool.QueryRow(ctx,
		`SELECT id, customer_id, payment_status, status, total::float8, created_at, updated_at
		 FROM orders
		 WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.CustomerID, &paymentStatus, &status, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	o.PaymentStatus = model.PaymentStatus(paymentStatus)
	o.Status = model.OrderStatus(status)

	rows, err := r.pool.Query(ctx,
		`SELECT product_name, quantity, unit_price::float8
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &o, nil
}

// transitionGuards содержит условие WHERE, при котором переход меняет строку.
// Проверка и запись выполняются одним UPDATE, поэтому параллельные
// обработчики не могут смешать статусы двух переходов.
var transitionGuards = map[model.Transition]string{
	model.TransitionPaymentConfirmed: `payment_status <> 'paid'`,
	model.TransitionPaymentFailed:    `payment_status = 'pending'`,
}

// ApplyTransition атомарно применяет переход к заказу.
// Возвращает признак записи и идентификатор покупателя заказа.
// Если условие перехода не выполнено, строка не меняется и applied = false,
// идентификатор покупателя при этом всё равно возвращается.
func (r *PostgresRepository) ApplyTransition(ctx context.Context, id string, t model.Transition) (bool, *string, error) {
	paymentStatus, status, ok := t.Target()
	guard, hasGuard := transitionGuards[t]
	if !ok || !hasGuard {
		return false, nil, fmt.Errorf("unsupported transition %s", t)
	}

	query := `UPDATE orders
		 SET payment_status = $2, status = $3, updated_at = now()
		 WHERE id = $1 AND ` + guard + `
		 RETURNING customer_id`

	var (
		applied    bool
		customerID *string
	)

	err := r.withRetry(ctx, func() error {
		err := r.pool.QueryRow(ctx, query, id, string(paymentStatus), string(status)).Scan(&customerID)
		if errors.Is(err, pgx.ErrNoRows) {
			applied = false
			return nil
		}
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, nil, fmt.Errorf("apply %s: %w", t, err)
	}

	if applied {
		return true, customerID, nil
	}

	err = r.pool.QueryRow(ctx, `SELECT customer_id FROM orders WHERE id = $1`, id).Scan(&customerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil, ErrOrderNotFound
	}
	if err != nil {
		return false, nil, fmt.Errorf("check order: %w", err)
	}

	return false, customerID, nil
}

// ClearCart удаляет позиции корзины покупателя и возвращает число удалённых строк.
func (r *PostgresRepository) ClearCart(ctx context.Context, customerID string) (int64, error) {
	var deleted int64

	err := r.withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, customerID)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}

	return deleted, nil
}
