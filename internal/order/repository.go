package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"order-service/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ErrStatusChanged means the row no longer had the expected status when the
// update ran.
var ErrStatusChanged = errors.New("order status changed concurrently")

type Repository interface {
	// Create writes the order and its items in one transaction and fills in
	// ids and timestamps.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context) ([]*Order, error)
	ListByUser(ctx context.Context, userID int64, opts ListOptions) ([]*Order, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	ListByStatus(ctx context.Context, status OrderStatus) ([]*Order, error)
	// UpdateStatus moves the order from one status to another and returns the
	// new updated_at.
	UpdateStatus(ctx context.Context, id int64, from, to OrderStatus) (time.Time, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `id, user_id, total_amount, status, shipping_address, billing_address, created_at, updated_at`

// sortColumns maps API sort keys to columns; anything else sorts by created_at.
var sortColumns = map[string]string{
	"id":          "id",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"totalAmount": "total_amount",
	"status":      "status",
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.Int64("user_id", o.UserID),
		zap.Int("item_count", len(o.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	var (
		orderID   int64
		createdAt time.Time
		updatedAt time.Time
	)
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			user_id, total_amount, status,
			shipping_address, billing_address
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`,
		o.UserID,
		o.TotalAmount,
		o.Status,
		o.ShippingAddress,
		o.BillingAddress,
	).Scan(&orderID, &createdAt, &updatedAt)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return err
	}

	itemIDs := make([]int64, len(o.Items))
	for i, item := range o.Items {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, product_name,
				quantity, unit_price, total_price
			) VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`,
			orderID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPrice,
			item.TotalPrice,
		).Scan(&itemIDs[i])
		if err != nil {
			log.Error("failed to insert order item",
				zap.Int64("product_id", item.ProductID),
				zap.Error(err),
			)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order", zap.Error(err))
		return err
	}

	// Only touch the caller's aggregate once the write is durable.
	o.ID = orderID
	o.CreatedAt = createdAt
	o.UpdatedAt = updatedAt
	for i := range o.Items {
		o.Items[i].ID = itemIDs[i]
		o.Items[i].OrderID = orderID
	}

	log.Info("order inserted", zap.Int64("order_id", orderID))
	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) List(ctx context.Context) ([]*Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
}

func (r *repository) ListByUser(ctx context.Context, userID int64, opts ListOptions) ([]*Order, error) {
	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = "created_at"
	}
	dir := strings.ToUpper(opts.SortDir)
	if dir != "ASC" && dir != "DESC" {
		dir = "DESC"
	}

	query := fmt.Sprintf(
		`SELECT %s FROM orders WHERE user_id = $1 ORDER BY %s %s, id %s LIMIT $2 OFFSET $3`,
		orderColumns, column, dir, dir,
	)

	logger.FromCtx(ctx).Debug("executing list orders by user query",
		zap.String("layer", "repository"),
		zap.Int64("user_id", userID),
		zap.String("order_by", column+" "+dir),
		zap.Int("limit", opts.Size),
		zap.Int("offset", opts.Page*opts.Size),
	)

	return r.queryOrders(ctx, query, userID, opts.Size, opts.Page*opts.Size)
}

func (r *repository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *repository) ListByStatus(ctx context.Context, status OrderStatus) ([]*Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at DESC, id DESC`,
		status,
	)
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to OrderStatus) (time.Time, error) {
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING updated_at
	`, to, id, from).Scan(&updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a vanished row from a lost race.
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return time.Time{}, err
		}
		if !exists {
			return time.Time{}, ErrOrderNotFound
		}
		return time.Time{}, ErrStatusChanged
	}
	if err != nil {
		return time.Time{}, err
	}
	return updatedAt, nil
}

func (r *repository) queryOrders(ctx context.Context, query string, args ...any) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of all given orders in one query.
func (r *repository) attachItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(orders))
	byID := make(map[int64]*Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, total_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`, pq.Array(ids))
	if err != nil {
		logger.FromCtx(ctx).Error("failed to query order items", zap.Error(err))
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.TotalPrice,
		); err != nil {
			return err
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.TotalAmount,
		&o.Status,
		&o.ShippingAddress,
		&o.BillingAddress,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
