package order

import (
	"context"
	"errors"
	"strings"

	"order-service/internal/apperror"
	"order-service/internal/events"
	"order-service/internal/logger"
	"order-service/internal/metrics"
	"order-service/internal/product"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Rejection reasons recorded on the orders_rejected_total counter.
const (
	reasonInvalid     = "invalid_request"
	reasonUnavailable = "product_unavailable"
	reasonStock       = "insufficient_stock"
	reasonPersist     = "persistence_failure"
)

type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrders(ctx context.Context) ([]*Order, error)
	ListOrdersByUser(ctx context.Context, userID int64, opts ListOptions) (*Page, error)
	ListOrdersByStatus(ctx context.Context, status OrderStatus) ([]*Order, error)
	UpdateStatus(ctx context.Context, id int64, status OrderStatus) (*Order, error)
	CancelOrder(ctx context.Context, id int64) error
}

type service struct {
	repo      Repository
	products  product.Client
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// NewService builds the order service. A nil publisher drops events and a nil
// metrics value records nothing.
func NewService(repo Repository, products product.Client, publisher events.Publisher, m *metrics.Metrics) Service {
	if publisher == nil {
		publisher = events.NewNoop()
	}
	return &service{
		repo:      repo,
		products:  products,
		publisher: publisher,
		metrics:   m,
	}
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
		zap.Int64("user_id", input.UserID),
		zap.Int("item_count", len(input.Items)),
	)

	log.Info("create order started")

	// 1. Validate request shape before touching the catalog
	if err := validateCreateInput(input); err != nil {
		log.Warn("invalid create order request", zap.Error(err))
		s.metrics.OrderRejected(reasonInvalid)
		return nil, err
	}

	// 2. Resolve every line against the catalog, first failure wins
	items := make([]OrderItem, 0, len(input.Items))
	total := decimal.Zero

	for i, line := range input.Items {
		logItem := log.With(
			zap.Int("index", i),
			zap.Int64("product_id", line.ProductID),
			zap.Int("quantity", line.Quantity),
		)

		snapshot, found := s.products.FetchProduct(ctx, line.ProductID)
		if !found || !snapshot.Active || !snapshot.HasPrice() {
			logItem.Warn("product not available",
				zap.Bool("found", found),
			)
			s.metrics.OrderRejected(reasonUnavailable)
			return nil, apperror.BadRequest(ErrProductUnavailable,
				"Product with ID %d is not available", line.ProductID)
		}

		if !s.products.CheckAvailability(ctx, line.ProductID, line.Quantity) {
			logItem.Warn("insufficient stock", zap.String("product_name", snapshot.Name))
			s.metrics.OrderRejected(reasonStock)
			return nil, apperror.BadRequest(ErrInsufficientStock,
				"Insufficient stock for product: %s", snapshot.Name)
		}

		productID := snapshot.ID
		if productID == 0 {
			productID = line.ProductID
		}

		item := newOrderItem(productID, snapshot.Name, line.Quantity, snapshot.Price.Decimal)
		total = total.Add(item.TotalPrice)
		items = append(items, item)

		logItem.Debug("item resolved",
			zap.String("product_name", item.ProductName),
			zap.String("unit_price", item.UnitPrice.String()),
			zap.String("line_total", item.TotalPrice.String()),
		)
	}

	// 3. Build aggregate
	shipping := strings.TrimSpace(input.ShippingAddress)
	billing := shipping
	if input.BillingAddress != nil && strings.TrimSpace(*input.BillingAddress) != "" {
		billing = strings.TrimSpace(*input.BillingAddress)
	}

	order := &Order{
		UserID:          input.UserID,
		Items:           items,
		TotalAmount:     total,
		Status:          StatusPending,
		ShippingAddress: shipping,
		BillingAddress:  billing,
	}

	log.Info("order total calculated", zap.String("total_amount", total.String()))

	// 4. Persist once
	if err := s.repo.Create(ctx, order); err != nil {
		log.Error("failed to persist order", zap.Error(err))
		s.metrics.OrderRejected(reasonPersist)
		return nil, apperror.Internal(errors.Join(ErrFailedCreateOrder, err), "failed to create order")
	}

	s.metrics.OrderCreated()
	log.Info("order created", zap.Int64("order_id", order.ID))

	s.publish(ctx, events.NewEvent(events.TypeOrderCreated, order.ID, order.UserID, string(order.Status), order.TotalAmount))

	return order, nil
}

func validateCreateInput(input CreateOrderInput) error {
	if input.UserID <= 0 {
		return apperror.BadRequest(ErrInvalidOrder, "User ID is required")
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		return apperror.BadRequest(ErrInvalidOrder, "Shipping address is required")
	}
	if len(input.Items) == 0 {
		return apperror.BadRequest(ErrInvalidOrder, "Order must contain at least one item")
	}
	for _, line := range input.Items {
		if line.ProductID <= 0 {
			return apperror.BadRequest(ErrInvalidOrder, "Product ID is required")
		}
		if line.Quantity <= 0 {
			return apperror.BadRequest(ErrInvalidOrder, "Quantity must be at least 1")
		}
	}
	return nil
}

func (s *service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	if id <= 0 {
		return nil, apperror.BadRequest(ErrInvalidOrderID, "invalid order id: %d", id)
	}

	order, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, apperror.NotFound(ErrOrderNotFound, "Order not found with id : '%d'", id)
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get order",
			zap.String("layer", "service"),
			zap.Int64("order_id", id),
			zap.Error(err),
		)
		return nil, apperror.Internal(errors.Join(ErrFailedGetOrder, err), "failed to get order")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context) ([]*Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list orders", zap.Error(err))
		return nil, apperror.Internal(errors.Join(ErrFailedGetOrder, err), "failed to get orders")
	}
	return orders, nil
}

func (s *service) ListOrdersByUser(ctx context.Context, userID int64, opts ListOptions) (*Page, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListOrdersByUser"),
		zap.Int64("user_id", userID),
	)

	if userID <= 0 {
		return nil, apperror.BadRequest(ErrInvalidOrder, "invalid user id: %d", userID)
	}

	opts = normalizeListOptions(opts)

	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		log.Error("failed to count orders", zap.Error(err))
		return nil, apperror.Internal(errors.Join(ErrFailedGetOrder, err), "failed to get orders")
	}

	orders := []*Order{}
	if pageInRange(opts, total) {
		orders, err = s.repo.ListByUser(ctx, userID, opts)
		if err != nil {
			log.Error("failed to list orders", zap.Error(err))
			return nil, apperror.Internal(errors.Join(ErrFailedGetOrder, err), "failed to get orders")
		}
	}

	return &Page{
		Orders:        orders,
		Page:          opts.Page,
		Size:          opts.Size,
		TotalElements: total,
	}, nil
}

// pageInRange reports whether the requested page starts before total
// without multiplying page by size.
func pageInRange(opts ListOptions, total int64) bool {
	if total <= 0 {
		return false
	}
	return int64(opts.Page) <= (total-1)/int64(opts.Size)
}

func normalizeListOptions(opts ListOptions) ListOptions {
	if opts.Page < 0 {
		opts.Page = 0
	}
	if opts.Size <= 0 {
		opts.Size = defaultPageSize
	}
	if opts.Size > maxPageSize {
		opts.Size = maxPageSize
	}
	if opts.SortBy == "" {
		opts.SortBy = "createdAt"
	}
	if !strings.EqualFold(opts.SortDir, "asc") {
		opts.SortDir = "desc"
	} else {
		opts.SortDir = "asc"
	}
	return opts
}

func (s *service) ListOrdersByStatus(ctx context.Context, status OrderStatus) ([]*Order, error) {
	if !status.Valid() {
		return nil, apperror.BadRequest(ErrInvalidStatus, "invalid order status: %s", status)
	}

	orders, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list orders by status",
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return nil, apperror.Internal(errors.Join(ErrFailedGetOrder, err), "failed to get orders")
	}
	return orders, nil
}

func (s *service) UpdateStatus(ctx context.Context, id int64, status OrderStatus) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateStatus"),
		zap.Int64("order_id", id),
		zap.String("next_status", string(status)),
	)

	if !status.Valid() {
		return nil, apperror.BadRequest(ErrInvalidStatus, "invalid order status: %s", status)
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(status) {
		log.Warn("illegal status transition", zap.String("current_status", string(order.Status)))
		return nil, apperror.BadRequest(ErrInvalidStatusTransition,
			"Cannot change order status from %s to %s", order.Status, status)
	}

	if err := s.transition(ctx, order, status); err != nil {
		return nil, err
	}

	log.Info("order status updated")
	return order, nil
}

func (s *service) CancelOrder(ctx context.Context, id int64) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CancelOrder"),
		zap.Int64("order_id", id),
	)

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	if !order.Status.CanCancel() {
		log.Warn("cancel rejected", zap.String("current_status", string(order.Status)))
		return apperror.BadRequest(ErrInvalidStatusTransition,
			"Cannot cancel order with status: %s", order.Status)
	}

	if err := s.transition(ctx, order, StatusCancelled); err != nil {
		return err
	}

	log.Info("order cancelled")
	return nil
}

// transition persists the status change on order and announces it.
func (s *service) transition(ctx context.Context, order *Order, next OrderStatus) error {
	previous := order.Status

	updatedAt, err := s.repo.UpdateStatus(ctx, order.ID, previous, next)
	switch {
	case errors.Is(err, ErrOrderNotFound):
		return apperror.NotFound(ErrOrderNotFound, "Order not found with id : '%d'", order.ID)
	case errors.Is(err, ErrStatusChanged):
		return apperror.BadRequest(ErrInvalidStatusTransition,
			"Order %d was modified concurrently, please retry", order.ID)
	case err != nil:
		logger.FromCtx(ctx).Error("failed to update order status",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
		return apperror.Internal(errors.Join(ErrFailedUpdateOrder, err), "failed to update order")
	}

	order.Status = next
	order.UpdatedAt = updatedAt

	evt := events.NewEvent(events.TypeOrderStatusChanged, order.ID, order.UserID, string(next), order.TotalAmount)
	evt.PreviousStatus = string(previous)
	s.publish(ctx, evt)
	return nil
}

func (s *service) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		logger.FromCtx(ctx).Warn("failed to publish order event",
			zap.String("event_type", string(evt.Type)),
			zap.Int64("order_id", evt.OrderID),
			zap.Error(err),
		)
	}
}
