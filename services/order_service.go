package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wemarket/qr-order/models"
	"github.com/wemarket/qr-order/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DispatchNotifier is told that a committed mutation left new outbox events.
// Notify must not block.
type DispatchNotifier interface {
	Notify()
}

type CreateOrderItemInput struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       int64   `json:"price"`
	Quantity    int     `json:"quantity"`
	Notes       *string `json:"notes"`
}

type CreateOrderInput struct {
	StoreID       uint                   `json:"store_id"`
	TableID       *uint                  `json:"table_id"`
	CustomerName  *string                `json:"customer_name"`
	CustomerPhone *string                `json:"customer_phone"`
	Notes         *string                `json:"notes"`
	Items         []CreateOrderItemInput `json:"items"`
}

type UpdateStatusInput struct {
	Status          string `json:"status"`
	ActorID         *uint  `json:"-"`
	ExpectedVersion *int   `json:"version"`
}

type UpdatePaymentInput struct {
	PaymentMethod   *string `json:"payment_method"`
	PaymentStatus   string  `json:"payment_status"`
	ExpectedVersion *int    `json:"version"`
}

type UpdateQueueInput struct {
	QueueNumber      *int `json:"queue_number"`
	EstimatedMinutes *int `json:"estimated_minutes"`
	ExpectedVersion  *int `json:"version"`
}

type OrderStats struct {
	TotalOrders int64            `json:"total_orders"`
	TotalSales  int64            `json:"total_sales"`
	ByStatus    map[string]int64 `json:"by_status"`
}

type StatsSummary struct {
	TotalOrders     int64 `json:"total_orders"`
	TotalSales      int64 `json:"total_sales"`
	AvgOrderAmount  int64 `json:"avg_order_amount"`
	CompletedOrders int64 `json:"completed_orders"`
	CancelledOrders int64 `json:"cancelled_orders"`
}

type DailySales struct {
	Date       string `json:"date"`
	OrderCount int64  `json:"order_count"`
	Sales      int64  `json:"sales"`
}

type HourlySales struct {
	Hour       string `json:"hour"`
	OrderCount int64  `json:"order_count"`
	Sales      int64  `json:"sales"`
}

type ProductSales struct {
	ProductID     uint   `json:"product_id"`
	ProductName   string `json:"product_name"`
	TotalQuantity int64  `json:"total_quantity"`
	TotalSales    int64  `json:"total_sales"`
}

type PaymentStat struct {
	Method string `json:"method"`
	Count  int64  `json:"count"`
	Total  int64  `json:"total"`
}

type DetailedStats struct {
	Summary      StatsSummary   `json:"summary"`
	DailySales   []DailySales   `json:"daily_sales"`
	HourlySales  []HourlySales  `json:"hourly_sales"`
	TopProducts  []ProductSales `json:"top_products"`
	PaymentStats []PaymentStat  `json:"payment_stats"`
}

var statusLabels = map[string]string{
	models.OrderPending:   "Pending",
	models.OrderConfirmed: "Confirmed",
	models.OrderPreparing: "Preparing",
	models.OrderReady:     "Ready",
	models.OrderCompleted: "Completed",
	models.OrderCancelled: "Cancelled",
}

// OrderService owns the order lifecycle. Every mutation runs in one
// transaction together with its status log row and outbox events.
type OrderService struct {
	db       *gorm.DB
	notifier DispatchNotifier
	now      func() time.Time
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db, now: time.Now}
}

// SetNotifier makes committed mutations wake the dispatcher instead of
// waiting for its next tick.
func (s *OrderService) SetNotifier(n DispatchNotifier) {
	s.notifier = n
}

func (s *OrderService) today() string {
	return s.now().Format(models.BusinessDateLayout)
}

// Create validates the request, derives order number, queue number, total and
// estimated minutes, and stores the order, its items and a NEW_ORDER event.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if in.StoreID == 0 {
		return nil, validationf("store_id is required")
	}
	if len(in.Items) == 0 {
		return nil, validationf("order must contain at least one item")
	}

	var orderID uint
	var orderTotal int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var store models.Store
		if err := tx.Select("id", "is_active").First(&store, in.StoreID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validationf("store is not accepting orders")
			}
			return err
		}
		if !store.IsActive {
			return validationf("store is not accepting orders")
		}

		var tableName *string
		if in.TableID != nil {
			var table models.Table
			err := tx.Select("id", "store_id", "name").First(&table, *in.TableID).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err != nil || table.StoreID != store.ID {
				return validationf("invalid table for this store")
			}
			tableName = &table.Name
		}

		items, total, estimated, err := s.buildItems(tx, store.ID, in.Items)
		if err != nil {
			return err
		}

		now := s.now()
		date := now.Format(models.BusinessDateLayout)

		var todays int64
		if err := tx.Model(&models.Order{}).
			Where("store_id = ? AND business_date = ?", store.ID, date).
			Count(&todays).Error; err != nil {
			return err
		}

		queue, err := nextQueueNumber(tx, store.ID, date)
		if err != nil {
			return err
		}

		order := models.Order{
			StoreID:          store.ID,
			TableID:          in.TableID,
			OrderNumber:      fmt.Sprintf("%s-%04d", now.Format("20060102"), todays+1),
			CustomerName:     trimmedOrNil(in.CustomerName),
			CustomerPhone:    trimmedOrNil(in.CustomerPhone),
			Status:           models.OrderPending,
			TotalAmount:      total,
			PaymentStatus:    models.PaymentUnpaid,
			Notes:            trimmedOrNil(in.Notes),
			QueueNumber:      &queue,
			EstimatedMinutes: estimated,
			BusinessDate:     date,
			Version:          1,
			CreatedAt:        now,
			UpdatedAt:        now,
			Items:            items,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		order.TableName = tableName
		orderID = order.ID
		orderTotal = order.TotalAmount

		return s.appendEvent(tx, &order, models.EventNewOrder, "", "")
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": orderID,
		"store_id": in.StoreID,
		"total":    utils.FormatKRW(orderTotal),
	}).Info("order created")

	s.notifyDispatcher()
	return s.Get(ctx, orderID)
}

func (s *OrderService) buildItems(tx *gorm.DB, storeID uint, in []CreateOrderItemInput) ([]models.OrderItem, int64, *int, error) {
	ids := make([]uint, 0, len(in))
	for _, it := range in {
		ids = append(ids, it.ProductID)
	}
	var products []models.Product
	if err := tx.Where("store_id = ? AND id IN ?", storeID, ids).Find(&products).Error; err != nil {
		return nil, 0, nil, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var (
		items     = make([]models.OrderItem, 0, len(in))
		total     int64
		estimated *int
	)
	for i, it := range in {
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return nil, 0, nil, validationf("item %d: quantity must be at least 1", i+1)
		}
		if it.Price < 0 {
			return nil, 0, nil, validationf("item %d: price must not be negative", i+1)
		}

		name := strings.TrimSpace(it.ProductName)
		product, known := byID[it.ProductID]
		if name == "" && known {
			name = product.Name
		}
		if name == "" {
			return nil, 0, nil, validationf("item %d: product_name is required", i+1)
		}
		if known {
			minutes := product.CookingMinutes()
			if estimated == nil || minutes > *estimated {
				estimated = &minutes
			}
		}

		subtotal := it.Price * int64(qty)
		total += subtotal
		items = append(items, models.OrderItem{
			ProductID:   it.ProductID,
			ProductName: name,
			Price:       it.Price,
			Quantity:    qty,
			Subtotal:    subtotal,
			Notes:       trimmedOrNil(it.Notes),
		})
	}
	return items, total, estimated, nil
}

func nextQueueNumber(db *gorm.DB, storeID uint, date string) (int, error) {
	var max sql.NullInt64
	err := db.Model(&models.Order{}).
		Select("MAX(queue_number)").
		Where("store_id = ? AND business_date = ? AND status NOT IN ?", storeID, date, models.TerminalStatuses).
		Row().Scan(&max)
	if err != nil {
		return 0, err
	}
	return int(max.Int64) + 1, nil
}

func orderQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Order{}).
		Select("orders.*, tables.name AS table_name, stores.name AS store_name").
		Joins("LEFT JOIN tables ON tables.id = orders.table_id").
		Joins("LEFT JOIN stores ON stores.id = orders.store_id")
}

func loadOrder(db *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	if err := orderQuery(db).Where("orders.id = ?", id).Take(&order).Error; err != nil {
		return nil, notFoundOr(err, "order")
	}
	return &order, nil
}

// Get returns the order with its items, table name and store name.
func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	db := s.db.WithContext(ctx)
	order, err := loadOrder(db, id)
	if err != nil {
		return nil, err
	}
	if err := db.Where("order_id = ?", id).Order("id ASC").Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// StoreIDOf returns the store an order belongs to.
func (s *OrderService) StoreIDOf(ctx context.Context, id uint) (uint, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Select("id", "store_id").First(&order, id).Error; err != nil {
		return 0, notFoundOr(err, "order")
	}
	return order.StoreID, nil
}

// ListByStore returns the store's orders newest first, optionally filtered by
// status and business date.
func (s *OrderService) ListByStore(ctx context.Context, storeID uint, status, date string) ([]models.Order, error) {
	q := orderQuery(s.db.WithContext(ctx)).Where("orders.store_id = ?", storeID)
	if status != "" {
		if !models.IsOrderStatus(status) {
			return nil, validationf("invalid status %q", status)
		}
		q = q.Where("orders.status = ?", status)
	}
	if date != "" {
		if _, err := time.Parse(models.BusinessDateLayout, date); err != nil {
			return nil, validationf("date must be YYYY-MM-DD")
		}
		q = q.Where("orders.business_date = ?", date)
	}

	orders := []models.Order{}
	if err := q.Preload("Items").Order("orders.created_at DESC, orders.id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus sets any of the six statuses, appends a status log row and
// queues the notifications for the change.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, in UpdateStatusInput) (*models.Order, error) {
	if !models.IsOrderStatus(in.Status) {
		return nil, validationf("invalid status %q", in.Status)
	}

	var oldStatus string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, id)
		if err != nil {
			return err
		}
		oldStatus = order.Status
		now := s.now()

		updates := map[string]interface{}{"status": in.Status}
		if in.ActorID != nil {
			updates["updated_by"] = *in.ActorID
		}
		if err := s.compareAndSwap(tx, order, in.ExpectedVersion, updates, now); err != nil {
			return err
		}
		order.Status = in.Status
		if in.ActorID != nil {
			order.UpdatedBy = in.ActorID
		}

		entry := models.OrderStatusLog{
			OrderID:   order.ID,
			UserID:    in.ActorID,
			OldStatus: oldStatus,
			NewStatus: in.Status,
			ChangedAt: now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		if err := s.appendEvent(tx, order, models.EventOrderStatusChanged, oldStatus, in.Status); err != nil {
			return err
		}
		switch in.Status {
		case models.OrderReady:
			return s.appendEvent(tx, order, models.EventOrderReady, oldStatus, in.Status)
		case models.OrderConfirmed:
			return s.appendEvent(tx, order, models.EventOrderConfirmed, oldStatus, in.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": id,
		"from":     oldStatus,
		"to":       in.Status,
	}).Info("order status changed")

	s.notifyDispatcher()
	return s.Get(ctx, id)
}

// UpdatePayment records the payment method and status.
func (s *OrderService) UpdatePayment(ctx context.Context, id uint, in UpdatePaymentInput) (*models.Order, error) {
	if in.PaymentStatus != models.PaymentPaid && in.PaymentStatus != models.PaymentUnpaid {
		return nil, validationf("payment_status must be %q or %q", models.PaymentPaid, models.PaymentUnpaid)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, id)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{
			"payment_method": trimmedOrNil(in.PaymentMethod),
			"payment_status": in.PaymentStatus,
		}
		return s.compareAndSwap(tx, order, in.ExpectedVersion, updates, s.now())
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// UpdateQueue overrides the queue number and/or the estimated minutes.
func (s *OrderService) UpdateQueue(ctx context.Context, id uint, in UpdateQueueInput) (*models.Order, error) {
	if in.QueueNumber == nil && in.EstimatedMinutes == nil {
		return nil, validationf("queue_number or estimated_minutes is required")
	}
	if in.QueueNumber != nil && *in.QueueNumber < 1 {
		return nil, validationf("queue_number must be at least 1")
	}
	if in.EstimatedMinutes != nil && *in.EstimatedMinutes < 0 {
		return nil, validationf("estimated_minutes must not be negative")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, id)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if in.QueueNumber != nil {
			updates["queue_number"] = *in.QueueNumber
		}
		if in.EstimatedMinutes != nil {
			updates["estimated_minutes"] = *in.EstimatedMinutes
		}
		return s.compareAndSwap(tx, order, in.ExpectedVersion, updates, s.now())
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// compareAndSwap applies updates only if the row still carries the version
// that was read, and bumps the version.
func (s *OrderService) compareAndSwap(tx *gorm.DB, order *models.Order, expected *int, updates map[string]interface{}, now time.Time) error {
	if expected != nil && *expected != order.Version {
		return conflictf("order %d was modified concurrently (version %d, expected %d)", order.ID, order.Version, *expected)
	}
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = now

	res := tx.Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return conflictf("order %d was modified concurrently", order.ID)
	}
	order.Version++
	order.UpdatedAt = now
	return nil
}

// NextQueueNumber previews the queue number the next order would get today.
func (s *OrderService) NextQueueNumber(ctx context.Context, storeID uint) (int, error) {
	return nextQueueNumber(s.db.WithContext(ctx), storeID, s.today())
}

// dateRange resolves an inclusive business date range; both bounds are
// required together and the default is today.
func (s *OrderService) dateRange(start, end string) (string, string, error) {
	if start == "" || end == "" {
		today := s.today()
		return today, today, nil
	}
	for _, d := range []string{start, end} {
		if _, err := time.Parse(models.BusinessDateLayout, d); err != nil {
			return "", "", validationf("dates must be YYYY-MM-DD")
		}
	}
	if start > end {
		return "", "", validationf("start_date must not be after end_date")
	}
	return start, end, nil
}

func (s *OrderService) rangeQuery(ctx context.Context, storeID uint, start, end string) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Order{}).
		Where("store_id = ? AND business_date BETWEEN ? AND ?", storeID, start, end)
}

// Stats counts orders, sums paid revenue and counts orders per status.
func (s *OrderService) Stats(ctx context.Context, storeID uint, startDate, endDate string) (*OrderStats, error) {
	start, end, err := s.dateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	stats := &OrderStats{ByStatus: map[string]int64{}}
	if err := s.rangeQuery(ctx, storeID, start, end).Count(&stats.TotalOrders).Error; err != nil {
		return nil, err
	}
	if err := s.rangeQuery(ctx, storeID, start, end).
		Where("payment_status = ?", models.PaymentPaid).
		Select("COALESCE(SUM(total_amount), 0)").
		Row().Scan(&stats.TotalSales); err != nil {
		return nil, err
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := s.rangeQuery(ctx, storeID, start, end).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
	}
	return stats, nil
}

// DetailedStats adds daily, hourly, product and payment breakdowns.
func (s *OrderService) DetailedStats(ctx context.Context, storeID uint, startDate, endDate string) (*DetailedStats, error) {
	start, end, err := s.dateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	out := &DetailedStats{
		DailySales:   []DailySales{},
		HourlySales:  []HourlySales{},
		TopProducts:  []ProductSales{},
		PaymentStats: []PaymentStat{},
	}

	var summary struct {
		TotalOrders     int64
		TotalSales      int64
		AvgOrderAmount  float64
		CompletedOrders int64
		CancelledOrders int64
	}
	if err := s.rangeQuery(ctx, storeID, start, end).Select(
		"COUNT(*) AS total_orders, "+
			"COALESCE(SUM(CASE WHEN payment_status = ? THEN total_amount ELSE 0 END), 0) AS total_sales, "+
			"COALESCE(AVG(CASE WHEN payment_status = ? THEN total_amount ELSE NULL END), 0) AS avg_order_amount, "+
			"COUNT(CASE WHEN status = ? THEN 1 END) AS completed_orders, "+
			"COUNT(CASE WHEN status = ? THEN 1 END) AS cancelled_orders",
		models.PaymentPaid, models.PaymentPaid, models.OrderCompleted, models.OrderCancelled,
	).Scan(&summary).Error; err != nil {
		return nil, err
	}
	out.Summary = StatsSummary{
		TotalOrders:     summary.TotalOrders,
		TotalSales:      summary.TotalSales,
		AvgOrderAmount:  int64(math.Round(summary.AvgOrderAmount)),
		CompletedOrders: summary.CompletedOrders,
		CancelledOrders: summary.CancelledOrders,
	}

	if err := s.rangeQuery(ctx, storeID, start, end).Select(
		"business_date AS date, COUNT(*) AS order_count, "+
			"COALESCE(SUM(CASE WHEN payment_status = ? THEN total_amount ELSE 0 END), 0) AS sales",
		models.PaymentPaid,
	).Group("business_date").Order("business_date").Scan(&out.DailySales).Error; err != nil {
		return nil, err
	}

	hourly, err := s.hourlyBuckets(ctx, storeID, start, end)
	if err != nil {
		return nil, err
	}
	for h, b := range hourly {
		if b.orders == 0 {
			continue
		}
		out.HourlySales = append(out.HourlySales, HourlySales{
			Hour:       fmt.Sprintf("%02d", h),
			OrderCount: b.orders,
			Sales:      b.sales,
		})
	}

	if err := s.db.WithContext(ctx).Table("order_items").
		Select("order_items.product_id, order_items.product_name, "+
			"SUM(order_items.quantity) AS total_quantity, SUM(order_items.subtotal) AS total_sales").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.store_id = ? AND orders.business_date BETWEEN ? AND ?", storeID, start, end).
		Group("order_items.product_id, order_items.product_name").
		Order("total_quantity DESC").
		Limit(10).
		Scan(&out.TopProducts).Error; err != nil {
		return nil, err
	}

	if err := s.rangeQuery(ctx, storeID, start, end).
		Where("payment_status = ?", models.PaymentPaid).
		Select("COALESCE(payment_method, 'unknown') AS method, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total").
		Group("payment_method").
		Scan(&out.PaymentStats).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type hourBucket struct {
	orders int64
	sales  int64
}

// hourlyBuckets groups orders by local hour of creation. Grouping happens in
// Go because hour extraction differs between sqlite and mysql.
func (s *OrderService) hourlyBuckets(ctx context.Context, storeID uint, start, end string) ([24]hourBucket, error) {
	var buckets [24]hourBucket
	var rows []models.Order
	if err := s.rangeQuery(ctx, storeID, start, end).
		Select("created_at", "total_amount", "payment_status").
		Find(&rows).Error; err != nil {
		return buckets, err
	}
	for _, o := range rows {
		h := o.CreatedAt.Local().Hour()
		buckets[h].orders++
		if o.PaymentStatus == models.PaymentPaid {
			buckets[h].sales += o.TotalAmount
		}
	}
	return buckets, nil
}

// History returns the status log of an order, newest first.
func (s *OrderService) History(ctx context.Context, id uint) ([]models.OrderStatusLog, error) {
	if _, err := s.StoreIDOf(ctx, id); err != nil {
		return nil, err
	}
	logs := []models.OrderStatusLog{}
	err := s.db.WithContext(ctx).Model(&models.OrderStatusLog{}).
		Select("order_status_logs.*, users.name AS user_name").
		Joins("LEFT JOIN users ON users.id = order_status_logs.user_id").
		Where("order_status_logs.order_id = ?", id).
		Order("order_status_logs.changed_at DESC, order_status_logs.id DESC").
		Find(&logs).Error
	return logs, err
}

// Events returns the notifications recorded for an order, oldest first. When
// after names a known event id only later events are returned.
func (s *OrderService) Events(ctx context.Context, id uint, after string) ([]models.OrderEventPayload, error) {
	if _, err := s.StoreIDOf(ctx, id); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("order_id = ?", id)
	if after != "" {
		var marker models.OrderEvent
		if err := s.db.WithContext(ctx).Select("id").
			Where("event_id = ? AND order_id = ?", after, id).
			First(&marker).Error; err != nil {
			return nil, notFoundOr(err, "event")
		}
		q = q.Where("id > ?", marker.ID)
	}

	var events []models.OrderEvent
	if err := q.Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	out := make([]models.OrderEventPayload, 0, len(events))
	for _, e := range events {
		var p models.OrderEventPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode event %s: %w", e.EventID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Delete removes an order with its items, status log and events.
func (s *OrderService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Order{}, id).Error; err != nil {
			return notFoundOr(err, "order")
		}
		for _, m := range []interface{}{&models.OrderEvent{}, &models.OrderStatusLog{}, &models.OrderItem{}} {
			if err := tx.Where("order_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Order{}, id).Error
	})
}

// appendEvent writes one outbox row for the order. Staff assigned to the
// order's table are resolved now so dispatch needs no further lookups.
func (s *OrderService) appendEvent(tx *gorm.DB, order *models.Order, eventType, oldStatus, newStatus string) error {
	payload := models.OrderEventPayload{
		EventID:     uuid.NewString(),
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		StoreID:     order.StoreID,
		TableID:     order.TableID,
		TableName:   order.TableName,
		Timestamp:   s.now().UTC(),
	}

	switch eventType {
	case models.EventNewOrder:
		payload.TotalAmount = order.TotalAmount
		payload.EstimatedMinutes = order.EstimatedMinutes
		place := "Takeout"
		if order.TableName != nil && *order.TableName != "" {
			place = *order.TableName
		}
		payload.Message = fmt.Sprintf("New order received! (%s)", place)
	case models.EventOrderStatusChanged:
		payload.OldStatus = oldStatus
		payload.NewStatus = newStatus
		label, ok := statusLabels[newStatus]
		if !ok {
			label = newStatus
		}
		payload.Message = fmt.Sprintf("Order status changed to %q.", label)
	case models.EventOrderReady:
		payload.Message = fmt.Sprintf("Order #%s is ready!", order.DisplayNumber())
	case models.EventOrderConfirmed:
		payload.EstimatedMinutes = order.EstimatedMinutes
		payload.QueueNumber = order.QueueNumber
		payload.Message = "Order confirmed!"
		if order.EstimatedMinutes != nil && *order.EstimatedMinutes > 0 {
			payload.Message = fmt.Sprintf("Order confirmed! Estimated cooking time: about %d minutes", *order.EstimatedMinutes)
		}
	}

	if order.TableID != nil && (eventType == models.EventNewOrder || eventType == models.EventOrderReady) {
		var assignment models.TableAssignment
		err := tx.Model(&models.TableAssignment{}).
			Select("table_assignments.*, users.name AS staff_name").
			Joins("LEFT JOIN users ON users.id = table_assignments.staff_user_id").
			Where("table_assignments.store_id = ? AND table_assignments.table_id = ?", order.StoreID, *order.TableID).
			Take(&assignment).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			staffID := assignment.StaffUserID
			payload.StaffUserID = &staffID
			payload.StaffName = assignment.StaffName
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.Create(&models.OrderEvent{
		EventID:   payload.EventID,
		OrderID:   order.ID,
		StoreID:   order.StoreID,
		Type:      eventType,
		Payload:   datatypes.JSON(raw),
		CreatedAt: s.now(),
	}).Error
}

func (s *OrderService) notifyDispatcher() {
	if s.notifier != nil {
		s.notifier.Notify()
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
