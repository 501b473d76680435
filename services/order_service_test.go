package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wemarket/qr-order/models"
	"gorm.io/gorm"
)

func newOrderService(t *testing.T) (*OrderService, *fixture, *gorm.DB) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	svc := NewOrderService(db)
	svc.now = fixedClock(2026, time.March, 14)
	return svc, f, db
}

func eventsOf(t *testing.T, db *gorm.DB, orderID uint) []models.OrderEventPayload {
	t.Helper()
	var rows []models.OrderEvent
	require.NoError(t, db.Where("order_id = ?", orderID).Order("id").Find(&rows).Error)
	out := make([]models.OrderEventPayload, len(rows))
	for i, r := range rows {
		require.NoError(t, json.Unmarshal(r.Payload, &out[i]))
	}
	return out
}

func TestCreateOrder(t *testing.T) {
	svc, f, db := newOrderService(t)
	ctx := context.Background()

	order, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)

	assert.Equal(t, int64(13000), order.TotalAmount)
	assert.Equal(t, "20260314-0001", order.OrderNumber)
	assert.Equal(t, "2026-03-14", order.BusinessDate)
	require.NotNil(t, order.QueueNumber)
	assert.Equal(t, 1, *order.QueueNumber)
	require.NotNil(t, order.EstimatedMinutes)
	assert.Equal(t, 12, *order.EstimatedMinutes)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, models.PaymentUnpaid, order.PaymentStatus)
	assert.Equal(t, 1, order.Version)
	require.NotNil(t, order.TableName)
	assert.Equal(t, "A1", *order.TableName)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(5000), order.Items[1].Subtotal)

	second, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)
	assert.Equal(t, "20260314-0002", second.OrderNumber)
	assert.Equal(t, 2, *second.QueueNumber)

	events := eventsOf(t, db, order.ID)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventNewOrder, events[0].Type)
	assert.Equal(t, "New order received! (A1)", events[0].Message)
	assert.Equal(t, int64(13000), events[0].TotalAmount)
}

func TestCreateOrderNumberRestartsEachDay(t *testing.T) {
	svc, f, _ := newOrderService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)

	svc.now = fixedClock(2026, time.March, 15)
	next, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)
	assert.Equal(t, "20260315-0001", next.OrderNumber)
	assert.Equal(t, 1, *next.QueueNumber)
}

func TestCreateOrderItemRules(t *testing.T) {
	svc, f, _ := newOrderService(t)
	ctx := context.Background()

	t.Run("zero quantity counts as one", func(t *testing.T) {
		in := f.orderInput()
		in.Items = []CreateOrderItemInput{{ProductID: f.fries.ID, Price: 2500}}
		order, err := svc.Create(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, 1, order.Items[0].Quantity)
		assert.Equal(t, "Fries", order.Items[0].ProductName)
		assert.Equal(t, models.DefaultCookingMinutes, *order.EstimatedMinutes)
	})

	t.Run("unknown products leave the estimate empty", func(t *testing.T) {
		in := f.orderInput()
		in.TableID = nil
		in.Items = []CreateOrderItemInput{{ProductID: 9999, ProductName: "Off-menu special", Price: 1000, Quantity: 1}}
		order, err := svc.Create(ctx, in)
		require.NoError(t, err)
		assert.Nil(t, order.EstimatedMinutes)
		assert.Nil(t, order.TableID)
	})

	cases := map[string]func(in *CreateOrderInput){
		"negative quantity": func(in *CreateOrderInput) { in.Items[0].Quantity = -1 },
		"negative price":    func(in *CreateOrderInput) { in.Items[0].Price = -100 },
		"missing name":      func(in *CreateOrderInput) { in.Items[0] = CreateOrderItemInput{ProductID: 9999, Price: 100} },
		"no items":          func(in *CreateOrderInput) { in.Items = nil },
		"no store":          func(in *CreateOrderInput) { in.StoreID = 0 },
		"foreign table": func(in *CreateOrderInput) {
			other := uint(9999)
			in.TableID = &other
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := f.orderInput()
			mutate(&in)
			_, err := svc.Create(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateOrderRejectsInactiveStore(t *testing.T) {
	svc, f, db := newOrderService(t)
	require.NoError(t, db.Model(&f.store).Update("is_active", false).Error)

	_, err := svc.Create(context.Background(), f.orderInput())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestQueueNumberSkipsFinishedOrders(t *testing.T) {
	svc, f, _ := newOrderService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)
	second, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)

	next, err := svc.NextQueueNumber(ctx, f.store.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	_, err = svc.UpdateStatus(ctx, second.ID, UpdateStatusInput{Status: models.OrderCompleted})
	require.NoError(t, err)
	next, err = svc.NextQueueNumber(ctx, f.store.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	_, err = svc.UpdateStatus(ctx, first.ID, UpdateStatusInput{Status: models.OrderCancelled})
	require.NoError(t, err)
	next, err = svc.NextQueueNumber(ctx, f.store.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestUpdateStatusWritesLogAndEvents(t *testing.T) {
	svc, f, db := newOrderService(t)
	ctx := context.Background()
	mustCreate(t, db, &models.TableAssignment{StoreID: f.store.ID, TableID: f.table.ID, StaffUserID: f.staff.ID, AssignedAt: time.Now()})

	order, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)

	actor := f.manager.ID
	confirmed, err := svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: models.OrderConfirmed, ActorID: &actor})
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, confirmed.Status)
	assert.Equal(t, 2, confirmed.Version)
	require.NotNil(t, confirmed.UpdatedBy)
	assert.Equal(t, actor, *confirmed.UpdatedBy)

	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: models.OrderReady, ActorID: &actor})
	require.NoError(t, err)

	events := eventsOf(t, db, order.ID)
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	assert.Equal(t, []string{
		models.EventNewOrder,
		models.EventOrderStatusChanged, models.EventOrderConfirmed,
		models.EventOrderStatusChanged, models.EventOrderReady,
	}, types)

	assert.Equal(t, f.staff.ID, *events[0].StaffUserID, "new order carries the table's staff")
	assert.Equal(t, "Staff", events[0].StaffName)
	assert.Equal(t, `Order status changed to "Confirmed".`, events[1].Message)
	assert.Equal(t, "Order confirmed! Estimated cooking time: about 12 minutes", events[2].Message)
	assert.Equal(t, 1, *events[2].QueueNumber)
	assert.Equal(t, "Order #20260314-0001 is ready!", events[4].Message)
	assert.Equal(t, f.staff.ID, *events[4].StaffUserID)

	history, err := svc.History(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.OrderReady, history[0].NewStatus)
	assert.Equal(t, models.OrderConfirmed, history[0].OldStatus)
	require.NotNil(t, history[0].UserName)
	assert.Equal(t, "Manager", *history[0].UserName)
}

func TestUpdateStatusErrors(t *testing.T) {
	svc, f, _ := newOrderService(t)
	ctx := context.Background()
	order, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: "served"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateStatus(ctx, 4242, UpdateStatusInput{Status: models.OrderReady})
	assert.ErrorIs(t, err, ErrNotFound)

	stale := order.Version
	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: models.OrderConfirmed, ExpectedVersion: &stale})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: models.OrderCancelled, ExpectedVersion: &stale})
	assert.ErrorIs(t, err, ErrConflict)

	current, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, current.Status, "a rejected write leaves the order untouched")
}

func TestAnyTransitionIsAccepted(t *testing.T) {
	svc, f, _ := newOrderService(t)
	ctx := context.Background()
	order, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)

	for _, st := range []string{models.OrderCompleted, models.OrderPending, models.OrderReady, models.OrderReady} {
		updated, err := svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: st})
		require.NoError(t, err)
		assert.Equal(t, st, updated.Status)
	}
}

func TestUpdatePaymentAndQueue(t *testing.T) {
	svc, f, _ := newOrderService(t)
	ctx := context.Background()
	order, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)

	card := " card "
	paid, err := svc.UpdatePayment(ctx, order.ID, UpdatePaymentInput{PaymentMethod: &card, PaymentStatus: models.PaymentPaid})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, "card", *paid.PaymentMethod)

	_, err = svc.UpdatePayment(ctx, order.ID, UpdatePaymentInput{PaymentStatus: "refunded"})
	assert.ErrorIs(t, err, ErrValidation)

	seven, nine := 7, 9
	queued, err := svc.UpdateQueue(ctx, order.ID, UpdateQueueInput{QueueNumber: &seven, EstimatedMinutes: &nine})
	require.NoError(t, err)
	assert.Equal(t, 7, *queued.QueueNumber)
	assert.Equal(t, 9, *queued.EstimatedMinutes)
	assert.Equal(t, 3, queued.Version)

	_, err = svc.UpdateQueue(ctx, order.ID, UpdateQueueInput{})
	assert.ErrorIs(t, err, ErrValidation)
	zero := 0
	_, err = svc.UpdateQueue(ctx, order.ID, UpdateQueueInput{QueueNumber: &zero})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMutationsNotifyDispatcher(t *testing.T) {
	svc, f, _ := newOrderService(t)
	notifier := &countingNotifier{}
	svc.SetNotifier(notifier)
	ctx := context.Background()

	order, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: models.OrderPreparing})
	require.NoError(t, err)
	assert.Equal(t, 2, notifier.calls)

	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: "bogus"})
	require.Error(t, err)
	assert.Equal(t, 2, notifier.calls, "failed writes notify nothing")
}

func TestListByStoreFilters(t *testing.T) {
	svc, f, _ := newOrderService(t)
	ctx := context.Background()
	first, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, f.orderInput())
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, first.ID, UpdateStatusInput{Status: models.OrderReady})
	require.NoError(t, err)

	all, err := svc.ListByStore(ctx, f.store.ID, "", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Len(t, all[0].Items, 2)

	ready, err := svc.ListByStore(ctx, f.store.ID, models.OrderReady, "2026-03-14")
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, first.ID, ready[0].ID)

	none, err := svc.ListByStore(ctx, f.store.ID, "", "2026-03-13")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.ListByStore(ctx, f.store.ID, "served", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.ListByStore(ctx, f.store.ID, "", "14/03/2026")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEventsAfter(t *testing.T) {
	svc, f, _ := newOrderService(t)
	ctx := context.Background()
	order, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, order.ID, UpdateStatusInput{Status: models.OrderReady})
	require.NoError(t, err)

	all, err := svc.Events(ctx, order.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	rest, err := svc.Events(ctx, order.ID, all[0].EventID)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, all[1].EventID, rest[0].EventID)

	_, err = svc.Events(ctx, order.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Events(ctx, 4242, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	svc, f, _ := newOrderService(t)
	ctx := context.Background()
	first, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, f.orderInput())
	require.NoError(t, err)
	_, err = svc.UpdatePayment(ctx, first.ID, UpdatePaymentInput{PaymentStatus: models.PaymentPaid})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, first.ID, UpdateStatusInput{Status: models.OrderCompleted})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, f.store.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalOrders)
	assert.Equal(t, int64(13000), stats.TotalSales)
	assert.Equal(t, int64(1), stats.ByStatus[models.OrderCompleted])
	assert.Equal(t, int64(1), stats.ByStatus[models.OrderPending])

	detailed, err := svc.DetailedStats(ctx, f.store.ID, "2026-03-14", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, int64(13000), detailed.Summary.TotalSales)
	assert.Equal(t, int64(1), detailed.Summary.CompletedOrders)
	require.Len(t, detailed.DailySales, 1)
	assert.Equal(t, int64(2), detailed.DailySales[0].OrderCount)
	require.NotEmpty(t, detailed.TopProducts)
	assert.Equal(t, "Fries", detailed.TopProducts[0].ProductName)

	_, err = svc.Stats(ctx, f.store.ID, "2026-03-15", "2026-03-14")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteOrder(t *testing.T) {
	svc, f, db := newOrderService(t)
	ctx := context.Background()
	order, err := svc.Create(ctx, f.orderInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, order.ID))
	_, err = svc.Get(ctx, order.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var items int64
	require.NoError(t, db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&items).Error)
	assert.Zero(t, items)
	assert.ErrorIs(t, svc.Delete(ctx, order.ID), ErrNotFound)
}
