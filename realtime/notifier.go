package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wemarket/qr-order/models"
	"github.com/wemarket/qr-order/utils"
)

// Publisher delivers a frame to a room, locally or across processes.
type Publisher interface {
	Publish(ctx context.Context, room string, msg Message) error
}

// Delivery is one notification addressed to one room.
type Delivery struct {
	Room    string
	Payload models.OrderEventPayload
}

// Route expands an order event into its room deliveries:
//
//	NEW_ORDER            store, kitchen, assigned table staff
//	ORDER_STATUS_CHANGED order
//	ORDER_READY          order, assigned staff, store
//	ORDER_CONFIRMED      order
func Route(p models.OrderEventPayload) []Delivery {
	staffOnly := func(target string) models.OrderEventPayload {
		out := p
		out.Target = target
		return out
	}
	public := func(target string) models.OrderEventPayload {
		out := staffOnly(target)
		out.StaffUserID = nil
		out.StaffName = ""
		return out
	}

	var out []Delivery
	switch p.Type {
	case models.EventNewOrder:
		out = append(out,
			Delivery{Room: StoreRoom(p.StoreID), Payload: public(models.TargetStore)},
			Delivery{Room: KitchenRoom(p.StoreID), Payload: public(models.TargetKitchen)},
		)
		if p.StaffUserID != nil {
			out = append(out, Delivery{Room: UserRoom(*p.StaffUserID), Payload: staffOnly(models.TargetTableStaff)})
		}
	case models.EventOrderStatusChanged, models.EventOrderConfirmed:
		out = append(out, Delivery{Room: OrderRoom(p.OrderID), Payload: public(models.TargetCustomer)})
	case models.EventOrderReady:
		out = append(out, Delivery{Room: OrderRoom(p.OrderID), Payload: public(models.TargetCustomer)})
		if p.StaffUserID != nil {
			out = append(out, Delivery{Room: UserRoom(*p.StaffUserID), Payload: staffOnly(models.TargetStaff)})
		}
		out = append(out, Delivery{Room: StoreRoom(p.StoreID), Payload: public(models.TargetManager)})
	}
	return out
}

// Notifier is the outbox sink that turns order events into notification
// frames.
type Notifier struct {
	pub Publisher
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) Name() string { return "realtime" }

func (n *Notifier) Deliver(ctx context.Context, events []models.OrderEvent) error {
	for _, e := range events {
		var p models.OrderEventPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			// A payload that cannot be decoded never will be; skip it.
			utils.ErrorLogger.WithError(err).WithField("event_id", e.EventID).Error("undecodable order event")
			continue
		}
		deliveries := Route(p)
		for _, d := range deliveries {
			if err := n.pub.Publish(ctx, d.Room, Message{Event: EventNotification, Data: d.Payload}); err != nil {
				return fmt.Errorf("publish %s to %s: %w", p.Type, d.Room, err)
			}
		}
		utils.InfoLogger.WithFields(logrus.Fields{
			"type":     p.Type,
			"order_id": p.OrderID,
			"rooms":    len(deliveries),
		}).Info("notification sent")
	}
	return nil
}
