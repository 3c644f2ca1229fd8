package ledger

import (
	"fmt"
	"slices"

	"github.com/kiwari-pos/floor/internal/enum"
)

// dineInTransitions defines the explicit dine-in transitions.
// CANCELLED is handled by the cancellation guard and SERVED is also reached
// implicitly through the item aggregate. READY may bill directly when the
// only unserved lines were never printed.
var dineInTransitions = map[string][]string{
	enum.OrderStatusNew:       {enum.OrderStatusConfirmed, enum.OrderStatusPreparing},
	enum.OrderStatusConfirmed: {enum.OrderStatusPreparing},
	enum.OrderStatusPreparing: {enum.OrderStatusReady},
	enum.OrderStatusReady:     {enum.OrderStatusServed, enum.OrderStatusBilled},
	enum.OrderStatusServed:    {enum.OrderStatusBilled},
	enum.OrderStatusBilled:    {enum.OrderStatusPaid},
}

var onlineTransitions = map[string][]string{
	enum.OrderStatusNew:            {enum.OrderStatusAccepted},
	enum.OrderStatusAccepted:       {enum.OrderStatusPreparing},
	enum.OrderStatusPreparing:      {enum.OrderStatusFoodReady},
	enum.OrderStatusFoodReady:      {enum.OrderStatusOutForDelivery},
	enum.OrderStatusOutForDelivery: {enum.OrderStatusDelivered},
}

// aggregateServedFrom lists the dine-in statuses the item aggregate may lift
// to SERVED.
var aggregateServedFrom = []string{
	enum.OrderStatusConfirmed,
	enum.OrderStatusPreparing,
	enum.OrderStatusReady,
}

// KitchenStatuses is the default status set shown on the kitchen display.
var KitchenStatuses = []string{
	enum.OrderStatusConfirmed,
	enum.OrderStatusAccepted,
	enum.OrderStatusPreparing,
	enum.OrderStatusReady,
	enum.OrderStatusFoodReady,
}

var itemStatusRank = map[string]int{
	enum.OrderItemStatusPending:   0,
	enum.OrderItemStatusPreparing: 1,
	enum.OrderItemStatusReady:     2,
	enum.OrderItemStatusServed:    3,
}

func transitionsFor(orderType string) map[string][]string {
	if orderType == enum.OrderTypeOnline {
		return onlineTransitions
	}
	return dineInTransitions
}

// isValidStatus reports whether s is a status orders of orderType can hold.
func isValidStatus(orderType, s string) bool {
	if s == enum.OrderStatusCancelled {
		return true
	}
	if orderType == enum.OrderTypeOnline && s == enum.OrderStatusDelivered {
		return true
	}
	if orderType == enum.OrderTypeDineIn && s == enum.OrderStatusPaid {
		return true
	}
	_, ok := transitionsFor(orderType)[s]
	return ok
}

func isValidItemStatus(s string) bool {
	_, ok := itemStatusRank[s]
	return ok
}

func isValidOrderType(s string) bool {
	return s == enum.OrderTypeDineIn || s == enum.OrderTypeOnline
}

// validateStatusTransition checks the transition graph and the guards that
// depend on order contents.
func validateStatusTransition(o *Order, next string) error {
	if o.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrOrderClosed, o.Status)
	}
	if !slices.Contains(transitionsFor(o.OrderType)[o.Status], next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}

	switch {
	case next == enum.OrderStatusConfirmed && !o.HasUnprintedItems():
		return ErrNothingToConfirm
	case next == enum.OrderStatusServed && !o.AllItemsServed():
		return ErrItemsNotServed
	case next == enum.OrderStatusBilled && !o.CanBill():
		return ErrNotBillable
	}
	return nil
}

// applyServedAggregate lifts a dine-in order to SERVED once every line is
// served. Reports whether the status changed.
func applyServedAggregate(o *Order) bool {
	if o.OrderType != enum.OrderTypeDineIn || !slices.Contains(aggregateServedFrom, o.Status) {
		return false
	}
	if !o.AllItemsServed() {
		return false
	}
	o.Status = enum.OrderStatusServed
	return true
}
