package ledger

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/shopspring/decimal"
)

// OrderItem is one line of an order. Name and Price are captured from the
// menu when the line is created.
type OrderItem struct {
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	KOTStatus  string          `json:"kot_status"`
	ItemStatus string          `json:"item_status"`
	KOTID      string          `json:"kot_id,omitempty"`
	PrintedAt  *time.Time      `json:"printed_at,omitempty"`
}

// Amount is price × quantity.
func (it OrderItem) Amount() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

func (it OrderItem) printed() bool { return it.KOTStatus == enum.KOTStatusPrinted }

// Order is the ledger's unit of state. Values handed out by the ledger are
// deep copies; mutating them has no effect on the ledger.
type Order struct {
	ID           int64           `json:"id"`
	TableID      *uuid.UUID      `json:"table_id"`
	OrderType    string          `json:"order_type"`
	Platform     string          `json:"platform,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	Items        []OrderItem     `json:"items"`
	Status       string          `json:"status"`
	Timestamp    time.Time       `json:"timestamp"`
	CreatedAt    time.Time       `json:"created_at"`
	Total        decimal.Decimal `json:"total"`
	SwitchedFrom *uuid.UUID      `json:"switched_from,omitempty"`
	KOTCounter   int             `json:"kot_counter"`
	Version      int64           `json:"version"`
}

// Clone returns a deep copy of o.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	for i, it := range o.Items {
		if it.PrintedAt != nil {
			t := *it.PrintedAt
			it.PrintedAt = &t
		}
		c.Items[i] = it
	}
	if o.TableID != nil {
		id := *o.TableID
		c.TableID = &id
	}
	if o.SwitchedFrom != nil {
		id := *o.SwitchedFrom
		c.SwitchedFrom = &id
	}
	return &c
}

// ComputedTotal sums price × quantity over every line, regardless of status.
func (o *Order) ComputedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Amount())
	}
	return total
}

// IsTerminal reports whether the order accepts no further transitions.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case enum.OrderStatusPaid, enum.OrderStatusCancelled, enum.OrderStatusDelivered:
		return true
	}
	return false
}

// IsActive is the complement of IsTerminal.
func (o *Order) IsActive() bool { return !o.IsTerminal() }

// Occupies reports whether o holds its table.
func (o *Order) Occupies(tableID uuid.UUID) bool {
	return o.OrderType == enum.OrderTypeDineIn &&
		o.TableID != nil && *o.TableID == tableID &&
		o.IsActive()
}

func (o *Order) HasUnprintedItems() bool {
	return slices.ContainsFunc(o.Items, func(it OrderItem) bool { return !it.printed() })
}

func (o *Order) HasPrintedItems() bool {
	return slices.ContainsFunc(o.Items, OrderItem.printed)
}

// NeedsKOTPrint is true for a confirmed order still holding unprinted lines.
func (o *Order) NeedsKOTPrint() bool {
	return o.Status == enum.OrderStatusConfirmed && o.HasUnprintedItems()
}

// CanCancel is false once any line has gone to the kitchen.
func (o *Order) CanCancel() bool {
	return o.IsActive() && !o.HasPrintedItems()
}

// CanBill requires at least one printed line and every printed line served.
// Unprinted lines do not block billing.
func (o *Order) CanBill() bool {
	if !o.HasPrintedItems() {
		return false
	}
	for _, it := range o.Items {
		if it.printed() && it.ItemStatus != enum.OrderItemStatusServed {
			return false
		}
	}
	return true
}

// AllItemsServed is the aggregate rule behind the order-level SERVED status.
func (o *Order) AllItemsServed() bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, it := range o.Items {
		if it.ItemStatus != enum.OrderItemStatusServed {
			return false
		}
	}
	return true
}

// findNewLine returns the index of an unprinted line that a cart line for
// the same menu item at the same price can merge into, or -1.
func (o *Order) findNewLine(menuItemID uuid.UUID, price decimal.Decimal) int {
	return slices.IndexFunc(o.Items, func(it OrderItem) bool {
		return !it.printed() && it.MenuItemID == menuItemID && it.Price.Equal(price)
	})
}
