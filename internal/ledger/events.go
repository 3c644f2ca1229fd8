package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Event types published after each committed change.
const (
	EventOrderCreated     = "order.created"
	EventOrderUpdated     = "order.updated"
	EventOrderRelocated   = "order.relocated"
	EventKOTPrinted       = "kot.printed"
	EventIntegrityWarning = "integrity.warning"
)

// Warning codes.
const (
	WarnUnprintedAtBilling = "unprinted_items_at_billing"
	WarnTotalDrift         = "total_drift"
)

// Event describes one committed change. Order is a snapshot taken inside the
// same critical section as the change, so Total always matches Items.
type Event struct {
	Type            string     `json:"type"`
	Order           Order      `json:"order"`
	Ticket          *Ticket    `json:"ticket,omitempty"`
	Warning         *Warning   `json:"warning,omitempty"`
	PreviousTableID *uuid.UUID `json:"previous_table_id,omitempty"`
	At              time.Time  `json:"at"`
}

// Observer receives events in commit order. Notify must not block and must
// not issue ledger commands synchronously.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

// Warning is a non-fatal data integrity finding.
type Warning struct {
	OrderID int64     `json:"order_id"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}
