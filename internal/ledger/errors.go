package ledger

import "errors"

// Error kinds. Every error returned by the ledger unwraps to exactly one of
// these, so callers can branch with errors.Is without knowing each case.
var (
	ErrGuardViolation = errors.New("guard violation")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotReady       = errors.New("ledger is still loading")
)

// kindError is a specific failure that belongs to a kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func guard(msg string) error    { return &kindError{kind: ErrGuardViolation, msg: msg} }
func notFound(msg string) error { return &kindError{kind: ErrNotFound, msg: msg} }
func invalid(msg string) error  { return &kindError{kind: ErrInvalidInput, msg: msg} }

// Errors returned by ledger commands.
var (
	ErrOrderNotFound     = notFound("order not found")
	ErrTableNotFound     = notFound("table not found")
	ErrMenuItemNotFound  = notFound("menu item not found")
	ErrItemNotInOrder    = notFound("menu item is not part of this order")
	ErrEmptyItems        = invalid("items are required")
	ErrInvalidQuantity   = invalid("quantity must be > 0")
	ErrInvalidOrderType  = invalid("invalid order_type")
	ErrInvalidStatus     = invalid("invalid status")
	ErrInvalidItemStatus = invalid("invalid item status")
	ErrTableRequired     = invalid("table_id is required for DINE_IN orders")
	ErrTableNotAllowed   = invalid("table_id is not allowed for ONLINE orders")
	ErrPlatformRequired  = invalid("platform is required for ONLINE orders")
	ErrItemUnavailable   = invalid("menu item is not available")

	ErrTableOccupied       = guard("table is occupied by another active order")
	ErrOrderClosed         = guard("order is closed")
	ErrOrderBilled         = guard("order is billed; settle it before adding items")
	ErrInvalidTransition   = guard("status transition not allowed")
	ErrNothingToConfirm    = guard("order has no new items to confirm")
	ErrNotConfirmed        = guard("order must be confirmed before printing a KOT")
	ErrCancelAfterPrint    = guard("cannot cancel an order after a KOT has been printed")
	ErrNotBillable         = guard("every printed item must be served before billing")
	ErrItemsNotServed      = guard("not every item has been served")
	ErrItemNotPrinted      = guard("item has not been sent to the kitchen")
	ErrItemStatusRegressed = guard("item status can only move forward")
	ErrNotDineIn           = guard("only DINE_IN orders can switch tables")
)
