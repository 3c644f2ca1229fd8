package ledger

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/floor/internal/catalog"
	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/shopspring/decimal"
)

const maxWarnings = 200

// MenuLookup resolves menu items for pricing.
// Satisfied by *catalog.Menu.
type MenuLookup interface {
	Get(id uuid.UUID) (catalog.MenuItem, error)
}

// TableLookup checks that tables exist.
// Satisfied by *catalog.Tables.
type TableLookup interface {
	Get(id uuid.UUID) (catalog.Table, error)
}

// Store persists orders. SaveOrder is called inside the ledger's critical
// section for every committed change; a failed save aborts the change.
type Store interface {
	LoadOrders(ctx context.Context) ([]Order, error)
	SaveOrder(ctx context.Context, o Order) error
}

// CartLine is one requested line of a cart submission.
type CartLine struct {
	MenuItemID uuid.UUID
	Quantity   int
}

// PlaceOrderRequest is the input for PlaceOrder.
type PlaceOrderRequest struct {
	TableID      *uuid.UUID
	OrderType    string
	Platform     string
	CustomerName string
	Items        []CartLine
}

// Ledger is the authoritative in-memory collection of orders.
//
// All commands serialize on one write lock, which also covers the occupancy
// read-check-write of placement and table switching. Reads take the read
// lock and return deep copies. Events are handed to observers after the
// state lock is released, in commit order.
type Ledger struct {
	mu     sync.RWMutex
	pubMu  sync.Mutex
	menu   MenuLookup
	tables TableLookup
	store  Store
	now    func() time.Time
	logger *slog.Logger

	observers []Observer
	ready     bool
	nextID    int64
	orders    map[int64]*Order
	warnings  []Warning
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observers = append(l.observers, o) }
}

// New creates a Ledger. It serves nothing until Load completes.
func New(menu MenuLookup, tables TableLookup, store Store, opts ...Option) *Ledger {
	l := &Ledger{
		menu:   menu,
		tables: tables,
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
		orders: make(map[int64]*Order),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Subscribe registers an observer for future events.
func (l *Ledger) Subscribe(o Observer) {
	l.pubMu.Lock()
	l.observers = append(l.observers, o)
	l.pubMu.Unlock()
}

// Load reads every stored order and marks the ledger ready. Stored totals
// that disagree with their lines are repaired and reported as warnings.
func (l *Ledger) Load(ctx context.Context) error {
	stored, err := l.store.LoadOrders(ctx)
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}

	l.mu.Lock()
	if l.ready {
		l.mu.Unlock()
		return nil
	}
	var events []Event
	for i := range stored {
		o := stored[i].Clone()
		if computed := o.ComputedTotal(); !computed.Equal(o.Total) {
			ev := l.warning(o, WarnTotalDrift,
				fmt.Sprintf("stored total %s does not match lines %s; repaired", o.Total, computed))
			o.Total = computed
			events = append(events, ev)
		}
		l.orders[o.ID] = o
		if o.ID > l.nextID {
			l.nextID = o.ID
		}
	}
	for i := range events {
		events[i].Order = *l.orders[events[i].Order.ID].Clone()
		l.recordWarning(*events[i].Warning)
	}
	l.ready = true
	l.logger.Info("ledger loaded", "orders", len(stored), "next_id", l.nextID+1)
	l.release(events)
	return nil
}

// Ready reports whether Load has completed.
func (l *Ledger) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ready
}

// --- Commands ---

// PlaceOrder creates an order. A DINE_IN order fails with ErrTableOccupied
// when its table already hosts an active order.
func (l *Ledger) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (Order, error) {
	if !isValidOrderType(req.OrderType) {
		return Order{}, ErrInvalidOrderType
	}
	platform := strings.ToUpper(strings.TrimSpace(req.Platform))
	switch req.OrderType {
	case enum.OrderTypeDineIn:
		if req.TableID == nil {
			return Order{}, ErrTableRequired
		}
		platform = ""
	case enum.OrderTypeOnline:
		if req.TableID != nil {
			return Order{}, ErrTableNotAllowed
		}
		if platform == "" {
			return Order{}, ErrPlatformRequired
		}
	}

	lines, err := l.resolveLines(req.Items)
	if err != nil {
		return Order{}, err
	}

	l.mu.Lock()
	if !l.ready {
		l.mu.Unlock()
		return Order{}, ErrNotReady
	}
	if req.TableID != nil {
		if _, err := l.tables.Get(*req.TableID); err != nil {
			l.mu.Unlock()
			return Order{}, ErrTableNotFound
		}
		if holder := l.activeAt(*req.TableID); holder != nil {
			l.mu.Unlock()
			return Order{}, fmt.Errorf("%w: order #%d", ErrTableOccupied, holder.ID)
		}
	}

	now := l.now()
	o := &Order{
		ID:           l.nextID + 1,
		OrderType:    req.OrderType,
		Platform:     platform,
		CustomerName: strings.TrimSpace(req.CustomerName),
		Items:        []OrderItem{},
		Status:       enum.OrderStatusNew,
		CreatedAt:    now,
		Total:        decimal.Zero,
	}
	if req.TableID != nil {
		id := *req.TableID
		o.TableID = &id
	}
	mergeLines(o, lines, now)

	if err := l.commit(ctx, o); err != nil {
		l.mu.Unlock()
		return Order{}, err
	}
	l.nextID = o.ID

	events := []Event{{Type: EventOrderCreated}}
	snapshot := l.finalize(o, events)
	l.release(events)
	return snapshot, nil
}

// AddItems merges cart lines into an existing order. Lines for a menu item
// that already has an unprinted line at the same price grow that line;
// everything else is appended as a new line. A terminal order is reopened
// as NEW, a SERVED order drops back to READY, and a BILLED order refuses
// new items.
func (l *Ledger) AddItems(ctx context.Context, orderID int64, items []CartLine) (Order, error) {
	lines, err := l.resolveLines(items)
	if err != nil {
		return Order{}, err
	}

	return l.update(ctx, orderID, func(o *Order) ([]Event, error) {
		switch {
		case o.Status == enum.OrderStatusBilled:
			return nil, ErrOrderBilled
		case o.Status == enum.OrderStatusServed:
			o.Status = enum.OrderStatusReady
		case o.IsTerminal():
			if o.OrderType == enum.OrderTypeDineIn && o.TableID != nil {
				if _, err := l.tables.Get(*o.TableID); err != nil {
					return nil, ErrTableNotFound
				}
				if holder := l.activeAt(*o.TableID); holder != nil && holder.ID != o.ID {
					return nil, fmt.Errorf("%w: order #%d", ErrTableOccupied, holder.ID)
				}
			}
			l.logger.Info("reopening order", "order_id", o.ID, "from", o.Status)
			o.Status = enum.OrderStatusNew
			o.SwitchedFrom = nil
		}
		mergeLines(o, lines, l.now())
		return []Event{{Type: EventOrderUpdated}}, nil
	})
}

// AdvanceStatus moves an order to target if the transition graph and its
// guards allow it. CANCELLED is routed through CancelOrder.
func (l *Ledger) AdvanceStatus(ctx context.Context, orderID int64, target string) (Order, error) {
	if target == enum.OrderStatusCancelled {
		return l.CancelOrder(ctx, orderID)
	}

	return l.update(ctx, orderID, func(o *Order) ([]Event, error) {
		if !isValidStatus(o.OrderType, target) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, target)
		}
		if err := validateStatusTransition(o, target); err != nil {
			return nil, err
		}
		o.Status = target

		events := []Event{{Type: EventOrderUpdated}}
		if target == enum.OrderStatusBilled && o.HasUnprintedItems() {
			events = append(events, l.warning(o, WarnUnprintedAtBilling,
				"order billed while holding lines that were never sent to the kitchen"))
		}
		return events, nil
	})
}

// CancelOrder cancels an order that has never had a KOT printed.
func (l *Ledger) CancelOrder(ctx context.Context, orderID int64) (Order, error) {
	return l.update(ctx, orderID, func(o *Order) ([]Event, error) {
		if o.IsTerminal() {
			return nil, fmt.Errorf("%w: %s", ErrOrderClosed, o.Status)
		}
		if o.HasPrintedItems() {
			return nil, ErrCancelAfterPrint
		}
		o.Status = enum.OrderStatusCancelled
		o.SwitchedFrom = nil
		return []Event{{Type: EventOrderUpdated}}, nil
	})
}

// PrintNewItems sends every unprinted line to the kitchen as one ticket.
// Returns an empty ticket, and changes nothing, when no line is pending.
func (l *Ledger) PrintNewItems(ctx context.Context, orderID int64) (Ticket, error) {
	var ticket Ticket
	_, err := l.update(ctx, orderID, func(o *Order) ([]Event, error) {
		if o.IsTerminal() {
			return nil, fmt.Errorf("%w: %s", ErrOrderClosed, o.Status)
		}
		if !o.HasUnprintedItems() {
			ticket = Ticket{OrderID: o.ID}
			return nil, nil
		}
		if o.Status == enum.OrderStatusNew {
			return nil, ErrNotConfirmed
		}
		ticket = printNewItems(o, l.now())
		printed := ticket
		return []Event{{Type: EventKOTPrinted, Ticket: &printed}}, nil
	})
	if err != nil {
		return Ticket{}, err
	}
	return ticket, nil
}

// UpdateItemStatus moves every printed line of menuItemID forward to status.
// Lines already at status are left alone; a dine-in order whose lines are
// all served becomes SERVED.
func (l *Ledger) UpdateItemStatus(ctx context.Context, orderID int64, menuItemID uuid.UUID, status string) (Order, error) {
	if !isValidItemStatus(status) {
		return Order{}, fmt.Errorf("%w: %s", ErrInvalidItemStatus, status)
	}

	return l.update(ctx, orderID, func(o *Order) ([]Event, error) {
		if o.IsTerminal() || o.Status == enum.OrderStatusBilled {
			return nil, fmt.Errorf("%w: %s", ErrOrderClosed, o.Status)
		}

		var found, printed, changed, ahead bool
		for i := range o.Items {
			it := &o.Items[i]
			if it.MenuItemID != menuItemID {
				continue
			}
			found = true
			if !it.printed() {
				continue
			}
			printed = true
			switch cur, next := itemStatusRank[it.ItemStatus], itemStatusRank[status]; {
			case cur < next:
				it.ItemStatus = status
				changed = true
			case cur > next:
				ahead = true
			}
		}

		switch {
		case !found:
			return nil, ErrItemNotInOrder
		case !printed:
			return nil, ErrItemNotPrinted
		case !changed && ahead:
			return nil, ErrItemStatusRegressed
		case !changed:
			return nil, nil
		}

		if applyServedAggregate(o) {
			l.logger.Debug("order served", "order_id", o.ID)
		}
		return []Event{{Type: EventOrderUpdated}}, nil
	})
}

// SwitchTable relocates an active dine-in order. It fails with
// ErrTableOccupied, changing nothing, when another active order holds the
// target table. On success SwitchedFrom records the previous table until a
// viewer of that table consumes the redirect.
func (l *Ledger) SwitchTable(ctx context.Context, orderID int64, tableID uuid.UUID) (Order, error) {
	return l.update(ctx, orderID, func(o *Order) ([]Event, error) {
		if _, err := l.tables.Get(tableID); err != nil {
			return nil, ErrTableNotFound
		}
		if o.OrderType != enum.OrderTypeDineIn {
			return nil, ErrNotDineIn
		}
		if o.IsTerminal() {
			return nil, fmt.Errorf("%w: %s", ErrOrderClosed, o.Status)
		}
		if o.TableID != nil && *o.TableID == tableID {
			return nil, nil
		}
		if holder := l.activeAt(tableID); holder != nil && holder.ID != o.ID {
			return nil, fmt.Errorf("%w: order #%d", ErrTableOccupied, holder.ID)
		}

		prev := o.TableID
		target := tableID
		o.TableID = &target
		o.SwitchedFrom = prev

		ev := Event{Type: EventOrderRelocated}
		if prev != nil {
			p := *prev
			ev.PreviousTableID = &p
		}
		return []Event{ev}, nil
	})
}

// RemoveTable deletes a table through remove while holding the ledger
// lock, so no order can be seated at or moved to it in between. It fails
// with ErrTableOccupied, returning the holder's id, when an active order
// sits at the table.
func (l *Ledger) RemoveTable(tableID uuid.UUID, remove func(uuid.UUID) error) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ready {
		return 0, ErrNotReady
	}
	if holder := l.activeAt(tableID); holder != nil {
		return holder.ID, fmt.Errorf("%w: order #%d", ErrTableOccupied, holder.ID)
	}
	if err := remove(tableID); err != nil {
		return 0, err
	}
	l.logger.Info("table removed", "table_id", tableID)
	return 0, nil
}

// ConsumeRedirect hands out, at most once, the order that was moved away
// from tableID. ok is false when there is nothing to redirect.
func (l *Ledger) ConsumeRedirect(ctx context.Context, tableID uuid.UUID) (o Order, ok bool, err error) {
	l.mu.Lock()
	if !l.ready {
		l.mu.Unlock()
		return Order{}, false, ErrNotReady
	}

	var moved *Order
	for _, cand := range l.orders {
		if !cand.IsActive() || cand.SwitchedFrom == nil || *cand.SwitchedFrom != tableID {
			continue
		}
		if moved == nil || cand.Timestamp.After(moved.Timestamp) {
			moved = cand
		}
	}
	if moved == nil {
		l.mu.Unlock()
		return Order{}, false, nil
	}

	o, err = l.apply(ctx, moved, func(o *Order) ([]Event, error) {
		o.SwitchedFrom = nil
		return []Event{{Type: EventOrderUpdated}}, nil
	})
	if err != nil {
		return Order{}, false, err
	}
	return o, true, nil
}

// --- Queries ---

// Filter selects orders for List. Zero fields match everything.
type Filter struct {
	Statuses   []string
	TableID    *uuid.UUID
	OrderType  string
	Platform   string
	ActiveOnly bool
}

func (f Filter) match(o *Order) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status) {
		return false
	}
	if f.TableID != nil && (o.TableID == nil || *o.TableID != *f.TableID) {
		return false
	}
	if f.OrderType != "" && o.OrderType != f.OrderType {
		return false
	}
	if f.Platform != "" && !strings.EqualFold(o.Platform, f.Platform) {
		return false
	}
	if f.ActiveOnly && !o.IsActive() {
		return false
	}
	return true
}

// Get returns a snapshot of one order.
func (l *Ledger) Get(orderID int64) (Order, error) {
	var out Order
	err := l.read(orderID, func(o *Order) { out = *o.Clone() })
	return out, err
}

// List returns matching orders oldest activity first.
func (l *Ledger) List(f Filter) ([]Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.ready {
		return nil, ErrNotReady
	}

	out := make([]Order, 0)
	for _, o := range l.orders {
		if f.match(o) {
			out = append(out, *o.Clone())
		}
	}
	slices.SortFunc(out, func(a, b Order) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// KitchenQueue lists the orders shown on the kitchen display. An empty
// statuses slice selects KitchenStatuses.
func (l *Ledger) KitchenQueue(statuses ...string) ([]Order, error) {
	if len(statuses) == 0 {
		statuses = KitchenStatuses
	}
	return l.List(Filter{Statuses: statuses})
}

// OrdersByTable lists every order, active or not, that references tableID.
func (l *Ledger) OrdersByTable(tableID uuid.UUID) ([]Order, error) {
	return l.List(Filter{TableID: &tableID})
}

// OrdersByPlatform lists online orders from one platform.
func (l *Ledger) OrdersByPlatform(platform string) ([]Order, error) {
	return l.List(Filter{OrderType: enum.OrderTypeOnline, Platform: platform})
}

// ActiveOrderAt returns the order occupying tableID, if any.
func (l *Ledger) ActiveOrderAt(tableID uuid.UUID) (Order, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.ready {
		return Order{}, false, ErrNotReady
	}
	if o := l.activeAt(tableID); o != nil {
		return *o.Clone(), true, nil
	}
	return Order{}, false, nil
}

// Occupancy maps each occupied table to the id of its active order.
func (l *Ledger) Occupancy() (map[uuid.UUID]int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.ready {
		return nil, ErrNotReady
	}

	occ := make(map[uuid.UUID]int64)
	for _, o := range l.orders {
		if o.TableID != nil && o.Occupies(*o.TableID) {
			occ[*o.TableID] = o.ID
		}
	}
	return occ, nil
}

// PreviewNewItems shows the grouped lines the next print would send.
func (l *Ledger) PreviewNewItems(orderID int64) (Ticket, error) {
	var t Ticket
	err := l.read(orderID, func(o *Order) { t = previewNewItems(o) })
	return t, err
}

// ReprintLatestTicket returns the most recent printed batch. It never
// mutates state; an order with nothing printed yields an empty ticket.
func (l *Ledger) ReprintLatestTicket(orderID int64) (Ticket, error) {
	var t Ticket
	err := l.read(orderID, func(o *Order) { t = latestTicket(o) })
	return t, err
}

// Bill returns the invoice view of an order.
func (l *Ledger) Bill(orderID int64) (Bill, error) {
	var b Bill
	err := l.read(orderID, func(o *Order) { b = buildBill(o) })
	return b, err
}

// Warnings returns recorded integrity warnings, oldest first.
func (l *Ledger) Warnings() []Warning {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.warnings)
}

// --- Internals ---

type pricedLine struct {
	item     catalog.MenuItem
	quantity int
}

func (l *Ledger) resolveLines(lines []CartLine) ([]pricedLine, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyItems
	}
	out := make([]pricedLine, 0, len(lines))
	for i, ln := range lines {
		if ln.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		item, err := l.menu.Get(ln.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
		}
		if !item.Available {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrItemUnavailable)
		}
		out = append(out, pricedLine{item: item, quantity: ln.Quantity})
	}
	return out, nil
}

// mergeLines adds priced lines to o, growing the running total by exactly
// the value added.
func mergeLines(o *Order, lines []pricedLine, now time.Time) {
	for _, ln := range lines {
		added := ln.item.Price.Mul(decimal.NewFromInt(int64(ln.quantity)))
		if i := o.findNewLine(ln.item.ID, ln.item.Price); i >= 0 {
			o.Items[i].Quantity += ln.quantity
		} else {
			o.Items = append(o.Items, OrderItem{
				MenuItemID: ln.item.ID,
				Name:       ln.item.Name,
				Price:      ln.item.Price,
				Quantity:   ln.quantity,
				KOTStatus:  enum.KOTStatusNew,
				ItemStatus: enum.OrderItemStatusPending,
			})
		}
		o.Total = o.Total.Add(added)
	}
	o.Timestamp = now
}

// activeAt returns the active dine-in order at tableID. Caller holds l.mu.
func (l *Ledger) activeAt(tableID uuid.UUID) *Order {
	for _, o := range l.orders {
		if o.Occupies(tableID) {
			return o
		}
	}
	return nil
}

func (l *Ledger) read(orderID int64, fn func(o *Order)) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.ready {
		return ErrNotReady
	}
	o, ok := l.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	fn(o)
	return nil
}

func (l *Ledger) update(ctx context.Context, orderID int64, fn func(o *Order) ([]Event, error)) (Order, error) {
	l.mu.Lock()
	if !l.ready {
		l.mu.Unlock()
		return Order{}, ErrNotReady
	}
	cur, ok := l.orders[orderID]
	if !ok {
		l.mu.Unlock()
		return Order{}, ErrOrderNotFound
	}
	return l.apply(ctx, cur, fn)
}

// apply runs fn on a clone of cur and commits the clone when fn reports
// events. No events means nothing changed. Caller holds l.mu; apply
// releases it.
func (l *Ledger) apply(ctx context.Context, cur *Order, fn func(o *Order) ([]Event, error)) (Order, error) {
	o := cur.Clone()
	events, err := fn(o)
	if err != nil {
		l.mu.Unlock()
		return Order{}, err
	}
	if len(events) == 0 {
		snapshot := *cur.Clone()
		l.mu.Unlock()
		return snapshot, nil
	}
	if err := l.commit(ctx, o); err != nil {
		l.mu.Unlock()
		return Order{}, err
	}
	snapshot := l.finalize(o, events)
	l.release(events)
	return snapshot, nil
}

// commit persists o and makes it the current version. Caller holds l.mu.
func (l *Ledger) commit(ctx context.Context, o *Order) error {
	o.Version++
	if err := l.store.SaveOrder(ctx, *o); err != nil {
		return fmt.Errorf("save order %d: %w", o.ID, err)
	}
	l.orders[o.ID] = o
	return nil
}

// finalize attaches snapshots to events and records warnings. Caller holds l.mu.
func (l *Ledger) finalize(o *Order, events []Event) Order {
	now := l.now()
	for i := range events {
		events[i].Order = *o.Clone()
		events[i].At = now
		if events[i].Warning != nil {
			l.recordWarning(*events[i].Warning)
		}
	}
	return *o.Clone()
}

// release hands the state lock over to the publish lock, so observers see
// events in commit order while readers proceed.
func (l *Ledger) release(events []Event) {
	l.pubMu.Lock()
	l.mu.Unlock()
	defer l.pubMu.Unlock()

	for _, ev := range events {
		for _, obs := range l.observers {
			obs.Notify(ev)
		}
	}
}

func (l *Ledger) warning(o *Order, code, msg string) Event {
	return Event{
		Type:  EventIntegrityWarning,
		Order: Order{ID: o.ID},
		Warning: &Warning{
			OrderID: o.ID,
			Code:    code,
			Message: msg,
			At:      l.now(),
		},
	}
}

func (l *Ledger) recordWarning(w Warning) {
	l.logger.Warn("data integrity warning", "order_id", w.OrderID, "code", w.Code, "message", w.Message)
	l.warnings = append(l.warnings, w)
	if len(l.warnings) > maxWarnings {
		l.warnings = slices.Delete(l.warnings, 0, len(l.warnings)-maxWarnings)
	}
}
