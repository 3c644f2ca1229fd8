package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/floor/internal/enum"
	"github.com/shopspring/decimal"
)

const kotPrefix = "KOT-"

// Ticket is a kitchen order ticket: the lines sent to the kitchen together.
type Ticket struct {
	OrderID   int64        `json:"order_id"`
	KOTID     string       `json:"kot_id"`
	TableID   *uuid.UUID   `json:"table_id"`
	OrderType string       `json:"order_type"`
	Platform  string       `json:"platform,omitempty"`
	Lines     []TicketLine `json:"lines"`
	PrintedAt *time.Time   `json:"printed_at,omitempty"`
	Reprint   bool         `json:"reprint"`
}

// TicketLine is one grouped line of a ticket or bill.
type TicketLine struct {
	KOTID      string          `json:"kot_id,omitempty"`
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Amount     decimal.Decimal `json:"amount"`
}

// Empty reports whether the ticket has nothing to print.
func (t Ticket) Empty() bool { return len(t.Lines) == 0 }

// Bill is the invoice view of an order. Only printed lines are billed;
// UnbilledTotal is the value of lines that never reached the kitchen.
type Bill struct {
	OrderID       int64           `json:"order_id"`
	TableID       *uuid.UUID      `json:"table_id"`
	Status        string          `json:"status"`
	Lines         []TicketLine    `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	UnbilledTotal decimal.Decimal `json:"unbilled_total"`
	Total         decimal.Decimal `json:"total"`
}

func formatKOTID(n int) string { return kotPrefix + strconv.Itoa(n) }

// parseKOTNumber extracts n from "KOT-n".
func parseKOTNumber(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, kotPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// groupLines merges lines for the same menu item at the same price within the
// same ticket batch, keeping first-seen order.
func groupLines(items []OrderItem) []TicketLine {
	type key struct {
		kot   string
		item  uuid.UUID
		price string
	}
	index := make(map[key]int)
	var lines []TicketLine
	for _, it := range items {
		k := key{kot: it.KOTID, item: it.MenuItemID, price: it.Price.String()}
		if i, ok := index[k]; ok {
			lines[i].Quantity += it.Quantity
			lines[i].Amount = lines[i].Amount.Add(it.Amount())
			continue
		}
		index[k] = len(lines)
		lines = append(lines, TicketLine{
			KOTID:      it.KOTID,
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			Price:      it.Price,
			Amount:     it.Amount(),
		})
	}
	return lines
}

func newTicket(o *Order, kotID string, items []OrderItem) Ticket {
	t := Ticket{
		OrderID:   o.ID,
		KOTID:     kotID,
		OrderType: o.OrderType,
		Platform:  o.Platform,
		Lines:     groupLines(items),
	}
	if o.TableID != nil {
		id := *o.TableID
		t.TableID = &id
	}
	return t
}

// printNewItems stamps every unprinted line with the next KOT id as one batch.
// Returns an empty ticket when nothing is pending.
func printNewItems(o *Order, now time.Time) Ticket {
	if !o.HasUnprintedItems() {
		return Ticket{OrderID: o.ID}
	}

	kotID := formatKOTID(o.KOTCounter + 1)
	var batch []OrderItem
	for i := range o.Items {
		it := &o.Items[i]
		if it.printed() {
			continue
		}
		at := now
		it.KOTStatus = enum.KOTStatusPrinted
		it.KOTID = kotID
		it.PrintedAt = &at
		batch = append(batch, *it)
	}
	o.KOTCounter++
	o.Timestamp = now

	t := newTicket(o, kotID, batch)
	t.PrintedAt = &now
	return t
}

// latestTicket rebuilds the highest-numbered printed batch without mutating o.
func latestTicket(o *Order) Ticket {
	best := 0
	for _, it := range o.Items {
		if !it.printed() {
			continue
		}
		if n, ok := parseKOTNumber(it.KOTID); ok && n > best {
			best = n
		}
	}
	if best == 0 {
		return Ticket{OrderID: o.ID, Reprint: true}
	}

	kotID := formatKOTID(best)
	var batch []OrderItem
	var printedAt *time.Time
	for _, it := range o.Items {
		if it.printed() && it.KOTID == kotID {
			batch = append(batch, it)
			if printedAt == nil && it.PrintedAt != nil {
				at := *it.PrintedAt
				printedAt = &at
			}
		}
	}
	t := newTicket(o, kotID, batch)
	t.PrintedAt = printedAt
	t.Reprint = true
	return t
}

// previewNewItems shows what the next print would contain.
func previewNewItems(o *Order) Ticket {
	var pending []OrderItem
	for _, it := range o.Items {
		if !it.printed() {
			pending = append(pending, it)
		}
	}
	if len(pending) == 0 {
		return Ticket{OrderID: o.ID}
	}
	return newTicket(o, formatKOTID(o.KOTCounter+1), pending)
}

func buildBill(o *Order) Bill {
	var printed []OrderItem
	unbilled := decimal.Zero
	for _, it := range o.Items {
		if it.printed() {
			printed = append(printed, it)
		} else {
			unbilled = unbilled.Add(it.Amount())
		}
	}

	b := Bill{
		OrderID:       o.ID,
		Status:        o.Status,
		Lines:         groupLines(printed),
		Subtotal:      o.Total.Sub(unbilled),
		UnbilledTotal: unbilled,
		Total:         o.Total,
	}
	if o.TableID != nil {
		id := *o.TableID
		b.TableID = &id
	}
	return b
}

func (t Ticket) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s order #%d", t.KOTID, t.OrderID)
	for _, ln := range t.Lines {
		fmt.Fprintf(&sb, "\n  %dx %s", ln.Quantity, ln.Name)
	}
	return sb.String()
}
