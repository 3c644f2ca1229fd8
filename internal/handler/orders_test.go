package handler_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func assertDecimal(t *testing.T, field string, got interface{}, want string) {
	t.Helper()
	s, ok := got.(string)
	if !ok {
		t.Fatalf("%s: expected decimal string, got %T (%v)", field, got, got)
	}
	if !decimal.RequireFromString(s).Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s: got %s, want %s", field, s, want)
	}
}

// --- Create ---

func TestOrderCreate_DineIn(t *testing.T) {
	e := newEnv(t)

	rr := doRequest(t, e.router, "POST", "/orders", map[string]interface{}{
		"table_id":   e.table1.ID.String(),
		"order_type": "dine_in",
		"items":      []interface{}{line(e.paneer, 1), line(e.naan, 2)},
	})
	expectStatus(t, rr, http.StatusCreated)

	resp := decodeResponse(t, rr)
	if resp["id"].(float64) != 1 {
		t.Errorf("id: got %v, want 1", resp["id"])
	}
	if resp["status"] != "NEW" {
		t.Errorf("status: got %v, want NEW", resp["status"])
	}
	assertDecimal(t, "total", resp["total"], "341.00")
	if resp["needs_kot_print"] != false || resp["can_cancel"] != true || resp["can_bill"] != false {
		t.Errorf("derived flags: %v %v %v", resp["needs_kot_print"], resp["can_cancel"], resp["can_bill"])
	}
	if items := resp["items"].([]interface{}); len(items) != 2 {
		t.Errorf("items: got %d, want 2", len(items))
	}

	// Confirming puts the unprinted lines in front of the kitchen printer.
	rr = e.setStatus(t, 1, "CONFIRMED")
	expectStatus(t, rr, http.StatusOK)
	if resp := decodeResponse(t, rr); resp["needs_kot_print"] != true {
		t.Errorf("needs_kot_print after confirm: got %v, want true", resp["needs_kot_print"])
	}
}

func TestOrderCreate_Online(t *testing.T) {
	e := newEnv(t)

	rr := doRequest(t, e.router, "POST", "/orders", map[string]interface{}{
		"order_type":    "ONLINE",
		"platform":      "swiggy",
		"customer_name": "Asha",
		"items":         []interface{}{line(e.naan, 4)},
	})
	expectStatus(t, rr, http.StatusCreated)

	resp := decodeResponse(t, rr)
	if resp["platform"] != "SWIGGY" {
		t.Errorf("platform: got %v", resp["platform"])
	}
	if resp["table_id"] != nil {
		t.Errorf("online order has table: %v", resp["table_id"])
	}
	assertDecimal(t, "total", resp["total"], "182.00")
}

func TestOrderCreate_Validation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"malformed body", "not json", http.StatusBadRequest},
		{"bad table id", map[string]interface{}{"table_id": "nope", "order_type": "DINE_IN", "items": []interface{}{line(e.naan, 1)}}, http.StatusBadRequest},
		{"bad menu item id", map[string]interface{}{"table_id": e.table1.ID.String(), "order_type": "DINE_IN", "items": []interface{}{map[string]interface{}{"menu_item_id": "x", "quantity": 1}}}, http.StatusBadRequest},
		{"unknown order type", map[string]interface{}{"order_type": "TAKEAWAY", "items": []interface{}{line(e.naan, 1)}}, http.StatusBadRequest},
		{"dine in without table", map[string]interface{}{"order_type": "DINE_IN", "items": []interface{}{line(e.naan, 1)}}, http.StatusBadRequest},
		{"online without platform", map[string]interface{}{"order_type": "ONLINE", "items": []interface{}{line(e.naan, 1)}}, http.StatusBadRequest},
		{"no items", map[string]interface{}{"table_id": e.table1.ID.String(), "order_type": "DINE_IN"}, http.StatusBadRequest},
		{"zero quantity", map[string]interface{}{"table_id": e.table1.ID.String(), "order_type": "DINE_IN", "items": []interface{}{line(e.naan, 0)}}, http.StatusBadRequest},
		{"sold out item", map[string]interface{}{"table_id": e.table1.ID.String(), "order_type": "DINE_IN", "items": []interface{}{line(e.soldOut, 1)}}, http.StatusBadRequest},
		{"unknown table", map[string]interface{}{"table_id": uuid.New().String(), "order_type": "DINE_IN", "items": []interface{}{line(e.naan, 1)}}, http.StatusNotFound},
		{"unknown menu item", map[string]interface{}{"table_id": e.table1.ID.String(), "order_type": "DINE_IN", "items": []interface{}{map[string]interface{}{"menu_item_id": uuid.New().String(), "quantity": 1}}}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, e.router, "POST", "/orders", tt.body)
			expectStatus(t, rr, tt.want)
			if resp := decodeResponse(t, rr); resp["error"] == nil {
				t.Error("expected error message")
			}
		})
	}
}

func TestOrderCreate_OccupiedTableConflicts(t *testing.T) {
	e := newEnv(t)
	e.placeDineIn(t, e.table1, line(e.naan, 1))

	rr := doRequest(t, e.router, "POST", "/orders", map[string]interface{}{
		"table_id":   e.table1.ID.String(),
		"order_type": "DINE_IN",
		"items":      []interface{}{line(e.paneer, 1)},
	})
	expectStatus(t, rr, http.StatusConflict)
}

// --- Get / List ---

func TestOrderGet(t *testing.T) {
	e := newEnv(t)
	id := e.placeDineIn(t, e.table1, line(e.naan, 1))

	rr := doRequest(t, e.router, "GET", orderPath(id, ""), nil)
	expectStatus(t, rr, http.StatusOK)
	if resp := decodeResponse(t, rr); resp["id"].(float64) != float64(id) {
		t.Errorf("id: got %v", resp["id"])
	}

	expectStatus(t, doRequest(t, e.router, "GET", "/orders/99", nil), http.StatusNotFound)
	expectStatus(t, doRequest(t, e.router, "GET", "/orders/abc", nil), http.StatusBadRequest)
	expectStatus(t, doRequest(t, e.router, "GET", "/orders/0", nil), http.StatusBadRequest)
}

func TestOrderList_Filters(t *testing.T) {
	e := newEnv(t)
	first := e.placeDineIn(t, e.table1, line(e.naan, 1))
	e.placeDineIn(t, e.table2, line(e.paneer, 1))
	rr := doRequest(t, e.router, "POST", "/orders", map[string]interface{}{
		"order_type": "ONLINE", "platform": "ZOMATO", "items": []interface{}{line(e.naan, 1)},
	})
	expectStatus(t, rr, http.StatusCreated)

	expectStatus(t, e.setStatus(t, first, "CONFIRMED"), http.StatusOK)
	expectStatus(t, doRequest(t, e.router, "DELETE", orderPath(first, ""), nil), http.StatusOK)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 3},
		{"by status", "?status=new", 2},
		{"multiple statuses", "?status=NEW,CANCELLED", 3},
		{"by type", "?type=online", 1},
		{"by platform", "?platform=zomato", 1},
		{"by table", "?table=" + e.table1.ID.String(), 1},
		{"active only", "?active=true", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, e.router, "GET", "/orders"+tt.query, nil)
			expectStatus(t, rr, http.StatusOK)
			if got := len(decodeListResponse(t, rr)); got != tt.want {
				t.Errorf("got %d orders, want %d", got, tt.want)
			}
		})
	}

	expectStatus(t, doRequest(t, e.router, "GET", "/orders?table=x", nil), http.StatusBadRequest)
	expectStatus(t, doRequest(t, e.router, "GET", "/orders?active=maybe", nil), http.StatusBadRequest)
}

func TestOrderList_EmptyIsArray(t *testing.T) {
	e := newEnv(t)
	rr := doRequest(t, e.router, "GET", "/orders", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := rr.Body.String(); got != "[]\n" {
		t.Errorf("body: got %q, want empty array", got)
	}
}

// --- Lifecycle ---

func TestOrder_FullDineInLifecycle(t *testing.T) {
	e := newEnv(t)
	id := e.placeDineIn(t, e.table1, line(e.paneer, 1), line(e.naan, 2))

	expectStatus(t, e.setStatus(t, id, "confirmed"), http.StatusOK)

	rr := doRequest(t, e.router, "GET", orderPath(id, "/kot/preview"), nil)
	expectStatus(t, rr, http.StatusOK)
	if lines := decodeResponse(t, rr)["lines"].([]interface{}); len(lines) != 2 {
		t.Fatalf("preview lines: got %d, want 2", len(lines))
	}

	rr = doRequest(t, e.router, "POST", orderPath(id, "/kot"), nil)
	expectStatus(t, rr, http.StatusCreated)
	if kot := decodeResponse(t, rr)["kot_id"]; kot != "KOT-1" {
		t.Fatalf("kot_id: got %v", kot)
	}

	// Nothing left to print.
	rr = doRequest(t, e.router, "POST", orderPath(id, "/kot"), nil)
	expectStatus(t, rr, http.StatusOK)
	if lines := decodeResponse(t, rr)["lines"]; lines != nil && len(lines.([]interface{})) != 0 {
		t.Fatalf("second print should be empty, got %v", lines)
	}

	// Printed orders cannot be cancelled.
	expectStatus(t, doRequest(t, e.router, "DELETE", orderPath(id, ""), nil), http.StatusConflict)
	// Billing before service is refused.
	expectStatus(t, e.setStatus(t, id, "BILLED"), http.StatusConflict)

	for _, item := range []uuid.UUID{e.paneer.ID, e.naan.ID} {
		rr = doRequest(t, e.router, "PATCH", orderPath(id, "/items/"+item.String()+"/status"), map[string]string{"status": "served"})
		expectStatus(t, rr, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != "SERVED" {
		t.Fatalf("aggregate status: got %v, want SERVED", resp["status"])
	}
	if resp["can_bill"] != true {
		t.Error("served order should be billable")
	}

	expectStatus(t, e.setStatus(t, id, "BILLED"), http.StatusOK)

	rr = doRequest(t, e.router, "GET", orderPath(id, "/bill"), nil)
	expectStatus(t, rr, http.StatusOK)
	bill := decodeResponse(t, rr)
	assertDecimal(t, "bill total", bill["total"], "341.00")
	assertDecimal(t, "unbilled", bill["unbilled_total"], "0")

	// A billed check takes no more items.
	rr = doRequest(t, e.router, "POST", orderPath(id, "/items"), map[string]interface{}{"items": []interface{}{line(e.naan, 1)}})
	expectStatus(t, rr, http.StatusConflict)

	expectStatus(t, e.setStatus(t, id, "PAID"), http.StatusOK)
	expectStatus(t, e.setStatus(t, id, "NEW"), http.StatusConflict)

	// Table is free again.
	e.placeDineIn(t, e.table1, line(e.naan, 1))
}

func TestOrderUpdateStatus_Validation(t *testing.T) {
	e := newEnv(t)
	id := e.placeDineIn(t, e.table1, line(e.naan, 1))

	expectStatus(t, doRequest(t, e.router, "PATCH", orderPath(id, "/status"), map[string]string{}), http.StatusBadRequest)
	expectStatus(t, e.setStatus(t, id, "TELEPORTED"), http.StatusBadRequest)
	expectStatus(t, e.setStatus(t, id, "SERVED"), http.StatusConflict)
	expectStatus(t, e.setStatus(t, 42, "CONFIRMED"), http.StatusNotFound)
}

func TestOrderAddItems_MergesAndReopens(t *testing.T) {
	e := newEnv(t)
	id := e.placeDineIn(t, e.table1, line(e.naan, 1))

	rr := doRequest(t, e.router, "POST", orderPath(id, "/items"), map[string]interface{}{
		"items": []interface{}{line(e.naan, 2), line(e.paneer, 1)},
	})
	expectStatus(t, rr, http.StatusOK)
	resp := decodeResponse(t, rr)
	if items := resp["items"].([]interface{}); len(items) != 2 {
		t.Fatalf("items: got %d, want 2 (naan merged)", len(items))
	}
	assertDecimal(t, "total", resp["total"], "386.50")

	expectStatus(t, doRequest(t, e.router, "DELETE", orderPath(id, ""), nil), http.StatusOK)

	rr = doRequest(t, e.router, "POST", orderPath(id, "/items"), map[string]interface{}{
		"items": []interface{}{line(e.naan, 1)},
	})
	expectStatus(t, rr, http.StatusOK)
	if status := decodeResponse(t, rr)["status"]; status != "NEW" {
		t.Errorf("reopened status: got %v, want NEW", status)
	}

	expectStatus(t, doRequest(t, e.router, "POST", orderPath(id, "/items"), map[string]interface{}{}), http.StatusBadRequest)
}

func TestOrderKOT_Reprint(t *testing.T) {
	e := newEnv(t)
	id := e.placeDineIn(t, e.table1, line(e.naan, 1))

	rr := doRequest(t, e.router, "GET", orderPath(id, "/kot/latest"), nil)
	expectStatus(t, rr, http.StatusOK)
	if kot := decodeResponse(t, rr)["kot_id"]; kot != "" {
		t.Errorf("reprint before any print: got kot %v", kot)
	}

	// Unconfirmed orders cannot print.
	expectStatus(t, doRequest(t, e.router, "POST", orderPath(id, "/kot"), nil), http.StatusConflict)

	expectStatus(t, e.setStatus(t, id, "CONFIRMED"), http.StatusOK)
	expectStatus(t, doRequest(t, e.router, "POST", orderPath(id, "/kot"), nil), http.StatusCreated)
	doRequest(t, e.router, "POST", orderPath(id, "/items"), map[string]interface{}{"items": []interface{}{line(e.paneer, 1)}})
	expectStatus(t, doRequest(t, e.router, "POST", orderPath(id, "/kot"), nil), http.StatusCreated)

	rr = doRequest(t, e.router, "GET", orderPath(id, "/kot/latest"), nil)
	expectStatus(t, rr, http.StatusOK)
	resp := decodeResponse(t, rr)
	if resp["kot_id"] != "KOT-2" || resp["reprint"] != true {
		t.Errorf("latest: kot %v reprint %v", resp["kot_id"], resp["reprint"])
	}
	if lines := resp["lines"].([]interface{}); len(lines) != 1 {
		t.Errorf("latest lines: got %d, want 1", len(lines))
	}
}

func TestOrderUpdateItemStatus_Errors(t *testing.T) {
	e := newEnv(t)
	id := e.placeDineIn(t, e.table1, line(e.naan, 1))
	path := orderPath(id, "/items/"+e.naan.ID.String()+"/status")

	expectStatus(t, doRequest(t, e.router, "PATCH", orderPath(id, "/items/x/status"), map[string]string{"status": "READY"}), http.StatusBadRequest)
	expectStatus(t, doRequest(t, e.router, "PATCH", path, map[string]string{}), http.StatusBadRequest)
	// Not printed yet.
	expectStatus(t, doRequest(t, e.router, "PATCH", path, map[string]string{"status": "READY"}), http.StatusConflict)
	expectStatus(t, doRequest(t, e.router, "PATCH", orderPath(id, "/items/"+e.paneer.ID.String()+"/status"), map[string]string{"status": "READY"}), http.StatusNotFound)
}

func TestOrderSwitchTable(t *testing.T) {
	e := newEnv(t)
	first := e.placeDineIn(t, e.table1, line(e.naan, 1))

	rr := doRequest(t, e.router, "POST", orderPath(first, "/switch-table"), map[string]string{"table_id": e.table2.ID.String()})
	expectStatus(t, rr, http.StatusOK)
	resp := decodeResponse(t, rr)
	if resp["table_id"] != e.table2.ID.String() || resp["switched_from"] != e.table1.ID.String() {
		t.Fatalf("switch: table %v from %v", resp["table_id"], resp["switched_from"])
	}

	second := e.placeDineIn(t, e.table1, line(e.paneer, 1))
	rr = doRequest(t, e.router, "POST", orderPath(second, "/switch-table"), map[string]string{"table_id": e.table2.ID.String()})
	expectStatus(t, rr, http.StatusConflict)

	// The rejected switch changed nothing.
	rr = doRequest(t, e.router, "GET", orderPath(second, ""), nil)
	if resp := decodeResponse(t, rr); resp["table_id"] != e.table1.ID.String() {
		t.Errorf("rejected switch moved the order to %v", resp["table_id"])
	}

	expectStatus(t, doRequest(t, e.router, "POST", orderPath(second, "/switch-table"), map[string]string{"table_id": "x"}), http.StatusBadRequest)
	expectStatus(t, doRequest(t, e.router, "POST", orderPath(second, "/switch-table"), map[string]string{"table_id": uuid.New().String()}), http.StatusNotFound)
}

// --- Kitchen ---

func TestKitchenQueue(t *testing.T) {
	e := newEnv(t)
	a := e.placeDineIn(t, e.table1, line(e.naan, 1))
	b := e.placeDineIn(t, e.table2, line(e.paneer, 1))
	expectStatus(t, e.setStatus(t, a, "CONFIRMED"), http.StatusOK)
	expectStatus(t, e.setStatus(t, b, "CONFIRMED"), http.StatusOK)
	expectStatus(t, e.setStatus(t, b, "PREPARING"), http.StatusOK)

	rr := doRequest(t, e.router, "GET", "/kitchen/orders", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := decodeListResponse(t, rr); len(got) != 2 {
		t.Fatalf("kitchen queue: got %d orders, want 2", len(got))
	}

	rr = doRequest(t, e.router, "GET", "/kitchen/orders?status=preparing", nil)
	expectStatus(t, rr, http.StatusOK)
	got := decodeListResponse(t, rr)
	if len(got) != 1 || got[0]["id"].(float64) != float64(b) {
		t.Fatalf("preparing column: %v", got)
	}
}

func TestWarnings_UnprintedAtBilling(t *testing.T) {
	e := newEnv(t)

	rr := doRequest(t, e.router, "GET", "/warnings", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := rr.Body.String(); got != "[]\n" {
		t.Fatalf("warnings before any: %q", got)
	}

	id := e.placeDineIn(t, e.table1, line(e.naan, 1))
	e.setStatus(t, id, "CONFIRMED")
	doRequest(t, e.router, "POST", orderPath(id, "/kot"), nil)
	doRequest(t, e.router, "PATCH", orderPath(id, "/items/"+e.naan.ID.String()+"/status"), map[string]string{"status": "SERVED"})
	doRequest(t, e.router, "POST", orderPath(id, "/items"), map[string]interface{}{"items": []interface{}{line(e.paneer, 1)}})
	expectStatus(t, e.setStatus(t, id, "BILLED"), http.StatusOK)

	rr = doRequest(t, e.router, "GET", "/warnings", nil)
	expectStatus(t, rr, http.StatusOK)
	warnings := decodeListResponse(t, rr)
	if len(warnings) != 1 || warnings[0]["code"] != "unprinted_items_at_billing" {
		t.Fatalf("warnings: %v", warnings)
	}

	rr = doRequest(t, e.router, "GET", orderPath(id, "/bill"), nil)
	bill := decodeResponse(t, rr)
	assertDecimal(t, "subtotal", bill["subtotal"], "45.50")
	assertDecimal(t, "unbilled", bill["unbilled_total"], "250.00")
	assertDecimal(t, "bill total", bill["total"], "295.50")
	if lines := bill["lines"].([]interface{}); len(lines) != 1 {
		t.Errorf("bill lines: got %d, want printed lines only", len(lines))
	}
}
