package ws

import (
	"encoding/json"
	"log/slog"

	"github.com/kiwari-pos/floor/internal/ledger"
)

// LedgerBridge pushes ledger events to connected views. Staff see every
// event; a table room sees events for the order seated there, and a
// relocation is also sent to the room the order left.
type LedgerBridge struct {
	hub *Hub
}

func NewLedgerBridge(hub *Hub) *LedgerBridge {
	return &LedgerBridge{hub: hub}
}

func (b *LedgerBridge) Notify(e ledger.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		slog.Error("marshal ledger event", "type", e.Type, "order_id", e.Order.ID, "err", err)
		return
	}
	event := Event{Type: e.Type, Payload: payload}

	b.hub.BroadcastToRoom(RoomStaff, event)

	// Integrity warnings are staff-only.
	if e.Type == ledger.EventIntegrityWarning {
		return
	}
	for _, room := range tableRooms(e) {
		b.hub.BroadcastToRoom(room, event)
	}
}

func tableRooms(e ledger.Event) []string {
	var rooms []string
	if e.Order.TableID != nil {
		rooms = append(rooms, TableRoom(*e.Order.TableID))
	}
	if e.Type == ledger.EventOrderRelocated && e.PreviousTableID != nil &&
		(e.Order.TableID == nil || *e.PreviousTableID != *e.Order.TableID) {
		rooms = append(rooms, TableRoom(*e.PreviousTableID))
	}
	return rooms
}

var _ ledger.Observer = (*LedgerBridge)(nil)
