package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chappie1998/jetson/internal/ledger"
)

func TestHub_FanoutByKind(t *testing.T) {
	h := NewHub(nil, 8)
	_, all := h.Subscribe("")
	_, swaps := h.Subscribe(ledger.EventSwap)

	h.Publish(Event{ID: 1, Kind: ledger.EventSwap})
	h.Publish(Event{ID: 2, Kind: ledger.EventRebalance})

	if e := <-all; e.ID != 1 {
		t.Fatalf("all sub first id=%d", e.ID)
	}
	if e := <-all; e.ID != 2 {
		t.Fatalf("all sub second id=%d", e.ID)
	}
	if e := <-swaps; e.ID != 1 {
		t.Fatalf("swap sub id=%d", e.ID)
	}
	select {
	case e := <-swaps:
		t.Fatalf("swap sub received foreign kind: %+v", e)
	default:
	}
}

func TestHub_DropsWhenSubscriberFull(t *testing.T) {
	h := NewHub(nil, 1)
	h.Subscribe("")
	h.Publish(Event{ID: 1}, Event{ID: 2}, Event{ID: 3})
	if got := h.Dropped(); got != 2 {
		t.Fatalf("dropped=%d want 2", got)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub(nil, 1)
	id, ch := h.Subscribe("")
	h.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Fatalf("channel still open after unsubscribe")
	}
	if got := h.Subscribers(); got != 0 {
		t.Fatalf("subscribers=%d", got)
	}
	h.Publish(Event{ID: 1})
	if got := h.Dropped(); got != 0 {
		t.Fatalf("publish to empty hub counted drops: %d", got)
	}
}

func TestNewEventBuilders(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := NewSwap("treasury-1", "alice", SwapPayload{
		Direction: ledger.SwapStableToSynthetic,
		Amount:    decimal.NewFromInt(25),
	}, at)
	if item.Kind != ledger.EventSwap || item.Treasury != "treasury-1" || item.Actor != "alice" {
		t.Fatalf("event head mismatch: %+v", item)
	}
	if item.Strategy != nil {
		t.Fatalf("swap event should not carry a strategy")
	}
	if item.UID == "" || !item.EmittedAt.Equal(at) {
		t.Fatalf("uid/emitted_at not set: %+v", item)
	}
	var p SwapPayload
	if err := json.Unmarshal(item.Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Direction != ledger.SwapStableToSynthetic || !p.Amount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("payload mismatch: %+v", p)
	}

	st := NewStateChange("treasury-1", "strat-1", "alice", StateChangePayload{
		OldState: string(ledger.StatePaused),
		NewState: string(ledger.StateActive),
	}, at)
	if st.Strategy == nil || *st.Strategy != "strat-1" {
		t.Fatalf("strategy not carried: %+v", st)
	}

	e := FromModel(st)
	if e.Strategy != "strat-1" || e.Kind != ledger.EventStrategyStateChange {
		t.Fatalf("published form mismatch: %+v", e)
	}
}
