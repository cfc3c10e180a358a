package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestErrorIs_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("activate: %w", ErrStrategyAlreadyActive)
	if !errors.Is(err, ErrStrategyAlreadyActive) {
		t.Fatalf("wrapped sentinel did not match")
	}
	if errors.Is(err, ErrStrategyNotActive) {
		t.Fatalf("mismatched sentinel matched")
	}
}

func TestCollaborator_PreservesUnderlying(t *testing.T) {
	underlying := errors.New("insufficient balance")
	err := Collaborator("transfer", underlying)
	if KindOf(err) != KindCollaborator {
		t.Fatalf("kind=%s want=%s", KindOf(err), KindCollaborator)
	}
	if !errors.Is(err, underlying) {
		t.Fatalf("underlying error lost through wrap")
	}
	if err.Code != "token_transfer_failed" {
		t.Fatalf("code=%s", err.Code)
	}
}

func TestKindOf_ForeignError(t *testing.T) {
	if k := KindOf(errors.New("boom")); k != "" {
		t.Fatalf("kind=%q want empty", k)
	}
}

func TestSatDec(t *testing.T) {
	if got := SatDec(2); got != 1 {
		t.Fatalf("SatDec(2)=%d", got)
	}
	if got := SatDec(0); got != 0 {
		t.Fatalf("SatDec(0)=%d", got)
	}
	if got := SatDec(-3); got != 0 {
		t.Fatalf("SatDec(-3)=%d", got)
	}
}

func TestSatAdd_ClampsAtZero(t *testing.T) {
	total := decimal.NewFromInt(10)
	if got := SatAdd(total, decimal.NewFromInt(5)); !got.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("got=%s", got)
	}
	if got := SatAdd(total, decimal.NewFromInt(-50)); !got.IsZero() {
		t.Fatalf("got=%s want 0", got)
	}
}

func TestStrategyVocab(t *testing.T) {
	for _, s := range []StrategyState{StatePaused, StateActive, StateTerminated} {
		if !s.Valid() {
			t.Fatalf("state %s invalid", s)
		}
	}
	if StrategyState("running").Valid() {
		t.Fatalf("bogus state accepted")
	}
	if _, ok := ParseStrategyType(" Lending "); !ok {
		t.Fatalf("lending did not parse")
	}
	if _, ok := ParseStrategyType("hodl"); ok {
		t.Fatalf("bogus type parsed")
	}
}
