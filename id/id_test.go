package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/cashledger/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"TransactionID", id.NewTransactionID, "txn_"},
		{"PaymentID", id.NewPaymentID, "pay_"},
		{"RecurrenceID", id.NewRecurrenceID, "rec_"},
		{"PartyID", id.NewPartyID, "party_"},
		{"RequestID", id.NewRequestID, "req_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"TransactionID", id.NewTransactionID, id.ParseTransactionID},
		{"PaymentID", id.NewPaymentID, id.ParsePaymentID},
		{"RecurrenceID", id.NewRecurrenceID, id.ParseRecurrenceID},
		{"PartyID", id.NewPartyID, id.ParsePartyID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed != original {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseTransactionID rejects pay_", id.NewPaymentID().String(), id.ParseTransactionID},
		{"ParsePaymentID rejects rec_", id.NewRecurrenceID().String(), id.ParsePaymentID},
		{"ParseRecurrenceID rejects party_", id.NewPartyID().String(), id.ParseRecurrenceID},
		{"ParsePartyID rejects txn_", id.NewTransactionID().String(), id.ParsePartyID},
		{"ParseTransactionID rejects garbage", "not-an-id", id.ParseTransactionID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.parseFn(tt.input); err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i != id.Nil {
		t.Error("zero-value ID should equal id.Nil")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		ID     id.ID `json:"id"`
		Parent id.ID `json:"parent"`
	}
	original := wrapper{ID: id.NewTransactionID()}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var restored wrapper
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if restored.ID != original.ID {
		t.Errorf("ID: got %q, want %q", restored.ID, original.ID)
	}
	if !restored.Parent.IsNil() {
		t.Errorf("Parent: expected nil, got %q", restored.Parent)
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewRecurrenceID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if scanErr := scanned.Scan(val); scanErr != nil {
		t.Fatalf("Scan failed: %v", scanErr)
	}
	if scanned != original {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var fromBytes id.ID
	if err := fromBytes.Scan([]byte(original.String())); err != nil {
		t.Fatalf("Scan([]byte) failed: %v", err)
	}
	if fromBytes != original {
		t.Errorf("mismatch: %q != %q", fromBytes.String(), original.String())
	}

	var nilID id.ID
	val, err = nilID.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}

	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !scanned2.IsNil() {
		t.Error("expected nil after scan of nil")
	}

	if err := scanned2.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[id.ID]bool)
	for range 100 {
		i := id.NewPaymentID()
		if seen[i] {
			t.Fatalf("duplicate ID generated: %q", i)
		}
		seen[i] = true
	}
}
