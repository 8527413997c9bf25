package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/arvhn/tally/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestValidateSplits(t *testing.T) {
	tests := []struct {
		name    string
		total   string
		splits  []models.Split
		wantErr bool
	}{
		{
			name:  "even split",
			total: "30.00",
			splits: []models.Split{
				{MemberID: "alice", Amount: dec("10.00")},
				{MemberID: "bob", Amount: dec("10.00")},
				{MemberID: "charlie", Amount: dec("10.00")},
			},
		},
		{
			name:  "uneven split with cents",
			total: "10.00",
			splits: []models.Split{
				{MemberID: "alice", Amount: dec("3.33")},
				{MemberID: "bob", Amount: dec("3.33")},
				{MemberID: "charlie", Amount: dec("3.34")},
			},
		},
		{
			name:  "zero share allowed",
			total: "20.00",
			splits: []models.Split{
				{MemberID: "alice", Amount: dec("20.00")},
				{MemberID: "bob", Amount: dec("0")},
			},
		},
		{
			name:    "no splits",
			total:   "10.00",
			splits:  nil,
			wantErr: true,
		},
		{
			name:  "zero total",
			total: "0",
			splits: []models.Split{
				{MemberID: "alice", Amount: dec("0")},
			},
			wantErr: true,
		},
		{
			name:  "negative total",
			total: "-5.00",
			splits: []models.Split{
				{MemberID: "alice", Amount: dec("-5.00")},
			},
			wantErr: true,
		},
		{
			name:  "negative share",
			total: "10.00",
			splits: []models.Split{
				{MemberID: "alice", Amount: dec("15.00")},
				{MemberID: "bob", Amount: dec("-5.00")},
			},
			wantErr: true,
		},
		{
			name:  "sum off by a cent",
			total: "10.00",
			splits: []models.Split{
				{MemberID: "alice", Amount: dec("5.00")},
				{MemberID: "bob", Amount: dec("4.99")},
			},
			wantErr: true,
		},
		{
			name:  "duplicate member",
			total: "10.00",
			splits: []models.Split{
				{MemberID: "alice", Amount: dec("5.00")},
				{MemberID: "alice", Amount: dec("5.00")},
			},
			wantErr: true,
		},
		{
			name:  "empty member identifier",
			total: "10.00",
			splits: []models.Split{
				{MemberID: "", Amount: dec("10.00")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSplits(dec(tt.total), tt.splits)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSplits_ScaleInsensitive(t *testing.T) {
	// 10 and 10.00 are the same amount; string formatting differences must
	// not fail validation.
	splits := []models.Split{
		{MemberID: "alice", Amount: dec("5")},
		{MemberID: "bob", Amount: dec("5.00")},
	}
	if err := ValidateSplits(dec("10.000"), splits); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidatePayer(t *testing.T) {
	splits := []models.Split{
		{MemberID: "alice", Amount: dec("5.00")},
		{MemberID: "bob", Amount: dec("5.00")},
	}

	if err := ValidatePayer("alice", splits); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidatePayer("eve", splits); err == nil {
		t.Error("expected error for payer outside the splits")
	}
	if err := ValidatePayer("", splits); err == nil {
		t.Error("expected error for empty payer")
	}
}
