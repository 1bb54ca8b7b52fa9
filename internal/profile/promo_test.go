package profile

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestClaimPromo(t *testing.T) {
	now := time.Date(2025, 6, 1, 15, 4, 0, 0, time.UTC) // 3:04 PM

	s := DefaultStats()
	start := s.Balance

	// Two wrong codes in a row: no state change either time.
	for i := 0; i < 2; i++ {
		if err := s.ClaimPromo("4:05 PM", now); !errors.Is(err, ErrPromoInvalidCode) {
			t.Fatalf("attempt %d: err = %v, want ErrPromoInvalidCode", i+1, err)
		}
		if s.PromocodeUsed {
			t.Fatal("failed claim marked promo used")
		}
		if !s.Balance.Equal(start) {
			t.Fatalf("failed claim moved balance to %s", s.Balance)
		}
	}

	// Matching claim pays exactly once.
	if err := s.ClaimPromo("3:04 PM", now); err != nil {
		t.Fatalf("ClaimPromo: %v", err)
	}
	if !s.PromocodeUsed {
		t.Error("successful claim did not mark promo used")
	}
	if !s.Balance.Equal(start.Add(decimal.NewFromInt(500))) {
		t.Errorf("balance = %s, want %s", s.Balance, start.Add(decimal.NewFromInt(500)))
	}

	// Any further claim is rejected, even with the right code.
	if err := s.ClaimPromo("3:04 PM", now); !errors.Is(err, ErrPromoAlreadyUsed) {
		t.Errorf("err = %v, want ErrPromoAlreadyUsed", err)
	}
}

func TestClaimPromoFormat(t *testing.T) {
	s := DefaultStats()

	// No leading zero on the hour.
	morning := time.Date(2025, 6, 1, 9, 5, 0, 0, time.UTC)
	if err := s.ClaimPromo("09:05 AM", morning); !errors.Is(err, ErrPromoInvalidCode) {
		t.Errorf("leading-zero code accepted: %v", err)
	}
	if err := s.ClaimPromo("9:05 am", morning); err != nil {
		t.Errorf("case-insensitive match failed: %v", err)
	}
}
