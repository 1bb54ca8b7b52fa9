package profile

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Promo claim rejections.
var (
	ErrPromoAlreadyUsed = errors.New("profile: promocode already used")
	ErrPromoInvalidCode = errors.New("profile: invalid promocode")
)

// promoBonus is credited on a successful claim.
var promoBonus = decimal.NewFromInt(500)

// promoTimeLayout renders the wall clock as 12-hour H:MM AM/PM with no
// leading zero on the hour, which is the expected code.
const promoTimeLayout = "3:04 PM"

// ClaimPromo redeems the one-shot promo code. The code is valid iff it equals
// the current time in promoTimeLayout form. On success the bonus is credited
// and the claim is irreversibly marked used; on failure nothing changes.
func (s *Stats) ClaimPromo(code string, now time.Time) error {
	if s.PromocodeUsed {
		return ErrPromoAlreadyUsed
	}
	if strings.ToUpper(strings.TrimSpace(code)) != now.Format(promoTimeLayout) {
		return ErrPromoInvalidCode
	}
	s.Balance = s.Balance.Add(promoBonus)
	s.PromocodeUsed = true
	return nil
}
