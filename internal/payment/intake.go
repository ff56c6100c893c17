package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Method is a supported payment rail.
type Method string

const (
	MethodUPI    Method = "upi"
	MethodCrypto Method = "crypto"
)

var (
	ErrBelowMinimum  = errors.New("payment below the price of one credit")
	ErrUnknownMethod = errors.New("unknown payment method")
	ErrInvalidAmount = errors.New("invalid payment amount")
)

// Processor charges the player. Both rails are simulated.
type Processor interface {
	Charge(ctx context.Context, paid decimal.Decimal) error
}

// Creditor is the session's payment path; it may only increase balance.
// A reservation keeps the session idle while the charge is in flight.
type Creditor interface {
	ReserveCredit() error
	CommitCredit(amount int64) error
	CancelCredit()
}

// Receipt describes a completed purchase.
type Receipt struct {
	ID      string          `json:"id"`
	Method  Method          `json:"method"`
	Paid    decimal.Decimal `json:"paid"`
	Credits int64           `json:"credits"`
	Message string          `json:"message"`
}

// Intake converts an external currency amount into credits.
type Intake struct {
	unitPrice  decimal.Decimal
	processors map[Method]Processor
}

// New creates an intake with simulated UPI and crypto processors that
// settle after delay.
func New(unitPrice decimal.Decimal, delay time.Duration) (*Intake, error) {
	if !unitPrice.IsPositive() {
		return nil, fmt.Errorf("%w: unit price %s", ErrInvalidAmount, unitPrice)
	}
	sim := Simulated{Delay: delay}
	return &Intake{
		unitPrice: unitPrice,
		processors: map[Method]Processor{
			MethodUPI:    sim,
			MethodCrypto: sim,
		},
	}, nil
}

// UnitPrice is the external price of one credit.
func (in *Intake) UnitPrice() decimal.Decimal { return in.unitPrice }

// Quote returns floor(paid / unitPrice). Anything below one credit is
// refused.
func (in *Intake) Quote(paid decimal.Decimal) (int64, error) {
	if !paid.IsPositive() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, paid)
	}
	credits := paid.Div(in.unitPrice).Floor().IntPart()
	if credits < 1 {
		return 0, fmt.Errorf("%w: minimum payment is %s for 1 credit", ErrBelowMinimum, in.unitPrice)
	}
	return credits, nil
}

// ParseMethod accepts a method name in any case.
func ParseMethod(raw string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case MethodUPI, MethodCrypto:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, raw)
}

// Purchase reserves the session, charges the player and credits the
// session. Failures are returned to the caller only; the session is
// untouched unless the charge succeeded.
func (in *Intake) Purchase(ctx context.Context, target Creditor, method Method, paid decimal.Decimal) (Receipt, error) {
	processor, ok := in.processors[method]
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	credits, err := in.Quote(paid)
	if err != nil {
		return Receipt{}, err
	}
	if err := target.ReserveCredit(); err != nil {
		return Receipt{}, fmt.Errorf("reserve credit: %w", err)
	}
	if err := processor.Charge(ctx, paid); err != nil {
		target.CancelCredit()
		return Receipt{}, fmt.Errorf("charge via %s: %w", method, err)
	}
	if err := target.CommitCredit(credits); err != nil {
		log.Printf("[PAYMENT] Charged %s via %s but crediting failed: %v", paid, method, err)
		return Receipt{}, fmt.Errorf("credit %d: %w", credits, err)
	}

	r := Receipt{
		ID:      uuid.NewString(),
		Method:  method,
		Paid:    paid,
		Credits: credits,
		Message: successMessage(method, credits),
	}
	log.Printf("[PAYMENT] %s: %s paid via %s for %d credits", r.ID, paid, method, credits)
	return r, nil
}

func successMessage(method Method, credits int64) string {
	if method == MethodUPI {
		return fmt.Sprintf("UPI Payment successful! %d credits added to your account.", credits)
	}
	return fmt.Sprintf("Crypto payment successful! %d credits added to your account.", credits)
}

// Simulated approves every charge after Delay.
type Simulated struct {
	Delay time.Duration
}

func (s Simulated) Charge(ctx context.Context, _ decimal.Decimal) error {
	if s.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
