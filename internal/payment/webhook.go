package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	SignatureHeader = "Stripe-Signature"

	EventCheckoutCompleted = "checkout.session.completed"

	MetaUserID   = "userId"
	MetaCartID   = "cartId"
	MetaPlanName = "planName"
)

var ErrSignature = errors.New("invalid webhook signature")

// Event is the subset of a provider event the shop acts on.
type Event struct {
	ID              string
	Type            string
	SessionID       string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
	Metadata        map[string]string
}

type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

func (v *Verifier) Configured() bool { return v != nil && v.secret != "" }

// Parse checks the signature header against the raw body and decodes the event.
func (v *Verifier) Parse(payload []byte, header string) (*Event, error) {
	if !v.Configured() {
		return nil, ErrNotConfigured
	}
	ev, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if out.Type != EventCheckoutCompleted || ev.Data == nil {
		return out, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = s.ID
	out.AmountTotal = s.AmountTotal
	out.Currency = string(s.Currency)
	out.Metadata = s.Metadata
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out, nil
}
