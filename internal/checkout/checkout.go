// Package checkout creates Stripe Checkout sessions for the single storefront
// product.
package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"tekkin/internal/config"
)

var ErrNotConfigured = errors.New("stripe checkout is not configured")

// SessionCreator is the part of the Stripe client used here.
type SessionCreator interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

type Service struct {
	sessions SessionCreator
	priceID  string
	siteURL  string
}

// NewService builds a Service on a Stripe client for cfg.SecretKey. A nil
// backends uses the live Stripe API.
func NewService(cfg config.StripeConfig, siteURL string, backends *stripe.Backends) *Service {
	var sessions SessionCreator
	if cfg.SecretKey != "" {
		opts := []stripe.ClientOption{}
		if backends != nil {
			opts = append(opts, stripe.WithBackends(backends))
		}
		sessions = stripe.NewClient(cfg.SecretKey, opts...).V1CheckoutSessions
	}
	return newService(sessions, cfg.PriceID, siteURL)
}

func newService(sessions SessionCreator, priceID, siteURL string) *Service {
	return &Service{
		sessions: sessions,
		priceID:  priceID,
		siteURL:  strings.TrimRight(siteURL, "/"),
	}
}

// CreateSession opens a one-item payment session and returns its URL.
func (s *Service) CreateSession(ctx context.Context) (string, error) {
	if s.sessions == nil || s.priceID == "" {
		return "", ErrNotConfigured
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(s.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.siteURL + "/success"),
		CancelURL:  stripe.String(s.siteURL + "/cancel"),
	}
	sess, err := s.sessions.Create(ctx, params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}
