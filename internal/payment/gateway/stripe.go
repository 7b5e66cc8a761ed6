package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ms-restaurant/internal/config"
	"ms-restaurant/internal/logger"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

const (
	// Stripe accepts checkout expiry between 30 minutes and 24 hours ahead.
	minSessionTTL = 30 * time.Minute
	maxSessionTTL = 24 * time.Hour

	ChannelStripe = "stripe"
)

// checkoutSessions is the part of the Stripe client used here.
type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Expire(id string, params *stripe.CheckoutSessionExpireParams) (*stripe.CheckoutSession, error)
}

// StripeGateway issues Stripe Checkout sessions keyed by order code.
type StripeGateway struct {
	sessions checkoutSessions
	index    SessionIndex
	currency string
	ttl      time.Duration
	log      *logger.Logger
}

func NewStripeGateway(cfg config.GatewayConfig, index SessionIndex, log *logger.Logger) (*StripeGateway, error) {
	if !cfg.Enabled() {
		log.Warn("STRIPE", "STRIPE_SECRET_KEY not set, payment links disabled")
		return nil, ErrNotConfigured
	}
	sc := client.New(cfg.StripeSecretKey, nil)
	log.Info("STRIPE", "Stripe client initialized successfully")
	return newStripeGateway(sc.CheckoutSessions, index, cfg, log), nil
}

func newStripeGateway(sessions checkoutSessions, index SessionIndex, cfg config.GatewayConfig, log *logger.Logger) *StripeGateway {
	ttl := cfg.SessionTTL
	if ttl < minSessionTTL {
		ttl = minSessionTTL
	}
	if ttl > maxSessionTTL {
		ttl = maxSessionTTL
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "vnd"
	}
	return &StripeGateway{sessions: sessions, index: index, currency: currency, ttl: ttl, log: log}
}

// idempotencyKey covers the parameters that vary between links for one code,
// so a new session never replays a key Stripe saw with other values.
func idempotencyKey(orderCode, amount, expiresAt int64) string {
	return fmt.Sprintf("order-code-%d-%d-%d", orderCode, amount, expiresAt)
}

// CreateLink returns the code's open checkout session when it still charges the
// requested amount. Otherwise it opens a new one and points the code at it.
func (g *StripeGateway) CreateLink(ctx context.Context, req LinkRequest) (*Link, error) {
	code := strconv.FormatInt(req.OrderCode, 10)

	existing, err := g.openSession(ctx, req.OrderCode)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.AmountTotal == req.Amount {
			g.log.LogPayment("LINK", code, fmt.Sprintf("reusing open checkout session %s", existing.ID))
			return &Link{CheckoutURL: existing.URL, OrderCode: req.OrderCode, SessionID: existing.ID}, nil
		}
		// the amount changed; the old link must not stay payable
		g.expire(ctx, existing.ID)
	}

	expiresAt := time.Now().Add(g.ttl).Unix()
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.ReturnURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(code),
		ExpiresAt:         stripe.Int64(expiresAt),
		LineItems:         g.lineItems(req),
		Metadata:          map[string]string{"order_code": code},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Description: stripe.String(req.Description),
			Metadata:    map[string]string{"order_code": code},
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey(req.OrderCode, req.Amount, expiresAt))

	sess, err := g.sessions.New(params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to create checkout session for order code %d: %v", req.OrderCode, err))
		return nil, wrapStripeError(err)
	}

	if err := g.index.Save(ctx, req.OrderCode, sess.ID, g.ttl); err != nil {
		return nil, fmt.Errorf("index checkout session: %w", err)
	}
	g.log.LogPayment("LINK", code, fmt.Sprintf("checkout session %s created", sess.ID))

	return &Link{CheckoutURL: sess.URL, OrderCode: req.OrderCode, SessionID: sess.ID}, nil
}

// openSession returns the indexed session for the code while it can still be paid, or nil.
func (g *StripeGateway) openSession(ctx context.Context, orderCode int64) (*stripe.CheckoutSession, error) {
	sessionID, err := g.index.Lookup(ctx, orderCode)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.sessions.Get(sessionID, params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to fetch checkout session %s: %v", sessionID, err))
		return nil, wrapStripeError(err)
	}
	if sess.Status != stripe.CheckoutSessionStatusOpen {
		return nil, nil
	}
	return sess, nil
}

func (g *StripeGateway) expire(ctx context.Context, sessionID string) {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := g.sessions.Expire(sessionID, params); err != nil {
		g.log.Warn("STRIPE", fmt.Sprintf("Failed to expire superseded checkout session %s: %v", sessionID, err))
	}
}

// lineItems lists the order lines when they add up to the amount, otherwise one line for the amount.
func (g *StripeGateway) lineItems(req LinkRequest) []*stripe.CheckoutSessionLineItemParams {
	var sum int64
	for _, it := range req.Items {
		sum += it.Price * int64(it.Quantity)
	}

	line := func(name string, price int64, qty int) *stripe.CheckoutSessionLineItemParams {
		return &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(qty)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.currency),
				UnitAmount: stripe.Int64(price),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(name),
				},
			},
		}
	}

	if len(req.Items) == 0 || sum != req.Amount {
		return []*stripe.CheckoutSessionLineItemParams{line(req.Description, req.Amount, 1)}
	}
	out := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, it := range req.Items {
		out = append(out, line(it.Name, it.Price, it.Quantity))
	}
	return out
}

func (g *StripeGateway) GetInfo(ctx context.Context, orderCode int64) (*Info, error) {
	sessionID, err := g.index.Lookup(ctx, orderCode)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")
	sess, err := g.sessions.Get(sessionID, params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to fetch checkout session %s: %v", sessionID, err))
		return nil, wrapStripeError(err)
	}

	info := &Info{
		OrderCode: orderCode,
		Amount:    sess.AmountTotal,
		Status:    sessionStatus(sess),
		Channel:   ChannelStripe,
	}
	if info.Status == StatusPaid {
		info.Code = SuccessCode
		if pi := sess.PaymentIntent; pi != nil && pi.Status == stripe.PaymentIntentStatusSucceeded && pi.Created > 0 {
			at := time.Unix(pi.Created, 0).UTC()
			info.TransactionAt = &at
		}
	}
	return info, nil
}

func sessionStatus(sess *stripe.CheckoutSession) Status {
	switch {
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return StatusPaid
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		return StatusExpired
	case sess.PaymentIntent != nil && sess.PaymentIntent.Status == stripe.PaymentIntentStatusCanceled:
		return StatusCancelled
	default:
		return StatusPending
	}
}

func wrapStripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return &Error{Message: se.Msg, Err: err}
	}
	return &Error{Message: err.Error(), Err: err}
}
