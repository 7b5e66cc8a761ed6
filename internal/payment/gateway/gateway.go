// Package gateway talks to the hosted payment page provider.
package gateway

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotConfigured   = errors.New("payment gateway is not configured")
	ErrSessionNotFound = errors.New("no payment link for order code")
)

// SuccessCode is the result code of a settled transaction.
const SuccessCode = "00"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
	StatusFailed    Status = "FAILED"
)

// Failed reports statuses after which the link can never be paid.
func (s Status) Failed() bool {
	return s == StatusFailed || s == StatusCancelled || s == StatusExpired
}

type LinkItem struct {
	Name     string
	Quantity int
	Price    int64
}

type LinkRequest struct {
	OrderCode   int64
	Amount      int64
	Description string
	ReturnURL   string
	CancelURL   string
	Items       []LinkItem
}

type Link struct {
	CheckoutURL string
	OrderCode   int64
	SessionID   string
}

// Info is the gateway's view of a payment link.
type Info struct {
	OrderCode     int64
	Amount        int64
	Status        Status
	Code          string
	TransactionAt *time.Time
	Channel       string
}

// Succeeded is true when the transaction settled and did not end in a failure status.
func (i *Info) Succeeded() bool {
	settled := i.TransactionAt != nil || i.Code == SuccessCode
	return settled && !i.Status.Failed()
}

type Gateway interface {
	CreateLink(ctx context.Context, req LinkRequest) (*Link, error)
	GetInfo(ctx context.Context, orderCode int64) (*Info, error)
}

// Error carries a message reported by the provider.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return "gateway: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
