package models

import "errors"

type PayerKind string

const (
	PayerGuest PayerKind = "guest"
	PayerUser  PayerKind = "user"
)

var ErrInvalidPayer = errors.New("exactly one of guest or user must be provided")

// Payer is either a guest or a registered user, never both.
type Payer struct {
	Kind PayerKind `json:"kind"`
	ID   string    `json:"id"`
}

func (p Payer) IsZero() bool {
	return p.Kind == "" && p.ID == ""
}

// NewPayer requires exactly one of guestID and userID.
func NewPayer(guestID, userID string) (Payer, error) {
	switch {
	case guestID != "" && userID == "":
		return Payer{Kind: PayerGuest, ID: guestID}, nil
	case userID != "" && guestID == "":
		return Payer{Kind: PayerUser, ID: userID}, nil
	default:
		return Payer{}, ErrInvalidPayer
	}
}

// OptionalPayer is NewPayer that also accepts neither id.
func OptionalPayer(guestID, userID string) (Payer, error) {
	if guestID == "" && userID == "" {
		return Payer{}, nil
	}
	return NewPayer(guestID, userID)
}
