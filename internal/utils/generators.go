package utils

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"ms-restaurant/internal/apperr"
)

const (
	MinOrderCode int64 = 100000
	MaxOrderCode int64 = 999999
)

// GenerateOrderCode returns a random six digit gateway order code.
func GenerateOrderCode() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(MaxOrderCode-MinOrderCode+1))
	if err != nil {
		return 0, err
	}
	return MinOrderCode + n.Int64(), nil
}

func NewID() string {
	return uuid.NewString()
}

// ParseID validates an id and returns its canonical form.
func ParseID(raw, what string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperr.BadRequest("Invalid %s ID format", what)
	}
	return id.String(), nil
}

// Paginate clamps page and limit and returns the row offset.
func Paginate(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}

func TotalPages(total, limit int) int {
	if limit <= 0 || total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
