package loyalty

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-restaurant/internal/models"

	"github.com/uptrace/bun"
)

var ErrAccountNotFound = errors.New("loyalty account not found")

type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	GetAccountByUserID(ctx context.Context, userID string) (*models.LoyaltyAccount, error)
	ListAccounts(ctx context.Context) ([]*models.LoyaltyAccount, error)
	CreateAccount(ctx context.Context, account *models.LoyaltyAccount) error
	AddPoints(ctx context.Context, userID string, points int64) error
	DeductPoints(ctx context.Context, userID string, points int64) (bool, error)
	HasOrderCredit(ctx context.Context, orderID string) (bool, error)
	InsertTransaction(ctx context.Context, tx *models.LoyaltyTransaction) error
	ListTransactions(ctx context.Context, userID string) ([]*models.LoyaltyTransaction, error)
}

// BunStore keeps accounts and the points ledger in SQL.
type BunStore struct {
	Bun bun.IDB
}

func NewBunStore(idb bun.IDB) *BunStore {
	return &BunStore{Bun: idb}
}

func (s *BunStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &BunStore{Bun: tx})
	})
}

func (s *BunStore) GetAccountByUserID(ctx context.Context, userID string) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	err := s.Bun.NewSelect().Model(&account).Where("la.user_id = ?", userID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *BunStore) ListAccounts(ctx context.Context) ([]*models.LoyaltyAccount, error) {
	accounts := []*models.LoyaltyAccount{}
	err := s.Bun.NewSelect().Model(&accounts).Order("la.points DESC", "la.created_at ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *BunStore) CreateAccount(ctx context.Context, account *models.LoyaltyAccount) error {
	_, err := s.Bun.NewInsert().Model(account).Exec(ctx)
	return err
}

func (s *BunStore) AddPoints(ctx context.Context, userID string, points int64) error {
	res, err := s.Bun.NewUpdate().
		Model((*models.LoyaltyAccount)(nil)).
		Set("points = points + ?", points).
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// DeductPoints subtracts only when the balance covers it; false means it did not.
func (s *BunStore) DeductPoints(ctx context.Context, userID string, points int64) (bool, error) {
	res, err := s.Bun.NewUpdate().
		Model((*models.LoyaltyAccount)(nil)).
		Set("points = points - ?", points).
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id = ?", userID).
		Where("points >= ?", points).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *BunStore) HasOrderCredit(ctx context.Context, orderID string) (bool, error) {
	return s.Bun.NewSelect().
		Model((*models.LoyaltyTransaction)(nil)).
		Where("lt.order_id = ?", orderID).
		Exists(ctx)
}

func (s *BunStore) InsertTransaction(ctx context.Context, tx *models.LoyaltyTransaction) error {
	_, err := s.Bun.NewInsert().Model(tx).Exec(ctx)
	return err
}

func (s *BunStore) ListTransactions(ctx context.Context, userID string) ([]*models.LoyaltyTransaction, error) {
	txs := []*models.LoyaltyTransaction{}
	err := s.Bun.NewSelect().
		Model(&txs).
		Where("lt.user_id = ?", userID).
		Order("lt.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return txs, nil
}
