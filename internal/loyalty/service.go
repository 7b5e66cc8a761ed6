package loyalty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-restaurant/internal/apperr"
	"ms-restaurant/internal/logger"
	"ms-restaurant/internal/models"
	"ms-restaurant/internal/utils"
)

const DefaultPointsUnit int64 = 1000

type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type Service struct {
	store      Store
	users      UserLookup
	pointsUnit int64
	log        *logger.Logger
}

func NewService(store Store, users UserLookup, pointsUnit int64, log *logger.Logger) *Service {
	if pointsUnit <= 0 {
		pointsUnit = DefaultPointsUnit
	}
	return &Service{store: store, users: users, pointsUnit: pointsUnit, log: log}
}

// CalculatePointsFromOrder awards one point per full points unit spent.
func (s *Service) CalculatePointsFromOrder(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return amount / s.pointsUnit
}

func (s *Service) CreateAccount(ctx context.Context, rawUserID string, points int64) (*models.LoyaltyAccount, error) {
	userID, err := utils.ParseID(rawUserID, "user")
	if err != nil {
		return nil, err
	}
	if points < 0 {
		return nil, apperr.BadRequest("Points cannot be negative")
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, apperr.NotFound("User not found")
	}

	if _, err := s.store.GetAccountByUserID(ctx, userID); err == nil {
		return nil, apperr.BadRequest("Loyalty account already exists for this user")
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	account := &models.LoyaltyAccount{
		ID:        utils.NewID(),
		UserID:    userID,
		Points:    points,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("create loyalty account: %w", err)
	}
	s.log.LogLoyalty("CREATE", userID, fmt.Sprintf("account opened with %d points", points))
	return account, nil
}

func (s *Service) FindAll(ctx context.Context) ([]*models.LoyaltyAccount, error) {
	return s.store.ListAccounts(ctx)
}

func (s *Service) FindByUser(ctx context.Context, rawUserID string) (*models.LoyaltyAccount, error) {
	userID, err := utils.ParseID(rawUserID, "user")
	if err != nil {
		return nil, err
	}
	account, err := s.store.GetAccountByUserID(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, apperr.NotFound("Loyalty account not found")
	}
	return account, err
}

func (s *Service) AddPoints(ctx context.Context, rawUserID string, points int64) (*models.LoyaltyAccount, error) {
	userID, err := utils.ParseID(rawUserID, "user")
	if err != nil {
		return nil, err
	}
	if err := utils.MustPositive("Points", points); err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.AddPoints(ctx, userID, points); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, s.newTransaction(userID, "", models.LoyaltyAdd, points))
	})
	if errors.Is(err, ErrAccountNotFound) {
		return nil, apperr.NotFound("Loyalty account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("add loyalty points: %w", err)
	}
	s.log.LogLoyalty("ADD", userID, fmt.Sprintf("+%d points", points))
	return s.store.GetAccountByUserID(ctx, userID)
}

func (s *Service) RedeemPoints(ctx context.Context, rawUserID string, points int64) (*models.LoyaltyAccount, error) {
	userID, err := utils.ParseID(rawUserID, "user")
	if err != nil {
		return nil, err
	}
	if err := utils.MustPositive("Points", points); err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		if _, err := tx.GetAccountByUserID(ctx, userID); err != nil {
			return err
		}
		ok, err := tx.DeductPoints(ctx, userID, points)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.BadRequest("Insufficient points to redeem")
		}
		return tx.InsertTransaction(ctx, s.newTransaction(userID, "", models.LoyaltyRedeem, -points))
	})
	if errors.Is(err, ErrAccountNotFound) {
		return nil, apperr.NotFound("Loyalty account not found")
	}
	if err != nil {
		return nil, err
	}
	s.log.LogLoyalty("REDEEM", userID, fmt.Sprintf("-%d points", points))
	return s.store.GetAccountByUserID(ctx, userID)
}

// AutoAddPointsFromOrder credits a served order's points to the user, opening an
// account if needed. Each order is credited at most once; repeats return 0.
func (s *Service) AutoAddPointsFromOrder(ctx context.Context, userID, orderID string, amount int64) (int64, error) {
	points := s.CalculatePointsFromOrder(amount)
	if points == 0 {
		s.log.Debug("LOYALTY", fmt.Sprintf("Order %s total %d earns no points", orderID, amount))
		return 0, nil
	}

	credited := points
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		done, err := tx.HasOrderCredit(ctx, orderID)
		if err != nil {
			return err
		}
		if done {
			credited = 0
			return nil
		}

		if _, err := tx.GetAccountByUserID(ctx, userID); errors.Is(err, ErrAccountNotFound) {
			now := time.Now().UTC()
			err = tx.CreateAccount(ctx, &models.LoyaltyAccount{
				ID:        utils.NewID(),
				UserID:    userID,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if err != nil {
				return fmt.Errorf("open loyalty account: %w", err)
			}
		} else if err != nil {
			return err
		}

		if err := tx.AddPoints(ctx, userID, points); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, s.newTransaction(userID, orderID, models.LoyaltyEarn, points))
	})
	if err != nil {
		return 0, fmt.Errorf("credit order %s: %w", orderID, err)
	}

	if credited == 0 {
		s.log.Info("LOYALTY", fmt.Sprintf("Order %s already credited, skipping", orderID))
	} else {
		s.log.LogLoyalty("EARN", userID, fmt.Sprintf("+%d points from order %s", points, orderID))
	}
	return credited, nil
}

func (s *Service) History(ctx context.Context, rawUserID string) ([]*models.LoyaltyTransaction, error) {
	userID, err := utils.ParseID(rawUserID, "user")
	if err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, userID)
}

func (s *Service) newTransaction(userID, orderID string, kind models.LoyaltyTxType, points int64) *models.LoyaltyTransaction {
	return &models.LoyaltyTransaction{
		ID:        utils.NewID(),
		UserID:    userID,
		OrderID:   orderID,
		Type:      kind,
		Points:    points,
		CreatedAt: time.Now().UTC(),
	}
}
