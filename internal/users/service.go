package users

import (
	"context"
	"fmt"

	"github.com/abex/clubes-abex/pkg/db/models"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SubscriptionCanceller ends a user's active subscription inside a caller's transaction.
type SubscriptionCanceller interface {
	CancelActiveTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

// Service exposes account-level operations for members.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// ServiceParams groups dependencies for the user service.
type ServiceParams struct {
	Repo              Repository
	Subscriptions     SubscriptionCanceller
	TransactionRunner txRunner
}

type service struct {
	repo          Repository
	subscriptions SubscriptionCanceller
	tx            txRunner
}

// NewService builds the user service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repo required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription canceller required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:          params.Repo,
		subscriptions: params.Subscriptions,
		tx:            params.TransactionRunner,
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user, nil
}

// DeleteAccount cancels any active subscription and removes the user record.
func (s *service) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if user == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		if err := s.subscriptions.CancelActiveTx(ctx, tx, userID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
		}
		return nil
	})
}
