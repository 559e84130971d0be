package plans

import (
	"context"
	"fmt"
	"strings"

	"github.com/abex/clubes-abex/pkg/db/models"
	dbtypes "github.com/abex/clubes-abex/pkg/db/types"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service exposes the plan catalog.
type Service interface {
	List(ctx context.Context, activeOnly bool) ([]models.Plan, error)
	Get(ctx context.Context, id uuid.UUID, activeOnly bool) (*models.Plan, error)
	Create(ctx context.Context, input PlanInput) (*models.Plan, error)
	Update(ctx context.Context, id uuid.UUID, input PlanInput) (*models.Plan, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds the plan catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("plans repo required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]models.Plan, error) {
	plans, err := s.repo.List(ctx, ListQuery{ActiveOnly: activeOnly})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	return plans, nil
}

// Get loads a plan. Inactive plans are hidden when activeOnly is set.
func (s *service) Get(ctx context.Context, id uuid.UUID, activeOnly bool) (*models.Plan, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	if plan == nil || (activeOnly && !plan.Active) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return plan, nil
}

func (s *service) Create(ctx context.Context, input PlanInput) (*models.Plan, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	plan := &models.Plan{Active: true}
	applyInput(plan, input)
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create plan")
	}
	return plan, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input PlanInput) (*models.Plan, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	plan, err := s.Get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	applyInput(plan, input)
	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update plan")
	}
	return plan, nil
}

// Delete removes a plan nobody is subscribed to. Plans with pending or active
// subscriptions must be deactivated instead.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id, false); err != nil {
		return err
	}
	live, err := s.repo.CountLiveSubscriptions(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count plan subscriptions")
	}
	if live > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "plan has live subscriptions; deactivate it instead")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete plan")
	}
	return nil
}

func validateInput(input PlanInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.MonthlyPrice != nil && input.MonthlyPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "monthlyPrice must not be negative")
	}
	if input.AnnualPrice != nil && input.AnnualPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "annualPrice must not be negative")
	}
	if input.TrialDays < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "trialDays must not be negative")
	}
	if !hasPositive(input.Price, input.MonthlyPrice, input.AnnualPrice) && input.TrialDays == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan needs a price or a trial")
	}
	return nil
}

func hasPositive(price decimal.Decimal, others ...*decimal.Decimal) bool {
	if price.IsPositive() {
		return true
	}
	for _, other := range others {
		if other != nil && other.IsPositive() {
			return true
		}
	}
	return false
}

func applyInput(plan *models.Plan, input PlanInput) {
	plan.Name = strings.TrimSpace(input.Name)
	plan.Description = strings.TrimSpace(input.Description)
	plan.Price = input.Price.Round(2)
	plan.MonthlyPrice = roundPtr(input.MonthlyPrice)
	plan.AnnualPrice = roundPtr(input.AnnualPrice)
	features := make(dbtypes.StringArray, 0, len(input.Features))
	for _, feature := range input.Features {
		if trimmed := strings.TrimSpace(feature); trimmed != "" {
			features = append(features, trimmed)
		}
	}
	plan.Features = features
	plan.TrialDays = input.TrialDays
	if input.Active != nil {
		plan.Active = *input.Active
	}
}

func roundPtr(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	rounded := value.Round(2)
	return &rounded
}
