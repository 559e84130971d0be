package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abex/clubes-abex/internal/users"
	"github.com/abex/clubes-abex/pkg/db/models"
	dbtypes "github.com/abex/clubes-abex/pkg/db/types"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/pagination"
	"github.com/google/uuid"
)

// EntitlementChecker answers whether a user holds a subscription covering now.
type EntitlementChecker interface {
	HasEntitlement(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)
}

// Service gates content behind subscriptions and manages the catalog.
type Service interface {
	HasAccess(ctx context.Context, item *models.Content, userID uuid.UUID, now time.Time) (bool, error)
	List(ctx context.Context, userID uuid.UUID, query ListQuery) ([]Item, *pagination.Cursor, error)
	View(ctx context.Context, userID, contentID uuid.UUID) (*Item, error)
	AddFavorite(ctx context.Context, userID, contentID uuid.UUID) error
	RemoveFavorite(ctx context.Context, userID, contentID uuid.UUID) error
	Favorites(ctx context.Context, userID uuid.UUID) ([]Item, error)
	AdminList(ctx context.Context, query ListQuery) ([]models.Content, *pagination.Cursor, error)
	Create(ctx context.Context, input Input) (*models.Content, error)
	Update(ctx context.Context, id uuid.UUID, input Input) (*models.Content, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ServiceParams groups dependencies for the content service.
type ServiceParams struct {
	Repo         Repository
	Users        users.Repository
	Entitlements EntitlementChecker
	Clock        func() time.Time
}

type service struct {
	repo         Repository
	users        users.Repository
	entitlements EntitlementChecker
	now          func() time.Time
}

// NewService builds the content service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("content repo required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repo required")
	}
	if params.Entitlements == nil {
		return nil, fmt.Errorf("entitlement checker required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:         params.Repo,
		users:        params.Users,
		entitlements: params.Entitlements,
		now:          func() time.Time { return clock().UTC() },
	}, nil
}

// HasAccess is true for open content, otherwise only with a subscription
// whose window covers now.
func (s *service) HasAccess(ctx context.Context, item *models.Content, userID uuid.UUID, now time.Time) (bool, error) {
	if item == nil {
		return false, nil
	}
	if !item.Restricted {
		return true, nil
	}
	return s.entitlements.HasEntitlement(ctx, userID, now)
}

// List pages content and flags items the user cannot open.
func (s *service) List(ctx context.Context, userID uuid.UUID, query ListQuery) ([]Item, *pagination.Cursor, error) {
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list content")
	}
	items, err := s.decorate(ctx, userID, rows)
	if err != nil {
		return nil, nil, err
	}
	return items, next, nil
}

// View returns the content and counts the view. Locked content yields Forbidden.
func (s *service) View(ctx context.Context, userID, contentID uuid.UUID) (*Item, error) {
	row, err := s.load(ctx, contentID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	allowed, err := s.HasAccess(ctx, row, userID, now)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "an active subscription is required")
	}
	if err := s.repo.RecordView(ctx, row.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record content view")
	}
	row.ViewCount++
	row.LastViewedAt = &now

	favorites, err := s.favoriteIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Item{Content: *row, Favorite: favorites.Contains(row.ID)}, nil
}

func (s *service) AddFavorite(ctx context.Context, userID, contentID uuid.UUID) error {
	if _, err := s.load(ctx, contentID); err != nil {
		return err
	}
	favorites, err := s.favoriteIDs(ctx, userID)
	if err != nil {
		return err
	}
	if favorites.Contains(contentID) {
		return nil
	}
	if err := s.users.UpdateFavorites(ctx, userID, favorites.With(contentID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save favorites")
	}
	return nil
}

func (s *service) RemoveFavorite(ctx context.Context, userID, contentID uuid.UUID) error {
	favorites, err := s.favoriteIDs(ctx, userID)
	if err != nil {
		return err
	}
	if !favorites.Contains(contentID) {
		return nil
	}
	if err := s.users.UpdateFavorites(ctx, userID, favorites.Without(contentID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save favorites")
	}
	return nil
}

func (s *service) Favorites(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	favorites, err := s.favoriteIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.FindByIDs(ctx, favorites)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load favorites")
	}
	return s.decorate(ctx, userID, rows)
}

func (s *service) AdminList(ctx context.Context, query ListQuery) ([]models.Content, *pagination.Cursor, error) {
	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list content")
	}
	return rows, next, nil
}

func (s *service) Create(ctx context.Context, input Input) (*models.Content, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	row := &models.Content{Restricted: true}
	applyInput(row, input)
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create content")
	}
	return row, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input Input) (*models.Content, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	applyInput(row, input)
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update content")
	}
	return row, nil
}

// Delete removes the content and drops it from every favorites list.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete content")
	}
	if err := s.users.RemoveFavoriteFromAll(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "prune favorites")
	}
	return nil
}

func (s *service) decorate(ctx context.Context, userID uuid.UUID, rows []models.Content) ([]Item, error) {
	entitled, err := s.entitlements.HasEntitlement(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	favorites, err := s.favoriteIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, Item{
			Content:  row,
			Locked:   row.Restricted && !entitled,
			Favorite: favorites.Contains(row.ID),
		})
	}
	return items, nil
}

func (s *service) favoriteIDs(ctx context.Context, userID uuid.UUID) (dbtypes.UUIDArray, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
	}
	return user.FavoriteContentIDs, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Content, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load content")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "content not found")
	}
	return row, nil
}

func validateInput(input Input) error {
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid content type %q", input.Type)
	}
	return nil
}

func applyInput(row *models.Content, input Input) {
	row.Title = strings.TrimSpace(input.Title)
	row.Description = strings.TrimSpace(input.Description)
	row.Type = input.Type
	row.URL = input.URL
	if input.Restricted != nil {
		row.Restricted = *input.Restricted
	}
	row.PlanID = input.PlanID
}
