package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/abex/clubes-abex/api/middleware"
	contentsvc "github.com/abex/clubes-abex/internal/content"
	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/pagination"
)

type stubContentService struct {
	contentsvc.Service

	items     []contentsvc.Item
	next      *pagination.Cursor
	query     contentsvc.ListQuery
	viewErr   error
	favorites map[uuid.UUID]bool
}

func (s *stubContentService) List(ctx context.Context, userID uuid.UUID, query contentsvc.ListQuery) ([]contentsvc.Item, *pagination.Cursor, error) {
	s.query = query
	return s.items, s.next, nil
}

func (s *stubContentService) View(ctx context.Context, userID, contentID uuid.UUID) (*contentsvc.Item, error) {
	if s.viewErr != nil {
		return nil, s.viewErr
	}
	url := "https://cdn.example.com/v.mp4"
	return &contentsvc.Item{Content: models.Content{ID: contentID, Title: "Video", Restricted: true, URL: &url}}, nil
}

func (s *stubContentService) AddFavorite(ctx context.Context, userID, contentID uuid.UUID) error {
	if s.favorites == nil {
		s.favorites = map[uuid.UUID]bool{}
	}
	s.favorites[contentID] = true
	return nil
}

func (s *stubContentService) RemoveFavorite(ctx context.Context, userID, contentID uuid.UUID) error {
	delete(s.favorites, contentID)
	return nil
}

func memberRequest(method, target string, userID uuid.UUID, contentID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := middleware.WithUserID(req.Context(), userID.String())
	if contentID != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add(contentIDParam, contentID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func TestMemberListHidesLockedURLs(t *testing.T) {
	url := "https://cdn.example.com/secret.pdf"
	next := &pagination.Cursor{CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), ID: uuid.New()}
	svc := &stubContentService{
		items: []contentsvc.Item{{Content: models.Content{ID: uuid.New(), Restricted: true, URL: &url}, Locked: true}},
		next:  next,
	}

	req := memberRequest(http.MethodGet, "/api/member/content?type=video&restricted=true&limit=10", uuid.New(), "")
	rec := httptest.NewRecorder()
	MemberList(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.query.Limit != 10 || svc.query.Type == nil || *svc.query.Type != enums.ContentTypeVideo {
		t.Fatalf("unexpected query %+v", svc.query)
	}
	if svc.query.Restricted == nil || !*svc.query.Restricted {
		t.Fatalf("expected restricted filter")
	}

	var payload struct {
		Data struct {
			Items      []contentsvc.ItemDTO `json:"items"`
			NextCursor string               `json:"nextCursor"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Data.Items) != 1 || !payload.Data.Items[0].Locked || payload.Data.Items[0].URL != nil {
		t.Fatalf("locked item must not expose its url: %+v", payload.Data.Items)
	}
	if payload.Data.NextCursor != pagination.EncodeCursor(*next) {
		t.Fatalf("unexpected cursor %q", payload.Data.NextCursor)
	}
}

func TestMemberListRejectsUnknownType(t *testing.T) {
	req := memberRequest(http.MethodGet, "/api/member/content?type=podcast", uuid.New(), "")
	rec := httptest.NewRecorder()
	MemberList(&stubContentService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestMemberViewLockedIsForbidden(t *testing.T) {
	svc := &stubContentService{viewErr: pkgerrors.New(pkgerrors.CodeForbidden, "an active subscription is required")}
	req := memberRequest(http.MethodGet, "/api/member/content/x", uuid.New(), uuid.NewString())
	rec := httptest.NewRecorder()
	MemberView(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestMemberViewReturnsURL(t *testing.T) {
	req := memberRequest(http.MethodGet, "/api/member/content/x", uuid.New(), uuid.NewString())
	rec := httptest.NewRecorder()
	MemberView(&stubContentService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var payload struct {
		Data contentsvc.ItemDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.URL == nil {
		t.Fatalf("expected url for accessible content")
	}
}

func TestFavoriteAddAndRemove(t *testing.T) {
	svc := &stubContentService{}
	contentID := uuid.New()
	userID := uuid.New()

	rec := httptest.NewRecorder()
	FavoriteAdd(svc, nil).ServeHTTP(rec, memberRequest(http.MethodPost, "/api/member/content/x/favorite", userID, contentID.String()))
	if rec.Code != http.StatusOK || !svc.favorites[contentID] {
		t.Fatalf("expected favorite added, status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	FavoriteRemove(svc, nil).ServeHTTP(rec, memberRequest(http.MethodDelete, "/api/member/content/x/favorite", userID, contentID.String()))
	if rec.Code != http.StatusOK || svc.favorites[contentID] {
		t.Fatalf("expected favorite removed, status %d", rec.Code)
	}
}
