package content

import (
	"net/http"

	"github.com/abex/clubes-abex/api/controllers/membercontext"
	"github.com/abex/clubes-abex/api/responses"
	contentsvc "github.com/abex/clubes-abex/internal/content"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
)

// MemberList pages the catalog; restricted items the caller cannot open are
// returned locked, without their URL.
func MemberList(svc contentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "content service unavailable"))
			return
		}
		userID, err := membercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query, err := parseListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, next, err := svc.List(r.Context(), userID, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newListResponse(contentsvc.ToDTOs(items), next))
	}
}

// MemberView opens one item. Restricted content without an active
// subscription is a 403.
func MemberView(svc contentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "content service unavailable"))
			return
		}
		userID, err := membercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contentID, err := membercontext.PathUUID(r, contentIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.View(r.Context(), userID, contentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contentsvc.ToDTO(*item))
	}
}

func FavoriteAdd(svc contentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return favoriteHandler(svc, logg, true)
}

func FavoriteRemove(svc contentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return favoriteHandler(svc, logg, false)
}

func favoriteHandler(svc contentsvc.Service, logg *logger.Logger, add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "content service unavailable"))
			return
		}
		userID, err := membercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contentID, err := membercontext.PathUUID(r, contentIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if add {
			err = svc.AddFavorite(r.Context(), userID, contentID)
		} else {
			err = svc.RemoveFavorite(r.Context(), userID, contentID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"contentId": contentID, "favorite": add})
	}
}

// Favorites lists the caller's saved items with their current lock state.
func Favorites(svc contentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "content service unavailable"))
			return
		}
		userID, err := membercontext.ResolveUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.Favorites(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contentsvc.ToDTOs(items))
	}
}
