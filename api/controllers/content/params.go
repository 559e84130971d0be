package content

import (
	"net/http"

	"github.com/abex/clubes-abex/api/validators"
	contentsvc "github.com/abex/clubes-abex/internal/content"
	"github.com/abex/clubes-abex/pkg/enums"
	"github.com/abex/clubes-abex/pkg/pagination"
)

const contentIDParam = "contentId"

type listResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}

func newListResponse[T any](items []T, next *pagination.Cursor) listResponse[T] {
	resp := listResponse[T]{Items: items}
	if next != nil {
		resp.NextCursor = pagination.EncodeCursor(*next)
	}
	return resp
}

// parseListQuery reads ?type=&restricted=&limit=&cursor=.
func parseListQuery(r *http.Request) (contentsvc.ListQuery, error) {
	q := validators.Query(r)
	query := contentsvc.ListQuery{
		Limit:      q.Int("limit", pagination.DefaultLimit, 1, pagination.MaxLimit),
		Type:       validators.QueryValue(q, "type", enums.ParseContentType),
		Restricted: q.Bool("restricted"),
	}
	cursor := validators.QueryValue(q, "cursor", pagination.ParseCursor)
	if err := q.Err(); err != nil {
		return query, err
	}
	if cursor != nil {
		query.Cursor = *cursor
	}
	return query, nil
}
