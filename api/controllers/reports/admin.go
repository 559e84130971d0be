package reports

import (
	"net/http"
	"time"

	"github.com/abex/clubes-abex/api/responses"
	reportsvc "github.com/abex/clubes-abex/internal/reports"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/abex/clubes-abex/pkg/logger"
)

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

// AdminReports returns the membership and revenue dashboard.
func AdminReports(svc reportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}
		start, end, err := resolveReportRange(r, timeNowUTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp, err := svc.Query(r.Context(), reportsvc.Request{Start: start, End: end})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
