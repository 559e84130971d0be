package reports

import (
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
)

const dateLayout = "2006-01-02"

// resolveReportRange reads ?start=&end= (RFC3339 or YYYY-MM-DD) or
// ?preset=7d|30d|90d|365d. Both empty leaves the service default.
func resolveReportRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	query := r.URL.Query()
	rawStart := strings.TrimSpace(query.Get("start"))
	rawEnd := strings.TrimSpace(query.Get("end"))

	if rawStart != "" || rawEnd != "" {
		end := now
		if rawEnd != "" {
			parsed, err := parseBound(rawEnd)
			if err != nil {
				return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid end")
			}
			end = parsed
		}
		if rawStart == "" {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "start is required with end")
		}
		start, err := parseBound(rawStart)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid start")
		}
		return start, end, nil
	}

	preset := strings.ToLower(strings.TrimSpace(query.Get("preset")))
	if preset == "" {
		return time.Time{}, time.Time{}, nil
	}
	days, ok := presetDays[preset]
	if !ok {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid preset")
	}
	return now.AddDate(0, 0, -days), now, nil
}

var presetDays = map[string]int{
	"7d":   7,
	"30d":  30,
	"90d":  90,
	"365d": 365,
}

func parseBound(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
