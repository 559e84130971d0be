package reports

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	reportsvc "github.com/abex/clubes-abex/internal/reports"
)

type stubReportsService struct {
	req reportsvc.Request
}

func (s *stubReportsService) Query(ctx context.Context, req reportsvc.Request) (*reportsvc.Response, error) {
	s.req = req
	return &reportsvc.Response{Start: req.Start, End: req.End, TotalUsers: 3}, nil
}

func withFixedNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := timeNowUTC
	timeNowUTC = func() time.Time { return now }
	t.Cleanup(func() { timeNowUTC = prev })
}

func TestAdminReportsParsesDates(t *testing.T) {
	svc := &stubReportsService{}
	rec := httptest.NewRecorder()
	AdminReports(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/reports?start=2026-01-01&end=2026-02-01T00:00:00Z", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !svc.req.Start.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", svc.req.Start)
	}
	if !svc.req.End.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %s", svc.req.End)
	}
}

func TestAdminReportsPreset(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	withFixedNow(t, now)
	svc := &stubReportsService{}

	rec := httptest.NewRecorder()
	AdminReports(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/reports?preset=7d", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !svc.req.End.Equal(now) || !svc.req.Start.Equal(now.AddDate(0, 0, -7)) {
		t.Fatalf("unexpected window %s - %s", svc.req.Start, svc.req.End)
	}
}

func TestAdminReportsDefaultLeavesWindowToService(t *testing.T) {
	svc := &stubReportsService{}
	rec := httptest.NewRecorder()
	AdminReports(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/reports", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !svc.req.Start.IsZero() || !svc.req.End.IsZero() {
		t.Fatalf("expected zero window, got %+v", svc.req)
	}
}

func TestAdminReportsRejectsBadInput(t *testing.T) {
	for _, target := range []string{
		"/api/admin/reports?start=yesterday",
		"/api/admin/reports?end=2026-01-01",
		"/api/admin/reports?preset=2w",
	} {
		rec := httptest.NewRecorder()
		AdminReports(&stubReportsService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", target, rec.Code)
		}
	}
}
