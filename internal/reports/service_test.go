package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abex/clubes-abex/pkg/db/dbtest"
	"github.com/abex/clubes-abex/pkg/db/models"
	"github.com/abex/clubes-abex/pkg/enums"
	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var reportNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, conn *gorm.DB) {
	t.Helper()
	ctx := context.Background()
	db := conn.WithContext(ctx)

	ana := &models.User{Name: "Ana", Email: "ana@example.com", CreatedAt: reportNow.AddDate(0, -3, 0)}
	bia := &models.User{Name: "Bia", Email: "bia@example.com", CreatedAt: reportNow.AddDate(0, 0, -2)}
	require.NoError(t, db.Create(ana).Error)
	require.NoError(t, db.Create(bia).Error)

	gold := &models.Plan{Name: "Gold", Price: decimal.RequireFromString("29.00"), Active: true}
	silver := &models.Plan{Name: "Silver", Price: decimal.RequireFromString("19.00"), Active: true}
	require.NoError(t, db.Create(gold).Error)
	require.NoError(t, db.Create(silver).Error)

	require.NoError(t, db.Create(&models.Subscription{
		UserID: ana.ID, PlanID: gold.ID, Status: enums.SubscriptionStatusActive, Billing: enums.BillingCycleAnnual,
		StartDate: reportNow.AddDate(0, -1, 0), EndDate: reportNow.AddDate(0, 11, 0),
	}).Error)
	require.NoError(t, db.Create(&models.Subscription{
		UserID: bia.ID, PlanID: gold.ID, Status: enums.SubscriptionStatusActive, Billing: enums.BillingCycleMonthly,
		StartDate: reportNow.AddDate(0, 0, -2), EndDate: reportNow.AddDate(0, 1, -2),
	}).Error)
	require.NoError(t, db.Create(&models.Subscription{
		UserID: bia.ID, PlanID: silver.ID, Status: enums.SubscriptionStatusCancelled, Billing: enums.BillingCycleMonthly,
		StartDate: reportNow.AddDate(0, -2, 0), EndDate: reportNow.AddDate(0, -1, 0),
	}).Error)

	paidA := reportNow.AddDate(0, 0, -2)
	paidB := reportNow.AddDate(0, 0, -1)
	paidOld := reportNow.AddDate(0, -2, 0)
	payments := []models.Payment{
		{UserID: ana.ID, PlanID: gold.ID, Amount: decimal.RequireFromString("290.00"), Currency: "BRL", Status: enums.PaymentStatusApproved, PaidAt: &paidA, CreatedAt: paidA},
		{UserID: bia.ID, PlanID: gold.ID, Amount: decimal.RequireFromString("29.00"), Currency: "BRL", Status: enums.PaymentStatusApproved, PaidAt: &paidB, CreatedAt: paidB},
		{UserID: bia.ID, PlanID: gold.ID, Amount: decimal.RequireFromString("29.00"), Currency: "BRL", Status: enums.PaymentStatusRejected, CreatedAt: paidB},
		{UserID: bia.ID, PlanID: silver.ID, Amount: decimal.RequireFromString("19.00"), Currency: "BRL", Status: enums.PaymentStatusApproved, PaidAt: &paidOld, CreatedAt: paidOld},
	}
	for i := range payments {
		require.NoError(t, db.Create(&payments[i]).Error)
	}

	require.NoError(t, db.Create(&models.Content{Title: "Intro", Type: enums.ContentTypeVideo, Restricted: true, ViewCount: 12}).Error)
	require.NoError(t, db.Create(&models.Content{Title: "Guide", Type: enums.ContentTypeArticle, ViewCount: 40}).Error)
	require.NoError(t, db.Create(&models.Content{Title: "Unseen", Type: enums.ContentTypeArticle}).Error)
}

func TestQueryAggregatesDashboard(t *testing.T) {
	conn := dbtest.Open(t)
	seed(t, conn)
	svc, err := NewService(NewRepository(conn), func() time.Time { return reportNow })
	require.NoError(t, err)

	resp, err := svc.Query(context.Background(), Request{})
	require.NoError(t, err)

	assert.Equal(t, reportNow.Add(-defaultWindow), resp.Start)
	assert.Equal(t, int64(2), resp.TotalUsers)
	assert.Equal(t, int64(1), resp.NewUsers)
	assert.Equal(t, int64(2), resp.ActiveSubscriptions)
	assert.Equal(t, []LabelCount{{Label: "Gold", Count: 2}}, resp.ActiveByPlan)
	assert.Equal(t, []LabelCount{{Label: "annual", Count: 1}, {Label: "monthly", Count: 1}}, resp.ActiveByBilling)
	assert.Equal(t, []LabelCount{{Label: "approved", Count: 2}, {Label: "rejected", Count: 1}}, resp.PaymentsByStatus)

	require.Len(t, resp.Revenue, 1)
	assert.Equal(t, CurrencyTotal{Currency: "BRL", Amount: "319.00", Payments: 2}, resp.Revenue[0])
	assert.Equal(t, []RevenuePoint{
		{Date: "2024-06-28", Currency: "BRL", Amount: "290.00"},
		{Date: "2024-06-29", Currency: "BRL", Amount: "29.00"},
	}, resp.RevenueSeries)

	require.Len(t, resp.TopContent, 2)
	assert.Equal(t, "Guide", resp.TopContent[0].Title)
	assert.Equal(t, int64(40), resp.TopContent[0].Views)
}

func TestQueryRejectsInvalidWindow(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)), func() time.Time { return reportNow })
	require.NoError(t, err)

	_, err = svc.Query(context.Background(), Request{Start: reportNow, End: reportNow.Add(-time.Hour)})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Query(context.Background(), Request{Start: reportNow.AddDate(-2, 0, 0), End: reportNow})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

type failingRepo struct{ Repository }

func (failingRepo) CountUsers(context.Context, *time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func TestQueryReturnsDependencyErrorOnFailure(t *testing.T) {
	svc, err := NewService(failingRepo{NewRepository(dbtest.Open(t))}, func() time.Time { return reportNow })
	require.NoError(t, err)

	_, err = svc.Query(context.Background(), Request{})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}
