package reports_test

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/models/reports"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var dbSeq int64

func setupReportDB(t *testing.T) context.Context {
	t.Helper()
	n := atomic.AddInt64(&dbSeq, 1)
	conn, err := config.OpenSQLite(fmt.Sprintf("file:reports_test_%d?mode=memory&cache=shared", n))
	require.NoError(t, err)
	config.UseDB(conn)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, models.MigrateTable())
	return utils.SetOwnerIdInContext(context.Background(), 1)
}

func ptr[T any](v T) *T {
	return &v
}

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func seedDeals(t *testing.T, ctx context.Context) {
	t.Helper()
	for _, in := range []*models.NewDeal{
		{ProjectName: ptr("A"), FullSongValue: money("1000"), Splits: ptr("Our: 50%")},
		{ProjectName: ptr("B"), Status: ptr("quoted"), FullSongValue: money("400"), Splits: ptr("Our: 25%")},
		{ProjectName: ptr("C"), Status: ptr("completed"), OurFee: money("300"), OurRecordingFee: money("50")},
	} {
		_, err := models.CreateDeal(ctx, in)
		require.NoError(t, err)
	}
}

func TestGetDealPipeline_AllStatusesInOrder(t *testing.T) {
	ctx := setupReportDB(t)
	seedDeals(t, ctx)
	_, err := models.CreateDeal(utils.SetOwnerIdInContext(context.Background(), 2), &models.NewDeal{ProjectName: ptr("Not mine"), FullSongValue: money("9999")})
	require.NoError(t, err)

	rows, err := reports.GetDealPipeline(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 8)
	assert.Equal(t, models.DealStatusNewRequest, rows[0].Status)
	assert.Equal(t, "New Request", rows[0].Label)
	assert.Equal(t, int64(1), rows[0].Count)
	assert.True(t, rows[0].OurFee.Equal(decimal.NewFromInt(500)), "ourFee %s", rows[0].OurFee)
	assert.Equal(t, int64(1), rows[2].Count)
	assert.True(t, rows[2].FullSongValue.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, int64(0), rows[3].Count)
	assert.True(t, rows[3].OurFee.IsZero())
	assert.Equal(t, int64(1), rows[7].Count)
}

func TestGetSummary(t *testing.T) {
	ctx := setupReportDB(t)
	seedDeals(t, ctx)

	past := models.NewMyDate(time.Now().AddDate(0, 0, -2)).String()
	for _, in := range []*models.NewPayment{
		{Amount: money("100"), Status: ptr("paid")},
		{Amount: money("40.5"), DueDate: ptr(past)},
		{Amount: money("10")},
	} {
		_, err := models.CreatePayment(ctx, in)
		require.NoError(t, err)
	}
	for _, in := range []*models.NewPitch{
		{CustomDealName: ptr("x")},
		{CustomDealName: ptr("y"), Status: ptr("responded")},
	} {
		_, err := models.CreatePitch(ctx, in)
		require.NoError(t, err)
	}

	summary, err := reports.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.DealCount)
	assert.Equal(t, int64(2), summary.ActiveDeals)
	assert.True(t, summary.TotalOurFees.Equal(decimal.NewFromInt(950)), "fees %s", summary.TotalOurFees)
	assert.True(t, summary.PaidAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.OutstandingAmount.Equal(decimal.RequireFromString("50.5")))
	assert.Equal(t, 1, summary.OverdueCount)
	assert.Equal(t, int64(1), summary.PitchesByStatus[models.PitchStatusPending])
	assert.Equal(t, int64(1), summary.PitchesByStatus[models.PitchStatusResponded])
	assert.Equal(t, int64(0), summary.PitchesByStatus[models.PitchStatusNoResponse])
}

func TestReportCache_ServesAndInvalidates(t *testing.T) {
	ctx := setupReportDB(t)
	mr := miniredis.RunT(t)
	config.UseRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { config.UseRedis(nil) })
	t.Setenv("ENABLE_REPORT_CACHE", "true")

	_, err := models.CreateDeal(ctx, &models.NewDeal{ProjectName: ptr("First")})
	require.NoError(t, err)
	summary, err := reports.GetSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), summary.DealCount)
	assert.True(t, mr.Exists("report:1:summary"))

	_, err = models.CreateDeal(ctx, &models.NewDeal{ProjectName: ptr("Second")})
	require.NoError(t, err)
	summary, err = reports.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.DealCount, "cached summary expected")

	require.NoError(t, reports.InvalidateReports(ctx, 1))
	summary, err = reports.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.DealCount)
}

func TestIncomeWorkbook_TwoSheets(t *testing.T) {
	share := decimal.RequireFromString("120.5")
	report := models.BuildIncomeReport([]*models.Deal{{
		ID:               7,
		ProjectName:      "Trailer",
		FullSongValue:    decimal.NewFromInt(1000),
		FullRecordingFee: decimal.NewFromInt(200),
		ComposerPublishers: []models.ComposerPublisher{
			{Composer: "Jonas", Publisher: "Own", PublishingOwnership: decimal.NewFromInt(50), IsMine: true, JonasShare: &share},
		},
		ArtistLabels: []models.ArtistLabel{
			{Artist: "Jonas", Label: "Self", LabelOwnership: decimal.NewFromInt(100), IsMine: true},
		},
	}})

	f, err := reports.IncomeWorkbook(&report)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	read, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Publishing", "Recording"}, read.GetSheetList())

	rows, err := read.GetRows("Publishing")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Composer", rows[0][2])
	assert.Equal(t, []string{"7", "Trailer", "Jonas", "Own", "50", "500", "120.5"}, rows[1][:7])
	assert.Equal(t, "Total", rows[2][5])
	assert.Equal(t, "120.5", rows[2][6])

	rows, err = read.GetRows("Recording")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "200", rows[1][5])
	assert.Equal(t, "0", rows[2][6])
}
