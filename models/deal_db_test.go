package models_test

import (
	"errors"
	"testing"

	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func createOwnedSong(t *testing.T, ctxOwner int) *models.Song {
	t.Helper()
	song, err := models.CreateSong(ownerCtx(ctxOwner), &models.NewSong{
		Title: ptr("Midnight Drive"),
		ComposerPublishers: &[]models.ComposerPublisher{
			{Composer: "Jonas", Publisher: "Own Songs", PublishingOwnership: decimal.NewFromInt(30), IsMine: true},
			{Composer: "Mara", Publisher: "Big Pub", PublishingOwnership: decimal.NewFromInt(70)},
		},
		ArtistLabels: &[]models.ArtistLabel{
			{Artist: "Jonas", Label: "Self Released", LabelOwnership: decimal.NewFromInt(100), IsMine: true},
		},
	})
	require.NoError(t, err)
	return song
}

func TestCreateDeal_CopiesSongSnapshotAndDerivesFees(t *testing.T) {
	ctx := setupTestDB(t)
	song := createOwnedSong(t, 1)

	deal, err := models.CreateDeal(ctx, &models.NewDeal{
		ProjectName:      ptr("Night Shift S2"),
		SongId:           &song.ID,
		FullSongValue:    money("1000"),
		FullRecordingFee: money("200"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.DealStatusNewRequest, deal.Status)
	require.NotNil(t, deal.PitchedDate)
	assert.Equal(t, models.Today().String(), deal.PitchedDate.String())
	require.Len(t, deal.ComposerPublishers, 2)
	require.Len(t, deal.ArtistLabels, 1)
	assert.True(t, deal.OurFee.Equal(decimal.NewFromInt(300)), "ourFee %s", deal.OurFee)
	assert.True(t, deal.OurRecordingFee.Equal(decimal.NewFromInt(200)), "ourRecordingFee %s", deal.OurRecordingFee)

	stored, err := models.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, stored.ComposerPublishers, 2)
	assert.Equal(t, "Jonas", stored.ComposerPublishers[0].Composer)
	assert.True(t, stored.OurFee.Equal(decimal.NewFromInt(300)))
}

func TestCreateDeal_KeepsManualFeeWithoutFullFee(t *testing.T) {
	ctx := setupTestDB(t)

	deal, err := models.CreateDeal(ctx, &models.NewDeal{
		ProjectName: ptr("Indie Trailer"),
		OurFee:      money("250"),
	})
	require.NoError(t, err)
	assert.True(t, deal.OurFee.Equal(decimal.NewFromInt(250)))

	// splits change without a full fee leaves the manual fee alone
	deal, _, err = models.UpdateDeal(ctx, deal.ID, &models.NewDeal{Splits: ptr("Our: 60% / Their: 40%")})
	require.NoError(t, err)
	assert.True(t, deal.OurFee.Equal(decimal.NewFromInt(250)), "ourFee %s", deal.OurFee)

	deal, _, err = models.UpdateDeal(ctx, deal.ID, &models.NewDeal{FullSongValue: money("1000")})
	require.NoError(t, err)
	assert.True(t, deal.OurFee.Equal(decimal.NewFromInt(600)), "ourFee %s", deal.OurFee)

	stored, err := models.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.True(t, stored.OurFee.Equal(decimal.NewFromInt(600)))
}

func TestUpdateDeal_StampsStatusDateOnce(t *testing.T) {
	ctx := setupTestDB(t)
	deal, err := models.CreateDeal(ctx, &models.NewDeal{ProjectName: ptr("Ad Spot")})
	require.NoError(t, err)

	deal, previous, err := models.UpdateDeal(ctx, deal.ID, &models.NewDeal{Status: ptr("quoted")})
	require.NoError(t, err)
	assert.Equal(t, models.DealStatusNewRequest, previous)
	assert.Equal(t, models.DealStatusQuoted, deal.Status)
	require.NotNil(t, deal.QuotedDate)

	deal, _, err = models.UpdateDeal(ctx, deal.ID, &models.NewDeal{QuotedDate: ptr("2026-01-05")})
	require.NoError(t, err)

	deal, previous, err = models.UpdateDeal(ctx, deal.ID, &models.NewDeal{Status: ptr("Quoted")})
	require.NoError(t, err)
	assert.Equal(t, models.DealStatusQuoted, previous)

	stored, err := models.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.QuotedDate)
	assert.Equal(t, "2026-01-05", stored.QuotedDate.String())
	assert.Nil(t, stored.UseConfirmedDate)
}

func TestCreateDeal_Validation(t *testing.T) {
	ctx := setupTestDB(t)

	_, err := models.CreateDeal(ctx, &models.NewDeal{
		Status:    ptr("archived"),
		SongId:    ptr(999),
		ContactId: ptr(998),
		ComposerPublishers: &[]models.ComposerPublisher{
			{Composer: "X", PublishingOwnership: decimal.NewFromInt(140)},
		},
	})
	require.Error(t, err)
	fields := fieldErrors(t, err)
	for _, f := range []string{"projectName", "status", "songId", "contactId", "composerPublishers"} {
		assert.Contains(t, fields, f)
	}

	_, err = models.CreateDeal(ctx, &models.NewDeal{ProjectName: ptr("Bad Date"), AirDate: ptr("31/12/2026")})
	require.Error(t, err)
	assert.Contains(t, fieldErrors(t, err), "airDate")
}

func TestDeals_AreOwnerScoped(t *testing.T) {
	ctx := setupTestDB(t)
	deal, err := models.CreateDeal(ctx, &models.NewDeal{ProjectName: ptr("Mine")})
	require.NoError(t, err)

	other := ownerCtx(2)
	_, err = models.GetDeal(other, deal.ID)
	assert.True(t, errors.Is(err, utils.ErrorRecordNotFound), "got %v", err)
	_, _, err = models.UpdateDeal(other, deal.ID, &models.NewDeal{Notes: ptr("x")})
	assert.True(t, errors.Is(err, utils.ErrorRecordNotFound), "got %v", err)

	deals, err := models.GetDeals(other, models.DealFilter{})
	require.NoError(t, err)
	assert.Empty(t, deals)
}

func TestGetDeals_Filters(t *testing.T) {
	ctx := setupTestDB(t)
	_, err := models.CreateDeal(ctx, &models.NewDeal{ProjectName: ptr("Summer Campaign"), ProjectType: ptr("advertising"), AirDate: ptr("2026-07-01")})
	require.NoError(t, err)
	quoted, err := models.CreateDeal(ctx, &models.NewDeal{ProjectName: ptr("Winter Film"), ProjectType: ptr("film"), Status: ptr("quoted"), AirDate: ptr("2026-12-01")})
	require.NoError(t, err)

	byStatus, err := models.GetDeals(ctx, models.NewDealFilter(map[string]string{"status": "quoted"}))
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, quoted.ID, byStatus[0].ID)

	byQuery, err := models.GetDeals(ctx, models.NewDealFilter(map[string]string{"q": "summer"}))
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, "Summer Campaign", byQuery[0].ProjectName)

	byAir, err := models.GetDeals(ctx, models.NewDealFilter(map[string]string{"airDateFrom": "2026-11-01"}))
	require.NoError(t, err)
	require.Len(t, byAir, 1)
	assert.Equal(t, quoted.ID, byAir[0].ID)
}

func TestReloadDealSplits_KeepsIncomeTracking(t *testing.T) {
	ctx := setupTestDB(t)
	song := createOwnedSong(t, 1)
	deal, err := models.CreateDeal(ctx, &models.NewDeal{ProjectName: ptr("Doc Series"), SongId: &song.ID, FullSongValue: money("2000")})
	require.NoError(t, err)

	_, err = models.UpdateIncomeEntry(ctx, deal.ID, models.IncomeKindPublishing, 0, &models.IncomeEntryInput{JonasShare: ptr("150")})
	require.NoError(t, err)

	_, err = models.UpdateSong(ctx, song.ID, &models.NewSong{
		ComposerPublishers: &[]models.ComposerPublisher{
			{Composer: "Jonas", Publisher: "Own Songs", PublishingOwnership: decimal.NewFromInt(40), IsMine: true},
			{Composer: "Mara", Publisher: "Big Pub", PublishingOwnership: decimal.NewFromInt(60)},
		},
	})
	require.NoError(t, err)

	reloaded, err := models.ReloadDealSplits(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.ComposerPublishers, 2)
	assert.True(t, reloaded.ComposerPublishers[0].PublishingOwnership.Equal(decimal.NewFromInt(40)))
	require.NotNil(t, reloaded.ComposerPublishers[0].JonasShare)
	assert.True(t, reloaded.ComposerPublishers[0].JonasShare.Equal(decimal.NewFromInt(150)))
	assert.True(t, reloaded.OurFee.Equal(decimal.NewFromInt(800)), "ourFee %s", reloaded.OurFee)

	noSong, err := models.CreateDeal(ctx, &models.NewDeal{ProjectName: ptr("Loose")})
	require.NoError(t, err)
	_, err = models.ReloadDealSplits(ctx, noSong.ID)
	assert.Contains(t, fieldErrors(t, err), "songId")
}

func TestIncomeReport_FromStoredDeals(t *testing.T) {
	ctx := setupTestDB(t)
	song := createOwnedSong(t, 1)
	deal, err := models.CreateDeal(ctx, &models.NewDeal{ProjectName: ptr("Feature"), SongId: &song.ID, FullSongValue: money("1000"), FullRecordingFee: money("500")})
	require.NoError(t, err)

	entry, err := models.UpdateIncomeEntry(ctx, deal.ID, models.IncomeKindRecording, 0, &models.IncomeEntryInput{
		JonasShare:  ptr("480.10"),
		PaymentDate: ptr("2026-04-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Jonas", entry.PartyName)
	require.NotNil(t, entry.PaymentDate)
	assert.Equal(t, "2026-04-01", entry.PaymentDate.String())

	report, err := models.GetIncomeReport(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Publishing, 1)
	assert.Len(t, report.Recording, 1)
	assert.True(t, report.RecordingTotal.Equal(decimal.RequireFromString("480.1")))
	assert.True(t, report.PublishingTotal.IsZero())

	_, err = models.UpdateIncomeEntry(ctx, deal.ID, models.IncomeKindPublishing, 5, &models.IncomeEntryInput{})
	assert.True(t, errors.Is(err, utils.ErrorRecordNotFound))

	// index 1 is Mara's share, which is not ours and never reaches the report
	_, err = models.UpdateIncomeEntry(ctx, deal.ID, models.IncomeKindPublishing, 1, &models.IncomeEntryInput{JonasShare: ptr("99")})
	assert.True(t, errors.Is(err, utils.ErrorRecordNotFound))
	stored, err := models.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ComposerPublishers[1].JonasShare)
	_, err = models.UpdateIncomeEntry(ctx, deal.ID, models.IncomeKind("sync"), 0, &models.IncomeEntryInput{})
	assert.Contains(t, fieldErrors(t, err), "kind")
}
