package models_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSong_DerivesLegacyCredits(t *testing.T) {
	ctx := setupTestDB(t)
	song := createOwnedSong(t, 1)

	assert.Equal(t, "Jonas, Mara", song.Composers)
	assert.Equal(t, "Own Songs, Big Pub", song.Publishers)
	assert.Equal(t, "Jonas", song.Artist)

	song, err := models.UpdateSong(ctx, song.ID, &models.NewSong{Composers: ptr("J. Sync")})
	require.NoError(t, err)
	assert.Equal(t, "J. Sync", song.Composers)

	_, err = models.CreateSong(ctx, &models.NewSong{Title: ptr("   ")})
	assert.Contains(t, fieldErrors(t, err), "title")
}

func TestSongs_SearchAndLookup(t *testing.T) {
	ctx := setupTestDB(t)
	a, err := models.CreateSong(ctx, &models.NewSong{Title: ptr("Golden Hour"), Genre: ptr("Pop"), Mood: ptr("Uplifting")})
	require.NoError(t, err)
	b, err := models.CreateSong(ctx, &models.NewSong{Title: ptr("Dark Water"), Genre: ptr("Rock"), Mood: ptr("Tense")})
	require.NoError(t, err)

	found, err := models.GetSongs(ctx, models.NewSongFilter(map[string]string{"q": "golden"}))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)

	found, err = models.GetSongs(ctx, models.NewSongFilter(map[string]string{"genre": "Rock"}))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, b.ID, found[0].ID)

	byTitle, err := models.FindSongByTitle(ctx, "  dark WATER ")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byTitle.ID)
	_, err = models.FindSongByTitle(ctx, "Unknown")
	assert.True(t, errors.Is(err, utils.ErrorRecordNotFound))

	ordered, err := models.GetSongsByIds(ctx, []int{b.ID, 999, a.ID})
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, []int{b.ID, a.ID}, []int{ordered[0].ID, ordered[1].ID})

	_, err = models.GetSong(ownerCtx(2), a.ID)
	assert.True(t, errors.Is(err, utils.ErrorRecordNotFound))
}

func TestContacts_ValidateAndNormalise(t *testing.T) {
	ctx := setupTestDB(t)

	contact, err := models.CreateContact(ctx, &models.NewContact{
		Name:    ptr("Ana Supervisor"),
		Email:   ptr("ana@studio.example.com"),
		Phone:   ptr("+1 650-253-0000"),
		Company: ptr("Studio North"),
	})
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", contact.Phone)

	_, err = models.CreateContact(ctx, &models.NewContact{Name: ptr("Bad"), Email: ptr("not-an-email"), Phone: ptr("12")})
	fields := fieldErrors(t, err)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "phone")

	byCompany, err := models.FindContactByName(ctx, "studio north")
	require.NoError(t, err)
	assert.Equal(t, contact.ID, byCompany.ID)
}

func TestPitches_RequireDealOrCustomName(t *testing.T) {
	ctx := setupTestDB(t)

	_, err := models.CreatePitch(ctx, &models.NewPitch{Notes: ptr("sent link")})
	assert.Contains(t, fieldErrors(t, err), "dealId")

	_, err = models.CreatePitch(ctx, &models.NewPitch{DealId: ptr(404)})
	assert.Contains(t, fieldErrors(t, err), "dealId")

	pitch, err := models.CreatePitch(ctx, &models.NewPitch{CustomDealName: ptr("Untitled Netflix Drama")})
	require.NoError(t, err)
	assert.Equal(t, models.PitchStatusPending, pitch.Status)
	require.NotNil(t, pitch.PitchDate)
	assert.Equal(t, models.Today().String(), pitch.PitchDate.String())

	// clearing the custom name leaves the pitch without any deal
	_, err = models.UpdatePitch(ctx, pitch.ID, &models.NewPitch{CustomDealName: ptr("")})
	assert.Contains(t, fieldErrors(t, err), "dealId")

	_, err = models.UpdatePitch(ctx, pitch.ID, &models.NewPitch{Status: ptr("lost")})
	assert.Contains(t, fieldErrors(t, err), "status")
}

func TestPayments_OverdueIsDerived(t *testing.T) {
	ctx := setupTestDB(t)
	past := models.NewMyDate(time.Now().AddDate(0, 0, -5)).String()
	future := models.NewMyDate(time.Now().AddDate(0, 0, 5)).String()

	_, err := models.CreatePayment(ctx, &models.NewPayment{Amount: money("10"), Status: ptr("overdue")})
	assert.Contains(t, fieldErrors(t, err), "status")
	_, err = models.CreatePayment(ctx, &models.NewPayment{Payer: ptr("Studio")})
	assert.Contains(t, fieldErrors(t, err), "amount")

	late, err := models.CreatePayment(ctx, &models.NewPayment{Amount: money("100"), DueDate: ptr(past)})
	require.NoError(t, err)
	_, err = models.CreatePayment(ctx, &models.NewPayment{Amount: money("200"), DueDate: ptr(future)})
	require.NoError(t, err)
	_, err = models.CreatePayment(ctx, &models.NewPayment{Amount: money("50"), DueDate: ptr(models.Today().String())})
	require.NoError(t, err)
	paid, err := models.CreatePayment(ctx, &models.NewPayment{Amount: money("300"), DueDate: ptr(past), Status: ptr("paid")})
	require.NoError(t, err)
	require.NotNil(t, paid.PaidDate)
	assert.Equal(t, models.Today().String(), paid.PaidDate.String())

	overdue, err := models.GetPayments(ctx, models.NewPaymentFilter(map[string]string{"status": "overdue"}))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)

	pending, err := models.GetPayments(ctx, models.NewPaymentFilter(map[string]string{"status": "pending"}))
	require.NoError(t, err)
	// due today is still pending
	require.Len(t, pending, 2)
	assert.True(t, pending[0].Amount.Equal(decimal.NewFromInt(50)))
	assert.True(t, pending[1].Amount.Equal(decimal.NewFromInt(200)))

	all, err := models.GetPayments(ctx, models.PaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCalendarEvents_AllDayAndRange(t *testing.T) {
	ctx := setupTestDB(t)

	event, err := models.CreateCalendarEvent(ctx, &models.NewCalendarEvent{
		Title:     ptr("Spotting session"),
		StartDate: ptr("2026-09-14"),
		AllDay:    ptr(false),
		EventType: ptr("meeting"),
	})
	require.NoError(t, err)
	stored, err := models.GetCalendarEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.False(t, stored.AllDay)

	_, err = models.CreateCalendarEvent(ctx, &models.NewCalendarEvent{
		Title:     ptr("Backwards"),
		StartDate: ptr("2026-09-14"),
		EndDate:   ptr("2026-09-10"),
	})
	assert.Contains(t, fieldErrors(t, err), "endDate")

	inRange, err := models.GetCalendarEvents(ctx, models.NewCalendarEventFilter(map[string]string{"from": "2026-09-01", "to": "2026-09-30"}))
	require.NoError(t, err)
	assert.Len(t, inRange, 1)
}

func TestUpsertAirDateReminder_KeepsOneEventPerDeal(t *testing.T) {
	ctx := setupTestDB(t)
	deal, err := models.CreateDeal(ctx, &models.NewDeal{ProjectName: ptr("Season Finale"), AirDate: ptr("2026-11-20")})
	require.NoError(t, err)

	first, err := models.UpsertAirDateReminder(ctx, deal)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "2026-11-20", first.StartDate.String())

	deal, _, err = models.UpdateDeal(ctx, deal.ID, &models.NewDeal{AirDate: ptr("2026-12-04")})
	require.NoError(t, err)
	second, err := models.UpsertAirDateReminder(ctx, deal)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "2026-12-04", second.StartDate.String())

	events, err := models.GetCalendarEvents(ctx, models.CalendarEventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsAutoGenerated)

	deal, _, err = models.UpdateDeal(ctx, deal.ID, &models.NewDeal{AirDate: ptr("")})
	require.NoError(t, err)
	removed, err := models.UpsertAirDateReminder(ctx, deal)
	require.NoError(t, err)
	assert.Nil(t, removed)
	events, err = models.GetCalendarEvents(ctx, models.CalendarEventFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPlaylists_SongOrder(t *testing.T) {
	ctx := setupTestDB(t)
	a, err := models.CreateSong(ctx, &models.NewSong{Title: ptr("A")})
	require.NoError(t, err)
	b, err := models.CreateSong(ctx, &models.NewSong{Title: ptr("B")})
	require.NoError(t, err)

	_, err = models.CreatePlaylist(ctx, &models.NewPlaylist{Name: ptr("Bad"), SongIds: &[]int{a.ID, 999}})
	assert.Contains(t, fieldErrors(t, err), "songIds")

	playlist, err := models.CreatePlaylist(ctx, &models.NewPlaylist{Name: ptr("Trailer picks"), SongIds: &[]int{b.ID, a.ID, b.ID}})
	require.NoError(t, err)
	assert.Equal(t, []int{b.ID, a.ID}, []int(playlist.SongIds))

	songs, err := models.GetPlaylistSongs(ctx, playlist.ID)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "B", songs[0].Title)
}

func TestSavedSearches_Run(t *testing.T) {
	ctx := setupTestDB(t)
	_, err := models.CreateSong(ctx, &models.NewSong{Title: ptr("Neon Lights"), Genre: ptr("Synthwave")})
	require.NoError(t, err)
	_, err = models.CreateSong(ctx, &models.NewSong{Title: ptr("Neon Rain"), Genre: ptr("Ambient")})
	require.NoError(t, err)

	_, err = models.CreateSavedSearch(ctx, &models.NewSavedSearch{Name: ptr("x"), Entity: ptr("invoices")})
	assert.Contains(t, fieldErrors(t, err), "entity")

	search, err := models.CreateSavedSearch(ctx, &models.NewSavedSearch{
		Name:    ptr("Neon synth"),
		Entity:  ptr("songs"),
		Query:   ptr("neon"),
		Filters: &map[string]string{"genre": "Synthwave"},
	})
	require.NoError(t, err)

	_, results, err := models.RunSavedSearch(ctx, search.ID)
	require.NoError(t, err)
	songs, ok := results.([]*models.Song)
	require.True(t, ok, "unexpected result type %T", results)
	require.Len(t, songs, 1)
	assert.Equal(t, "Neon Lights", songs[0].Title)
}

func TestTemplates_RenderDealData(t *testing.T) {
	ctx := setupTestDB(t)
	seeded, err := models.CreateDefaultTemplates(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, seeded)
	again, err := models.CreateDefaultTemplates(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, again)

	_, err = models.CreateTemplate(ctx, &models.NewTemplate{Name: ptr("Broken"), TemplateType: ptr("email"), Content: ptr("{{.Deal.ProjectName")})
	assert.Contains(t, fieldErrors(t, err), "content")

	song := createOwnedSong(t, 1)
	deal, err := models.CreateDeal(ctx, &models.NewDeal{ProjectName: ptr("Coffee Ad"), SongId: &song.ID, Territory: ptr("Worldwide")})
	require.NoError(t, err)

	tmpl, err := models.GetDefaultTemplate(ctx, models.TemplateTypeContract)
	require.NoError(t, err)
	data, err := models.LoadTemplateData(ctx, deal.ID)
	require.NoError(t, err)
	out, err := tmpl.Render(data)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Project: Coffee Ad"), out)
	assert.True(t, strings.Contains(out, "Midnight Drive"), out)
	assert.True(t, strings.Contains(out, "Territory: Worldwide"), out)
}

func TestWorkflowAutomations_ActiveForStatus(t *testing.T) {
	ctx := setupTestDB(t)
	active, err := models.CreateWorkflowAutomation(ctx, &models.NewWorkflowAutomation{
		Name:          ptr("Invoice on signature"),
		TriggerStatus: ptr("out_for_signature"),
		Action:        ptr("create_payment"),
		OffsetDays:    ptr(30),
	})
	require.NoError(t, err)
	_, err = models.CreateWorkflowAutomation(ctx, &models.NewWorkflowAutomation{
		Name:          ptr("Disabled"),
		TriggerStatus: ptr("out_for_signature"),
		Action:        ptr("create_calendar_event"),
		IsActive:      ptr(false),
	})
	require.NoError(t, err)

	found, err := models.GetActiveAutomationsFor(ctx, 1, models.DealStatusOutForSignature)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, active.ID, found[0].ID)
	assert.Equal(t, models.TriggerDealStatusChanged, found[0].Trigger)
}

func TestUsers_LoginChecksPassword(t *testing.T) {
	ctx := setupTestDB(t)
	user, err := models.CreateUser(ctx, &models.NewUser{Username: "jonas", Name: "Jonas", Password: "correct horse"})
	require.NoError(t, err)

	_, err = models.CreateUser(ctx, &models.NewUser{Username: "jonas", Name: "Dup", Password: "another pass"})
	assert.Contains(t, fieldErrors(t, err), "username")

	_, err = models.Login(ctx, "jonas", "wrong password")
	assert.True(t, errors.Is(err, models.ErrInvalidCredentials))

	info, err := models.Login(ctx, " jonas ", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, info.Token)
	assert.Equal(t, user.ID, info.User.ID)
	assert.True(t, info.ExpiresAt.After(time.Now()))

	ids, err := models.GetActiveUserIds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{user.ID}, ids)
}
