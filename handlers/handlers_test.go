package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/jonassync/licensing_backend/aiassist"
	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/middlewares"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/search"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var dbCounter atomic.Int64

// memStorage keeps uploaded objects in memory.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type testEnv struct {
	router  *gin.Engine
	handler *Handler
	storage *memStorage
	token   string
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	conn, err := config.OpenSQLite(dsn)
	require.NoError(t, err)
	previous := config.GetDB()
	config.UseDB(conn)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
		config.UseDB(previous)
	})
	require.NoError(t, models.MigrateTable())

	user, err := models.CreateUser(context.Background(), &models.NewUser{
		Username: "jonas",
		Name:     "Jonas",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	_, err = models.CreateDefaultTemplates(context.Background(), user.ID)
	require.NoError(t, err)

	env := &testEnv{storage: newMemStorage()}
	logger := quietLogger()
	env.handler = &Handler{
		Options:   config.ServerOptions{Environment: "development", MaxUploadBytes: 10 << 20},
		Logger:    logger,
		Storage:   env.storage,
		Search:    search.NewService(nil, logger),
		Assistant: aiassist.NewAssistant(nil),
	}
	env.router = gin.New()
	env.router.Use(middlewares.AuthMiddleware())
	env.handler.Routes(env.router, nil)

	w := env.do(http.MethodPost, "/api/auth/login", `{"username":"jonas","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	env.token = login.Token
	return env
}

func (e *testEnv) send(req *http.Request) *httptest.ResponseRecorder {
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) do(method string, path string, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req)
}

func (e *testEnv) upload(path string, fileName string, contentType string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	header.Set("Content-Type", contentType)
	part, _ := mw.CreatePart(header)
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(req)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/nothing-here", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"route not found"}`, w.Body.String())

	down := gin.New()
	env.handler.Routes(down, func(context.Context) error { return errors.New("database unavailable") })
	rec := httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/auth/user", "")
	require.Equal(t, http.StatusOK, w.Code)
	user := decode[map[string]interface{}](t, w)
	assert.Equal(t, "jonas", user["username"])
	assert.NotContains(t, user, "password")

	anonymous := &testEnv{router: env.router}
	w = anonymous.do(http.MethodGet, "/api/songs", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized","message":"Authentication required"}`, w.Body.String())

	w = anonymous.do(http.MethodPost, "/api/auth/login", `{"username":"jonas","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = anonymous.do(http.MethodPost, "/api/auth/login", `{"username":"jonas"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "validation failed", body["error"])

	w = env.do(http.MethodPost, "/api/auth/logout", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}

func TestSongCrud(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/songs", `{"title":"Golden Hour","artist":"Jonas","genre":"indie"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	song := decode[models.Song](t, w)
	assert.Equal(t, "Golden Hour", song.Title)

	w = env.do(http.MethodPatch, fmt.Sprintf("/api/songs/%d", song.ID), `{"mood":"warm"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Song](t, w)
	assert.Equal(t, "warm", updated.Mood)
	assert.Equal(t, "Jonas", updated.Artist)

	w = env.do(http.MethodGet, "/api/songs?genre=indie", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Song](t, w), 1)

	w = env.do(http.MethodGet, "/api/songs/search?q=golden", "")
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[struct {
		Results []models.Song `json:"results"`
		Engine  string        `json:"engine"`
	}](t, w)
	assert.Equal(t, search.EngineSQL, found.Engine)
	require.Len(t, found.Results, 1)

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/songs/%d", song.ID), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/songs/%d", song.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"song not found"}`, w.Body.String())

	w = env.do(http.MethodGet, "/api/songs/abc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadRequestBodies(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/deals", `{"projectName":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/deals", `{"projectName":"Trailer","status":"bogus"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[struct {
		Error   string              `json:"error"`
		Details []models.FieldError `json:"details"`
	}](t, w)
	assert.Equal(t, "validation failed", body.Error)
	require.NotEmpty(t, body.Details)
	assert.Equal(t, "status", body.Details[0].Field)
}

func TestDealLifecycleWritesHistory(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/deals", `{"projectName":"Trailer Cut","status":"quoted","fullSongValue":1000,"splits":"Our: 60%"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	deal := decode[models.Deal](t, w)
	assert.Equal(t, models.DealStatusQuoted, deal.Status)
	assert.Equal(t, "600", deal.OurFee.String())
	require.NotNil(t, deal.QuotedDate)

	w = env.do(http.MethodPut, fmt.Sprintf("/api/deals/%d", deal.ID), `{"status":"use confirmed"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, fmt.Sprintf("/api/deals/%d/histories", deal.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	histories := decode[[]models.History](t, w)
	require.Len(t, histories, 2)
	assert.Equal(t, models.DealStatusQuoted, histories[1].FromStatus)

	w = env.do(http.MethodGet, "/api/analytics/pipeline", "")
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[[]map[string]interface{}](t, w)
	assert.Len(t, rows, len(models.DealStatuses()))

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/deals/%d", deal.ID), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(http.MethodGet, fmt.Sprintf("/api/deals/%d/histories", deal.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportDealsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	csvData := "Project Name,Status,Full Song Value\nTrailer,quoted,\"$1,000\"\n,quoted,5\n"
	w := env.upload("/api/deals/import", "deals.csv", "text/csv", []byte(csvData), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[map[string]interface{}](t, w)
	assert.EqualValues(t, 2, result["total"])
	assert.EqualValues(t, 1, result["created"])
	assert.EqualValues(t, 1, result["failed"])

	w = env.upload("/api/deals/import", "deals.txt", "text/plain", []byte(csvData), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.upload("/api/deals/import", "deals.csv", "text/csv", []byte("Song\nSkyline\n"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOverduePaymentFilter(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/payments", `{"amount":"250.00","dueDate":"2020-01-01","payer":"Studio"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = env.do(http.MethodPost, "/api/payments", `{"amount":"100.00","dueDate":"2020-01-01","status":"paid"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/api/payments?status=overdue", "")
	require.Equal(t, http.StatusOK, w.Code)
	payments := decode[[]map[string]interface{}](t, w)
	require.Len(t, payments, 1)
	assert.Equal(t, "overdue", payments[0]["status"])
}

func TestIncomeRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/deals", `{"projectName":"Ad Spot","fullSongValue":1000,
		"composerPublishers":[{"composer":"Jonas","publisher":"Own Pub","publishingOwnership":50,"isMine":true},
		{"composer":"Mara","publisher":"Other","publishingOwnership":50,"isMine":false}]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	deal := decode[models.Deal](t, w)

	w = env.do(http.MethodPatch, fmt.Sprintf("/api/income/%d/publishing/0", deal.ID), `{"jonasShare":"450","paymentDate":"2026-03-01"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPatch, fmt.Sprintf("/api/income/%d/publishing/5", deal.ID), `{"jonasShare":"1"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(http.MethodPatch, fmt.Sprintf("/api/income/%d/publishing/1", deal.ID), `{"jonasShare":"1"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/income", "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[models.IncomeReport](t, w)
	require.Len(t, report.Publishing, 1)
	assert.Equal(t, "450", report.PublishingTotal.String())
	assert.Equal(t, "500", report.Publishing[0].FullShareFee.String())

	w = env.do(http.MethodGet, "/api/income/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "income-")
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for x := 0; x < 400; x++ {
		img.Set(x, x%300, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAttachmentUploadAndDelete(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/api/songs", `{"title":"Skyline"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	song := decode[models.Song](t, w)
	fields := map[string]string{"entityType": "song", "entityId": fmt.Sprint(song.ID)}

	w = env.upload("/api/attachments", "cover.png", "image/png", pngBytes(t), fields)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	attachment := decode[models.Attachment](t, w)
	require.NotNil(t, attachment.ThumbnailUrl)
	assert.Equal(t, 2, env.storage.count())

	w = env.upload("/api/attachments", "run.exe", "application/x-msdownload", []byte("MZ"), fields)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.upload("/api/attachments", "brief.pdf", "application/pdf", []byte("%PDF-1.4"),
		map[string]string{"entityType": "deal", "entityId": "999"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/attachments?entityType=song&entityId=%d", song.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Attachment](t, w), 1)

	w = env.do(http.MethodDelete, fmt.Sprintf("/api/attachments/%d", attachment.ID), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, env.storage.count())
}

func TestAttachmentsWithoutStorage(t *testing.T) {
	env := newTestEnv(t)
	env.handler.Storage = nil
	w := env.upload("/api/attachments", "brief.pdf", "application/pdf", []byte("%PDF-1.4"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAIRoutesWithoutConfiguration(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/analyze-lyrics", `{"lyrics":"we run into the light"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"AI service not configured"}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/analyze-lyrics", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/generate-contract", `{"dealId":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAIRoutesUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	client, err := aiassist.NewClient(srv.URL, "key", "")
	require.NoError(t, err)
	env.handler.Assistant = aiassist.NewAssistant(client)

	w := env.do(http.MethodPost, "/api/analyze-lyrics", `{"lyrics":"we run into the light"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestWorkflowAutomationAlias(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/workflow-automation", `{"name":"Chase","triggerStatus":"quoted","action":"create_calendar_event","offsetDays":3}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/api/workflow-automations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]interface{}](t, w), 1)
}

func TestSavedSearchRun(t *testing.T) {
	env := newTestEnv(t)
	for _, body := range []string{`{"name":"Acme","company":"Acme Films"}`, `{"name":"Bea","company":"Indie"}`} {
		w := env.do(http.MethodPost, "/api/contacts", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := env.do(http.MethodPost, "/api/saved-searches", `{"name":"Film people","entity":"contacts","query":"acme"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	saved := decode[models.SavedSearch](t, w)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/saved-searches/%d/run", saved.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	run := decode[struct {
		Results []models.Contact `json:"results"`
	}](t, w)
	require.Len(t, run.Results, 1)
	assert.Equal(t, "Acme", run.Results[0].Name)
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		production bool
		err        error
		code       int
		body       string
	}{
		{"duplicate", false, fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}), http.StatusConflict, `{"error":"song already exists"}`},
		{"not found", false, fmt.Errorf("lookup: %w", utils.ErrorRecordNotFound), http.StatusNotFound, `{"error":"song not found"}`},
		{"unknown", false, fmt.Errorf("lookup: %w", errors.New("record missing")), http.StatusInternalServerError, `{"error":"internal server error","message":"lookup: record missing"}`},
		{"hidden in production", true, errors.New("boom"), http.StatusInternalServerError, `{"error":"internal server error"}`},
		{"validation", false, &models.ValidationError{Fields: []models.FieldError{{Field: "title", Message: "is required"}}}, http.StatusBadRequest,
			`{"error":"validation failed","details":[{"field":"title","message":"is required"}]}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := "development"
			if c.production {
				env = "production"
			}
			h := &Handler{Options: config.ServerOptions{Environment: env}, Logger: quietLogger()}
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			h.respondError(ctx, "song", "test", c.err)
			assert.Equal(t, c.code, w.Code)
			assert.JSONEq(t, c.body, w.Body.String())
		})
	}
}

func TestAttachmentHelpers(t *testing.T) {
	mimeType, ok := attachmentMimeType("demo.MP3", "application/octet-stream")
	assert.True(t, ok)
	assert.Equal(t, "audio/mpeg", mimeType)

	_, ok = attachmentMimeType("notes.txt", "text/plain")
	assert.False(t, ok)

	assert.Equal(t, "owners/1/song/2/thumbnails/abc.jpg", thumbnailObjectKey("owners/1/song/2/abc.png"))
	assert.Equal(t, "deal", sanitizeSegment("De/al.."))
}
