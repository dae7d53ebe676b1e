package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"court_flow_app_go/config"
	appdb "court_flow_app_go/db"
	"court_flow_app_go/models"
	"court_flow_app_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testNow is a Monday
var testNow = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

type testServer struct {
	e  *echo.Echo
	wf *services.Workflow
	db *gorm.DB
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use unique shared memory name to isolate tests
	dsn := "file:mem_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, appdb.AutoMigrate(testDB))
	t.Cleanup(func() { _ = appdb.Close(testDB) })
	return testDB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	testDB := setupTestDB(t)
	calendar := services.NewBusinessCalendar(time.UTC, nil)
	wf := services.NewWorkflow(testDB, calendar, services.WithClock(func() time.Time { return testNow }))

	e := echo.New()
	NewHandler(wf, &config.Config{Environment: "test", EmailFrom: "juzgado@court.test"}).Register(e)
	return &testServer{e: e, wf: wf, db: testDB}
}

func (s *testServer) createUser(t *testing.T, role, password string) models.User {
	t.Helper()
	hash, err := services.HashPassword(password)
	require.NoError(t, err)
	user := models.User{
		Name:     "Usuario " + role,
		Email:    uuid.NewString() + "@court.test",
		Password: hash,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, s.db.Create(&user).Error)
	return user
}

func (s *testServer) tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	session, err := services.CreateSession(s.db, user.ID, "127.0.0.1", "test")
	require.NoError(t, err)
	return session.Token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func completeFiling() map[string]interface{} {
	return map[string]interface{}{
		"claims":                "Que se declare el incumplimiento del contrato",
		"facts":                 "El demandado no pagó las cuotas pactadas",
		"legal_grounds":         "Código Civil, artículo 1546",
		"notifications_address": "Calle 10 # 5-20, Bogotá",
	}
}
