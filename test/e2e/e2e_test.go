// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immigration-portal/internal/common/auth"
	"immigration-portal/internal/common/config"
	"immigration-portal/internal/common/database"
	"immigration-portal/internal/common/gemini"
	"immigration-portal/internal/common/logger"
	"immigration-portal/internal/common/session"
	"immigration-portal/internal/server"
	"immigration-portal/internal/wizard"
)

// The suite runs against the Postgres and Redis named in configs/config.yaml.
// Set PORTAL_E2E=1 once both are reachable.

var cfg *config.Config

func TestMain(m *testing.M) {
	if os.Getenv("PORTAL_E2E") == "" {
		fmt.Println("PORTAL_E2E not set, skipping end-to-end suite")
		os.Exit(0)
	}

	var err error
	cfg, err = config.LoadFromFile("../../configs/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("❌ Failed to load config: %v", err))
	}
	if err := database.MigrateUp(cfg.Database.Postgres.GetURL()); err != nil {
		panic(fmt.Sprintf("❌ Failed to migrate: %v", err))
	}

	os.Exit(m.Run())
}

// ==========================
// Test Environment
// ==========================

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStorage) Upload(ctx context.Context, objectPath, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectPath] = data
	return nil
}

type recordingRelay struct {
	mu       sync.Mutex
	subjects map[string]string
}

func (r *recordingRelay) Send(ctx context.Context, from, to, subject, text, html string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects[to] = subject
	return "e2e-" + uuid.NewString(), nil
}

func (r *recordingRelay) subjectFor(to string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subjects[to]
}

type cannedGenerator struct{}

func (cannedGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	return `{"topPrograms":[{"name":"Express Entry","country":"Canada","fitScore":0.9,"reasons":["Skilled worker"]}]}`, nil
}

func (cannedGenerator) GenerateWithImages(ctx context.Context, prompt string, images ...gemini.Image) (string, error) {
	return `{"isMatch":true,"confidence":0.8}`, nil
}

type environment struct {
	t        *testing.T
	db       *sql.DB
	sessions *session.Store
	storage  *memStorage
	relay    *recordingRelay
	router   http.Handler
}

func setupEnvironment(t *testing.T) *environment {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close() })
	require.NoError(t, pg.Ping(context.Background()), "postgres must be reachable")

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Client.Close() })
	require.NoError(t, rdb.Client.Ping(context.Background()).Err(), "redis must be reachable")

	env := &environment{
		t:        t,
		db:       pg.DB,
		sessions: session.NewStore(rdb.Client, time.Hour),
		storage:  &memStorage{objects: make(map[string][]byte)},
		relay:    &recordingRelay{subjects: make(map[string]string)},
	}

	srv, err := server.New(cfg, server.Dependencies{
		DB:        pg.DB,
		Redis:     rdb.Client,
		Identity:  auth.NewKeycloakClient("http://127.0.0.1:1", "portal", "portal-api", "secret"),
		Storage:   env.storage,
		Generator: cannedGenerator{},
		Relay:     env.relay,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	env.router = srv.Router()

	t.Cleanup(env.cleanup)
	return env
}

// signIn inserts a user row and opens a session for it, bypassing Keycloak.
func (e *environment) signIn(role session.Role) (*session.Session, string) {
	e.t.Helper()
	id := "e2e-" + uuid.NewString()
	email := id + "@example.com"

	_, err := e.db.Exec(`INSERT INTO users (id, full_name, email, role) VALUES ($1, $2, $3, $4)`,
		id, "E2E "+string(role), email, string(role))
	require.NoError(e.t, err)

	s := &session.Session{UserID: id, Email: email, FullName: "E2E " + string(role), Role: role}
	require.NoError(e.t, e.sessions.Create(context.Background(), s))
	return s, email
}

func (e *environment) cleanup() {
	ctx := context.Background()
	_, _ = e.db.ExecContext(ctx, `DELETE FROM applications WHERE user_id LIKE 'e2e-%'`)
	_, _ = e.db.ExecContext(ctx, `DELETE FROM messages WHERE sender_id LIKE 'e2e-%'`)
	_, _ = e.db.ExecContext(ctx, `DELETE FROM users WHERE id LIKE 'e2e-%'`)
	_, _ = e.db.ExecContext(ctx, `DELETE FROM programs WHERE name LIKE 'E2E %'`)
}

func (e *environment) call(method, path string, s *session.Session, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return e.serve(req, s)
}

func (e *environment) upload(path string, s *session.Session, filename string, data []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(e.t, err)
	_, err = part.Write(data)
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.serve(req, s)
}

func (e *environment) serve(req *http.Request, s *session.Session) *httptest.ResponseRecorder {
	if s != nil {
		req.AddCookie(&http.Cookie{Name: cfg.Auth.Session.CookieName, Value: s.ID})
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

// ==========================
// Full Journey
// ==========================

func TestFullE2E(t *testing.T) {
	env := setupEnvironment(t)
	admin, _ := env.signIn(session.RoleAdmin)
	customer, customerEmail := env.signIn(session.RoleCustomer)

	t.Log("🚀 Starting portal journey against real Postgres and Redis...")

	// 1. Administrator publishes a program.
	w := env.call(http.MethodPost, "/api/admin/programs", admin, map[string]interface{}{
		"name":              "E2E Skilled Worker",
		"description":       "End-to-end program",
		"requiredDocuments": []string{"Passport", "Resume/CV"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Program struct {
			ID string `json:"id"`
		} `json:"program"`
	}
	decode(t, w, &created)
	require.NotEmpty(t, created.Program.ID)
	t.Log("✅ Program created")

	// 2. Customer applies and opens the wizard.
	w = env.call(http.MethodPost, "/api/applications", customer, map[string]string{"programId": created.Program.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var applied struct {
		ApplicationID string `json:"applicationId"`
		Status        string `json:"status"`
	}
	decode(t, w, &applied)
	assert.Equal(t, "pending", applied.Status)
	base := "/api/applications/" + applied.ApplicationID

	w = env.call(http.MethodGet, base+"/wizard", customer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 3. Answers across every section.
	w = env.call(http.MethodPut, base+"/wizard/answers", customer, map[string]interface{}{
		"fields": map[string]interface{}{
			"full_name":           "Ada Lovelace",
			"date_of_birth":       "1990-12-10",
			"nationality":         "British",
			"passport_number":     "X1234567",
			"email":               customerEmail,
			"phone":               "+44 20 7946 0000",
			"current_address":     "12 St James's Square, London",
			"highest_education":   "Master's",
			"field_of_study":      "Mathematics",
			"graduation_year":     2014,
			"current_occupation":  "Analyst",
			"years_of_experience": 8,
			"skills":              "Analysis, programming",
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for i := 0; i < wizard.LastIndex; i++ {
		w = env.call(http.MethodPost, base+"/wizard/advance", customer, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	// Submission is refused until the checklist is complete.
	w = env.call(http.MethodPost, base+"/submit", customer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	// 4. Documents.
	w = env.upload(base+"/wizard/documents/passport", customer, "passport.pdf", []byte("%PDF-1.4 passport"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.upload(base+"/wizard/documents/resume_cv", customer, "cv.png", []byte("\x89PNG resume"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.call(http.MethodGet, base+"/wizard/validate", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"valid":true}`, w.Body.String())
	t.Log("✅ Wizard complete")

	// 5. Submit.
	w = env.call(http.MethodPost, base+"/submit", customer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var submitted struct {
		Status    string `json:"status"`
		Documents int    `json:"documents"`
	}
	decode(t, w, &submitted)
	assert.Equal(t, "submitted", submitted.Status)
	assert.Equal(t, 2, submitted.Documents)

	env.storage.mu.Lock()
	assert.Len(t, env.storage.objects, 2)
	env.storage.mu.Unlock()

	var answers int
	require.NoError(t, env.db.QueryRow(
		`SELECT COUNT(*) FROM application_questionnaire WHERE application_id = $1`, applied.ApplicationID).Scan(&answers))
	assert.Equal(t, 1, answers)
	t.Log("✅ Application submitted")

	// 6. Messaging between the applicant and the administrator.
	w = env.call(http.MethodPost, base+"/messages", customer, map[string]string{"content": "When will I hear back?"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = env.call(http.MethodPost, base+"/messages", admin, map[string]string{"content": "Within two weeks."})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.call(http.MethodGet, base+"/messages", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	decode(t, w, &history)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "When will I hear back?", history.Messages[0].Content)
	assert.Equal(t, "Within two weeks.", history.Messages[1].Content)

	// Another customer cannot read the thread.
	stranger, _ := env.signIn(session.RoleCustomer)
	w = env.call(http.MethodGet, base+"/messages", stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	t.Log("✅ Messages exchanged")

	// 7. Administrator approves; the applicant is emailed.
	w = env.call(http.MethodPut, "/api/admin/applications/"+applied.ApplicationID+"/status", admin, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Eventually(t, func() bool { return env.relay.subjectFor(customerEmail) != "" }, 5*time.Second, 50*time.Millisecond)

	w = env.call(http.MethodGet, "/api/applications", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine struct {
		Applications []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"applications"`
	}
	decode(t, w, &mine)
	require.Len(t, mine.Applications, 1)
	assert.Equal(t, "approved", mine.Applications[0].Status)

	t.Log("🎉 Portal journey completed")
}

// ==========================
// Access Control
// ==========================

func TestE2E_CustomerCannotReachAdmin(t *testing.T) {
	env := setupEnvironment(t)
	customer, _ := env.signIn(session.RoleCustomer)

	w := env.call(http.MethodGet, "/api/admin/dashboard", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.call(http.MethodGet, "/api/admin/dashboard", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestE2E_Readiness(t *testing.T) {
	env := setupEnvironment(t)

	w := env.call(http.MethodGet, "/ready", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"postgres"`)
	assert.Contains(t, w.Body.String(), `"redis"`)
}
