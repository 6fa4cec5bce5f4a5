package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenscope/greenscope/api"
	"github.com/greenscope/greenscope/auth"
	"github.com/greenscope/greenscope/backup"
	"github.com/greenscope/greenscope/catalog"
	"github.com/greenscope/greenscope/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	store  *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()

	s, err := store.Open(filepath.Join(root, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cat, err := catalog.Load("")
	require.NoError(t, err)

	issuer := auth.NewIssuer("test-secret", 30*time.Minute, 7*24*time.Hour)
	evidenceDir := filepath.Join(root, "evidence")
	backups := backup.NewManager(filepath.Join(root, "backups"), s.Path(), evidenceDir, 10, s, zap.NewNop())

	svc := NewService(s, cat, issuer, backups, Config{EvidenceDir: evidenceDir}, zap.NewNop())
	r := gin.New()
	svc.Register(r)
	return &testEnv{router: r, store: s}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func registerPayload(email string) gin.H {
	return gin.H{
		"email":           email,
		"password":        "Sufficient1",
		"first_name":      "Amena",
		"last_name":       "Rashid",
		"company_name":    "Desert Palm Hotel",
		"main_location":   "Dubai",
		"business_sector": "hospitality",
	}
}

// registerAdmin creates a company with its first admin user and returns
// the access token.
func registerAdmin(t *testing.T, e *testEnv, email string) (string, api.AuthResponse) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/register", "", registerPayload(email))
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	resp := decode[api.AuthResponse](t, w)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken, resp
}

func TestHealthzAndSectors(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/sectors", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sectors := decode[[]api.SectorInfo](t, w)
	require.NotEmpty(t, sectors)

	var found bool
	for _, s := range sectors {
		if s.ID == "hospitality" {
			found = true
			assert.Contains(t, s.Frameworks, "DST")
			assert.Greater(t, s.QuestionCount, 0)
		}
	}
	assert.True(t, found)
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)

	token, resp := registerAdmin(t, e, "owner@example.com")
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, int((30 * time.Minute).Seconds()), resp.ExpiresIn)
	require.NotNil(t, resp.User)
	assert.Equal(t, store.RoleAdmin, resp.User.Role)
	assert.Equal(t, "Amena Rashid", resp.User.FullName)

	t.Run("duplicate email", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/auth/register", "", registerPayload("owner@example.com"))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("weak password", func(t *testing.T) {
		payload := registerPayload("weak@example.com")
		payload["password"] = "short"
		w := e.do(t, http.MethodPost, "/api/auth/register", "", payload)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("login", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/auth/token", "",
			gin.H{"email": "owner@example.com", "password": "Sufficient1"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, decode[api.AuthResponse](t, w).RefreshToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/auth/token", "",
			gin.H{"email": "owner@example.com", "password": "Sufficient2"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Incorrect email or password", decode[api.Error](t, w).Message)
	})

	t.Run("unknown email gets the same response", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/auth/token", "",
			gin.H{"email": "nobody@example.com", "password": "Sufficient1"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Incorrect email or password", decode[api.Error](t, w).Message)
	})

	t.Run("refresh", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/auth/refresh", "",
			gin.H{"refresh_token": resp.RefreshToken})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, decode[api.AuthResponse](t, w).AccessToken)
	})

	t.Run("refresh rejects access token", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/auth/refresh",
			"", gin.H{"refresh_token": resp.AccessToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("me", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/auth/me", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "owner@example.com")
	})

	t.Run("change password", func(t *testing.T) {
		w := e.do(t, http.MethodPut, "/api/auth/me", token,
			gin.H{"current_password": "Wrong1234", "new_password": "Replaced1"})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = e.do(t, http.MethodPut, "/api/auth/me", token,
			gin.H{"current_password": "Sufficient1", "new_password": "Replaced1"})
		require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

		w = e.do(t, http.MethodPost, "/api/auth/token", "",
			gin.H{"email": "owner@example.com", "password": "Replaced1"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("logout", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/auth/logout", token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestLoginRateLimit(t *testing.T) {
	e := newTestEnv(t)
	registerAdmin(t, e, "owner@example.com")

	bad := gin.H{"email": "owner@example.com", "password": "Wrong1234"}
	for i := 0; i < 5; i++ {
		w := e.do(t, http.MethodPost, "/api/auth/token", "", bad)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := e.do(t, http.MethodPost, "/api/auth/token", "", bad)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestInviteAndRoles(t *testing.T) {
	e := newTestEnv(t)
	admin, _ := registerAdmin(t, e, "owner@example.com")

	invite := func(email, role string) *httptest.ResponseRecorder {
		return e.do(t, http.MethodPost, "/api/auth/invite", admin, gin.H{
			"email": email, "password": "Sufficient1",
			"first_name": "New", "last_name": "Hire", "role": role,
		})
	}

	t.Run("invite viewer", func(t *testing.T) {
		w := invite("viewer@example.com", "viewer")
		assert.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	})

	t.Run("invalid role", func(t *testing.T) {
		w := invite("bad@example.com", "superuser")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("viewer cannot mutate", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/auth/token", "",
			gin.H{"email": "viewer@example.com", "password": "Sufficient1"})
		require.Equal(t, http.StatusOK, w.Code)
		viewer := decode[api.AuthResponse](t, w).AccessToken

		w = e.do(t, http.MethodPost, "/api/esg/scoping/complete", viewer,
			gin.H{"sector": "hospitality", "answers": gin.H{}})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = e.do(t, http.MethodGet, "/api/admin/audit", viewer, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		// Reads are still allowed.
		w = e.do(t, http.MethodGet, "/api/tasks", viewer, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func completeScoping(t *testing.T, e *testEnv, token string) api.ScopingResult {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/esg/scoping/complete", token, gin.H{
		"sector": "hospitality",
		"answers": gin.H{
			"hosp-gov-1":    "no",
			"hosp-gov-2":    "yes",
			"hosp-energy-1": "yes",
			"hosp-energy-2": "0",
		},
		"preferences": gin.H{"floor_area_sqm": "2000"},
	})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	return decode[api.ScopingResult](t, w)
}

func TestScopingFlow(t *testing.T) {
	e := newTestEnv(t)
	token, _ := registerAdmin(t, e, "owner@example.com")

	t.Run("status before", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/esg/scoping/status", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, decode[api.ScopingStatus](t, w).Completed)
	})

	t.Run("questions", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/esg/questions/hospitality", token, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = e.do(t, http.MethodGet, "/api/esg/questions/retail", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	result := completeScoping(t, e, token)
	// Two gap answers plus the hospitality framework mandates.
	assert.GreaterOrEqual(t, result.TasksGenerated, 4)
	assert.NotEmpty(t, result.PriorityTasks)
	assert.Greater(t, result.Scores.Overall, 0.0)

	t.Run("status after", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/esg/scoping/status", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		status := decode[api.ScopingStatus](t, w)
		assert.True(t, status.Completed)
		assert.Equal(t, "hospitality", status.Sector)
		assert.Equal(t, result.TasksGenerated, status.TaskCount)
	})

	t.Run("unknown sector", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/esg/scoping/complete", token,
			gin.H{"sector": "retail", "answers": gin.H{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("regenerate replaces untouched tasks", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/tasks/generate", token, nil)
		require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

		w = e.do(t, http.MethodGet, "/api/tasks", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, result.TasksGenerated, decode[api.TaskListResponse](t, w).TotalCount)
	})
}

func TestTaskLifecycle(t *testing.T) {
	e := newTestEnv(t)
	token, account := registerAdmin(t, e, "owner@example.com")
	completeScoping(t, e, token)

	w := e.do(t, http.MethodGet, "/api/tasks?status=todo&limit=50", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[api.TaskListResponse](t, w)
	require.NotEmpty(t, page.Tasks)
	task := page.Tasks[0]

	t.Run("invalid status filter", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/tasks?status=bogus", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("due date range filter", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/tasks", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		all := decode[api.TaskListResponse](t, w)

		// High priority work lands at 30 days, medium at 60, so a 45-day
		// horizon splits the generated set.
		horizon := time.Now().UTC().Add(45 * 24 * time.Hour).Format(time.RFC3339)
		w = e.do(t, http.MethodGet, "/api/tasks?due_after="+horizon, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		later := decode[api.TaskListResponse](t, w)
		assert.Greater(t, later.TotalCount, 0)
		assert.Less(t, later.TotalCount, all.TotalCount)

		w = e.do(t, http.MethodGet, "/api/tasks?due_before="+horizon, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		earlier := decode[api.TaskListResponse](t, w)
		assert.Equal(t, all.TotalCount, earlier.TotalCount+later.TotalCount)

		w = e.do(t, http.MethodGet, "/api/tasks?due_after=not-a-time", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/tasks/"+task.ID, token, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = e.do(t, http.MethodGet, "/api/tasks/missing", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("assign", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/assign", token,
			gin.H{"user_id": account.User.ID})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("update status", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, "/api/tasks/"+task.ID, token,
			gin.H{"status": "completed"})
		require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
		updated := decode[store.Task](t, w)
		assert.Equal(t, store.StatusCompleted, updated.Status)
		assert.NotNil(t, updated.CompletedAt)
	})

	t.Run("invalid status value", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, "/api/tasks/"+task.ID, token,
			gin.H{"status": "paused"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("stats", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/tasks/stats", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		stats := decode[store.TaskStats](t, w)
		assert.Equal(t, 1, stats.ByStatus[string(store.StatusCompleted)])
	})
}

// multipartUpload builds a multipart body with an explicit part
// content type, which gin surfaces through the file header.
func multipartUpload(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestEvidenceFlow(t *testing.T) {
	e := newTestEnv(t)
	token, _ := registerAdmin(t, e, "owner@example.com")
	completeScoping(t, e, token)

	w := e.do(t, http.MethodGet, "/api/tasks?limit=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	task := decode[api.TaskListResponse](t, w).Tasks[0]

	upload := func(filename, contentType string, data []byte) *httptest.ResponseRecorder {
		body, formType := multipartUpload(t, filename, contentType, data)
		req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+task.ID+"/evidence", body)
		req.Header.Set("Content-Type", formType)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		return w
	}

	var evidenceID string
	t.Run("upload", func(t *testing.T) {
		w := upload("january-bill.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
		require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
		ev := decode[store.Evidence](t, w)
		assert.Equal(t, "january-bill.pdf", ev.OriginalFilename)
		assert.NotEmpty(t, ev.FileHash)
		evidenceID = ev.ID
	})

	t.Run("unsupported type", func(t *testing.T) {
		w := upload("script.sh", "application/x-sh", []byte("#!/bin/sh"))
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("list", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/tasks/"+task.ID+"/evidence", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "january-bill.pdf")
	})

	t.Run("download", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/evidence/"+evidenceID+"/download", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "%PDF-1.4 fake", w.Body.String())
	})

	t.Run("delete", func(t *testing.T) {
		w := e.do(t, http.MethodDelete, "/api/evidence/"+evidenceID, token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = e.do(t, http.MethodGet, "/api/evidence/"+evidenceID+"/download", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMetersAndFrameworks(t *testing.T) {
	e := newTestEnv(t)
	token, _ := registerAdmin(t, e, "owner@example.com")

	var meter store.UtilityMeter
	t.Run("create meter", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/meters", token,
			gin.H{"meter_type": "electricity", "location_name": "Main Hotel"})
		require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
		meter = decode[store.UtilityMeter](t, w)
		assert.Equal(t, "kWh", meter.Unit)
		assert.True(t, meter.IsActive)
	})

	t.Run("invalid meter type", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/meters", token, gin.H{"meter_type": "steam"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("readings", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/meters/"+meter.ID+"/readings", token,
			gin.H{"reading_date": "2026-01-31T00:00:00Z", "consumption_amount": 9500})
		require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

		w = e.do(t, http.MethodPost, "/api/meters/"+meter.ID+"/readings", token,
			gin.H{"reading_date": "2026-02-28T00:00:00Z", "consumption_amount": -5})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = e.do(t, http.MethodGet, "/api/meters/"+meter.ID+"/readings", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		readings := decode[[]*store.ConsumptionRecord](t, w)
		require.Len(t, readings, 1)
		assert.Equal(t, 9500.0, readings[0].Consumption)
	})

	t.Run("framework registration upsert", func(t *testing.T) {
		w := e.do(t, http.MethodPut, "/api/frameworks/registrations", token,
			gin.H{"framework_name": "DST"})
		require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

		w = e.do(t, http.MethodPut, "/api/frameworks/registrations", token,
			gin.H{"framework_name": "DST", "status": "registered"})
		require.Equal(t, http.StatusOK, w.Code)

		w = e.do(t, http.MethodGet, "/api/frameworks/registrations", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		regs := decode[[]*store.FrameworkRegistration](t, w)
		require.Len(t, regs, 1)
		assert.Equal(t, "registered", regs[0].Status)
	})
}

func TestReports(t *testing.T) {
	e := newTestEnv(t)
	token, _ := registerAdmin(t, e, "owner@example.com")
	completeScoping(t, e, token)

	t.Run("json", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/reports/esg", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[api.ReportResponse](t, w)
		require.NotNil(t, resp.Report)
		assert.Equal(t, "Desert Palm Hotel", resp.Report.Metadata.CompanyName)
	})

	t.Run("html", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/reports/esg?format=html", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "Desert Palm Hotel")
	})

	t.Run("pdf", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/reports/esg?format=pdf", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))
	})

	t.Run("bad format", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/reports/esg?format=xml", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("analytics", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/reports/analytics", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[api.AnalyticsResponse](t, w)
		require.NotNil(t, resp.TaskStats)
		assert.Greater(t, resp.TaskStats.Total, 0)
	})
}

func TestAdminEndpoints(t *testing.T) {
	e := newTestEnv(t)
	token, _ := registerAdmin(t, e, "owner@example.com")

	t.Run("backup lifecycle", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/admin/backups", token, nil)
		require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
		created := decode[api.BackupInfo](t, w)
		assert.NotEmpty(t, created.Name)

		w = e.do(t, http.MethodGet, "/api/admin/backups", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), created.Name)

		w = e.do(t, http.MethodGet, "/api/admin/backups/health", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decode[api.HealthStatus](t, w).Healthy)
	})

	t.Run("restore rolls back changes made after the backup", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/admin/backups", token, nil)
		require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
		created := decode[api.BackupInfo](t, w)

		// Scoping after the backup generates tasks the restore must erase.
		completeScoping(t, e, token)
		w = e.do(t, http.MethodGet, "/api/tasks", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotZero(t, decode[api.TaskListResponse](t, w).TotalCount)

		w = e.do(t, http.MethodPost, "/api/admin/backups/restore", token,
			gin.H{"name": created.Name})
		require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

		// Post-backup rows must be gone through the still-open store.
		w = e.do(t, http.MethodGet, "/api/tasks", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, decode[api.TaskListResponse](t, w).TotalCount)

		w = e.do(t, http.MethodGet, "/api/esg/scoping/status", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, decode[api.ScopingStatus](t, w).Completed)
	})

	t.Run("audit trail records logins", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/admin/audit", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "register")
	})
}

func TestCompanyEndpoints(t *testing.T) {
	e := newTestEnv(t)
	token, _ := registerAdmin(t, e, "owner@example.com")

	t.Run("profile", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/companies/me", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Desert Palm Hotel")
	})

	t.Run("patch", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, "/api/companies/me", token,
			gin.H{"website": "https://desertpalm.example", "active_frameworks": []string{"DST"}})
		require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
		company := decode[store.Company](t, w)
		assert.Equal(t, "https://desertpalm.example", company.Website)
		assert.Equal(t, []string{"DST"}, company.ActiveFrameworks)
	})

	t.Run("invalid sector patch", func(t *testing.T) {
		w := e.do(t, http.MethodPatch, "/api/companies/me", token,
			gin.H{"business_sector": "retail"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("locations", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/companies/me/locations", token,
			gin.H{"name": "Beach Annex"})
		require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
		loc := decode[store.Location](t, w)
		assert.Equal(t, store.LocationSub, loc.LocationType)

		w = e.do(t, http.MethodGet, "/api/companies/me/locations", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Beach Annex")

		w = e.do(t, http.MethodDelete, "/api/companies/me/locations/"+loc.ID, token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestTenantIsolation(t *testing.T) {
	e := newTestEnv(t)
	ownerA, _ := registerAdmin(t, e, "owner-a@example.com")
	completeScoping(t, e, ownerA)

	w := e.do(t, http.MethodGet, "/api/tasks?limit=1", ownerA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	task := decode[api.TaskListResponse](t, w).Tasks[0]

	body, formType := multipartUpload(t, "audit.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+task.ID+"/evidence", body)
	req.Header.Set("Content-Type", formType)
	req.Header.Set("Authorization", "Bearer "+ownerA)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	evidence := decode[store.Evidence](t, rec)

	w = e.do(t, http.MethodPost, "/api/meters", ownerA, gin.H{"meter_type": "electricity"})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	meter := decode[store.UtilityMeter](t, w)

	ownerB, _ := registerAdmin(t, e, "owner-b@example.com")

	t.Run("tasks", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/tasks/"+task.ID, ownerB, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = e.do(t, http.MethodPatch, "/api/tasks/"+task.ID, ownerB, gin.H{"status": "completed"})
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = e.do(t, http.MethodGet, "/api/tasks", ownerB, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, decode[api.TaskListResponse](t, w).TotalCount)
	})

	t.Run("evidence", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/tasks/"+task.ID+"/evidence", ownerB, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = e.do(t, http.MethodGet, "/api/evidence/"+evidence.ID+"/download", ownerB, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = e.do(t, http.MethodDelete, "/api/evidence/"+evidence.ID, ownerB, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("meters", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/meters/"+meter.ID+"/readings", ownerB, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = e.do(t, http.MethodPost, "/api/meters/"+meter.ID+"/readings", ownerB,
			gin.H{"reading_date": "2026-01-31T00:00:00Z", "consumption_amount": 100})
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = e.do(t, http.MethodGet, "/api/meters", ownerB, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decode[[]*store.UtilityMeter](t, w))
	})

	t.Run("first tenant unaffected", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/tasks/"+task.ID, ownerA, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = e.do(t, http.MethodGet, "/api/evidence/"+evidence.ID+"/download", ownerA, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
