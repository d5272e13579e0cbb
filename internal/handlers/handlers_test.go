package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/eguard/eguard-backend/internal/handlers"
	"github.com/eguard/eguard-backend/internal/routes"
	"github.com/eguard/eguard-backend/internal/services"
	"github.com/eguard/eguard-backend/internal/store/storetest"
	"github.com/eguard/eguard-backend/pkg/xposed"
)

type cannedResponse struct {
	status int
	body   string
}

// fakeXposed answers like the provider. Unknown emails get a 404.
type fakeXposed struct {
	mu        sync.Mutex
	breaches  map[string]cannedResponse
	passwords cannedResponse
	requests  []string
}

func (f *fakeXposed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.URL.String())

	var resp cannedResponse
	switch {
	case r.URL.Path == "/breach-analytics":
		var ok bool
		if resp, ok = f.breaches[r.URL.Query().Get("email")]; !ok {
			resp = cannedResponse{status: http.StatusNotFound, body: `{"Error":"Not found"}`}
		}
	case strings.HasPrefix(r.URL.Path, "/pass/anon/"):
		resp = f.passwords
	default:
		resp = cannedResponse{status: http.StatusNotFound}
	}
	if resp.status == 0 {
		resp.status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

type testEnv struct {
	router   http.Handler
	tokens   *services.TokenService
	checks   *storetest.Checks
	provider *fakeXposed
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()

	provider := &fakeXposed{breaches: map[string]cannedResponse{}}
	upstream := httptest.NewServer(provider)
	t.Cleanup(upstream.Close)

	client := xposed.NewClient(upstream.URL, upstream.URL, time.Second)
	users, checks := storetest.NewUsers(), storetest.NewChecks()
	tokens := services.NewTokenService(secret)

	h := handlers.New(
		services.NewAuthService(users, tokens),
		services.NewCheckService(checks, services.NewBreachGateway(client), services.NewCacheService(nil), time.Minute),
		services.NewDashboardService(users, checks),
		services.NewPasswordService(client),
		handlers.Options{},
	)

	r := chi.NewRouter()
	routes.SetupRoutes(r, h, tokens)
	return &testEnv{router: r, tokens: tokens, checks: checks, provider: provider}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if s, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(s))
	} else if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.5:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

// signUp registers and logs in a user, returning the bearer token.
func (e *testEnv) signUp(t *testing.T, email string) string {
	t.Helper()
	code, _ := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Test User", "email": email, "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, code)

	code, body := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, code)
	return body["token"].(string)
}

const adobeBreach = `{"ExposedBreaches":{"breaches_details":[
	{"breach":"Adobe","domain":"adobe.com","xposed_date":"2013","xposed_data":"Email addresses;Passwords","xposed_records":152445165},
	{"breach":"Canva","domain":"canva.com","xposed_date":"2019","xposed_data":"Names;Usernames","xposed_records":137272116}
]}}`
