package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eguard/eguard-backend/internal/services"
)

type stubVerifier struct {
	userID string
	err    error
}

func (s stubVerifier) Verify(string) (string, error) { return s.userID, s.err }

func serveAuth(t *testing.T, v TokenVerifier, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	h := RequireAuth(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/breach/stats", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireAuth_Accepts(t *testing.T) {
	tokens := services.NewTokenService("test-secret")
	token, err := tokens.Issue("65f0c0ffee0000000000abcd")
	require.NoError(t, err)

	rec, userID := serveAuth(t, tokens, "Bearer "+token)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "65f0c0ffee0000000000abcd", userID)
}

func TestRequireAuth_MissingToken(t *testing.T) {
	for _, header := range []string{"", "Basic abc", "Bearer ", "bearer abc"} {
		rec, userID := serveAuth(t, stubVerifier{userID: "x"}, header)
		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
		require.Empty(t, userID)

		body := decode(t, rec)
		require.Equal(t, "No token, authorization denied", body["error"])
		require.Equal(t, "Include 'Bearer <token>' in Authorization header", body["hint"])
		require.Equal(t, false, body["success"])
	}
}

func TestRequireAuth_VerifyFailures(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{services.ErrExpiredToken, http.StatusUnauthorized, "Token expired"},
		{services.ErrMalformedClaims, http.StatusUnauthorized, "Invalid token structure"},
		{services.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
		{errors.New("anything else"), http.StatusUnauthorized, "Invalid token"},
		{services.ErrMissingSecret, http.StatusInternalServerError, "Server configuration error"},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			rec, userID := serveAuth(t, stubVerifier{err: tt.err}, "Bearer abc.def.ghi")
			require.Equal(t, tt.status, rec.Code)
			require.Empty(t, userID)
			require.Equal(t, tt.msg, decode(t, rec)["error"])
		})
	}
}
