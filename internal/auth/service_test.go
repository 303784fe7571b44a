package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func hashKey(t *testing.T, key string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthenticateAndValidate(t *testing.T) {
	svc := NewService("test-secret", hashKey(t, "letmein"))

	result, err := svc.Authenticate("letmein")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.SessionID)

	sessionID, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.SessionID, sessionID)
}

func TestAuthenticateRejectsWrongKey(t *testing.T) {
	svc := NewService("test-secret", hashKey(t, "letmein"))
	_, err := svc.Authenticate("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEmptyHashAllowsAnyKey(t *testing.T) {
	svc := NewService("test-secret", "")
	_, err := svc.Authenticate("anything")
	assert.NoError(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewService("secret-a", "")
	verifier := NewService("secret-b", "")

	result, err := issuer.Authenticate("")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(result.Token)
	assert.Error(t, err)

	_, err = verifier.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	svc := NewService("test-secret", "")
	result, err := svc.Authenticate("")
	require.NoError(t, err)

	var gotSession string
	handler := svc.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/diagrams", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, result.SessionID, gotSession)

	for name, header := range map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"garbage token":  "Bearer garbage",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/diagrams", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
