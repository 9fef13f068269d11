package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/socialchef/scribe/internal/config"
	apperrors "github.com/socialchef/scribe/internal/errors"
)

type MockAllowList struct {
	mock.Mock
}

func (m *MockAllowList) Grant(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAllowList) List(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func testConfig(secret string) *config.Config {
	return &config.Config{
		ServiceName:    "scribe",
		AdminID:        42,
		AdminJWTSecret: secret,
	}
}

func adminToken(t *testing.T, secret string, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"iss": "scribe",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestHandleAlive(t *testing.T) {
	srv := NewServer(testConfig(""), nil)

	rr := httptest.NewRecorder()
	srv.HandleAlive(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "I'm alive", rr.Body.String())
}

func TestHandleHealth(t *testing.T) {
	srv := NewServer(testConfig(""), nil)

	rr := httptest.NewRecorder()
	srv.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestHandleListAllowedUsers(t *testing.T) {
	users := new(MockAllowList)
	users.On("List", mock.Anything).Return([]int64{7, 99}, nil)
	srv := NewServer(testConfig("s"), users)

	rr := httptest.NewRecorder()
	srv.HandleListAllowedUsers(rr, httptest.NewRequest(http.MethodGet, "/api/allowed-users", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp AllowedUsersResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, []int64{7, 99}, resp.UserIDs)
}

func TestHandleListAllowedUsers_Empty(t *testing.T) {
	users := new(MockAllowList)
	users.On("List", mock.Anything).Return(nil, nil)
	srv := NewServer(testConfig("s"), users)

	rr := httptest.NewRecorder()
	srv.HandleListAllowedUsers(rr, httptest.NewRequest(http.MethodGet, "/api/allowed-users", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"user_ids":[]}`, rr.Body.String())
}

func TestHandleListAllowedUsers_StoreError(t *testing.T) {
	users := new(MockAllowList)
	users.On("List", mock.Anything).Return(nil, errors.New("db down"))
	srv := NewServer(testConfig("s"), users)

	rr := httptest.NewRecorder()
	srv.HandleListAllowedUsers(rr, httptest.NewRequest(http.MethodGet, "/api/allowed-users", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "db down")
}

func TestHandleAddAllowedUser(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		grantAdded     bool
		grantErr       error
		expectGrant    bool
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "new user",
			body:           `{"user_id":555}`,
			grantAdded:     true,
			expectGrant:    true,
			expectedStatus: http.StatusCreated,
			expectedBody:   `{"user_id":555,"added":true}`,
		},
		{
			name:           "existing user",
			body:           `{"user_id":555}`,
			grantAdded:     false,
			expectGrant:    true,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"user_id":555,"added":false}`,
		},
		{
			name:           "malformed body",
			body:           `{"user_id":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "non numeric id",
			body:           `{"user_id":"abc"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "zero id",
			body:           `{"user_id":0}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "store failure",
			body:           `{"user_id":555}`,
			grantErr:       apperrors.NewStorageError("write failed", "ALLOWLIST_WRITE_ERROR", errors.New("disk full")),
			expectGrant:    true,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockAllowList)
			if tt.expectGrant {
				users.On("Grant", mock.Anything, int64(555)).Return(tt.grantAdded, tt.grantErr)
			}
			srv := NewServer(testConfig("s"), users)

			req := httptest.NewRequest(http.MethodPost, "/api/allowed-users", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			srv.HandleAddAllowedUser(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			}
			users.AssertExpectations(t)
		})
	}
}

func TestRouter_KeepAlive(t *testing.T) {
	srv := NewServer(testConfig(""), nil)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for path, want := range map[string]string{"/": "I'm alive", "/health": "OK"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		buf := new(strings.Builder)
		_, err = io.Copy(buf, resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, want, buf.String(), path)
	}
}

func TestRouter_AdminRoutesDisabledWithoutSecret(t *testing.T) {
	srv := NewServer(testConfig(""), new(MockAllowList))

	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/allowed-users", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_AdminRoutesRequireToken(t *testing.T) {
	const secret = "admin-secret"
	users := new(MockAllowList)
	users.On("Grant", mock.Anything, int64(77)).Return(true, nil)
	handler := NewServer(testConfig(secret), users).Router()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/allowed-users", strings.NewReader(`{"user_id":77}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/allowed-users", strings.NewReader(`{"user_id":77}`))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, secret, "13"))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/allowed-users", strings.NewReader(`{"user_id":77}`))
	req.Header.Set("Authorization", "Bearer "+adminToken(t, secret, "42"))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"user_id":77,"added":true}`, rr.Body.String())

	users.AssertExpectations(t)
}
