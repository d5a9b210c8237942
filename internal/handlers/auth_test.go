package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aura-talk/internal/identity"
	"aura-talk/internal/mocks"
	"aura-talk/internal/models"
	"aura-talk/internal/repositories"
)

const testSecret = "test-secret"

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/signup", handler.Signup)
	r.POST("/auth/login", handler.Login)
	return r
}

func TestSignupSuccess(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	ids := new(mocks.IdentityProviderMock)
	handler := NewAuthHandler(profileRepo, ids, nil, testSecret, 60)
	router := setupAuthRouter(handler)

	profileRepo.On("LookupUsername", mock.Anything, "newuser").Return("", repositories.ErrProfileNotFound).Once()
	ids.On("Create", mock.Anything, "new@example.com", "secret1").Return("uid-1", nil).Once()
	profileRepo.On("CreateProfileWithUsername", mock.Anything, mock.MatchedBy(func(p models.UserProfile) bool {
		return p.UID == "uid-1" && p.Username == "newuser" && p.Email == "new@example.com"
	})).Return(nil).Once()
	profileRepo.On("GetProfile", mock.Anything, "uid-1").Return(models.UserProfile{UID: "uid-1", Username: "newuser"}, nil).Once()

	body := bytes.NewBufferString(`{"username":"newuser","email":"new@example.com","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp, "token")
	assert.Contains(t, resp, "profile")

	profileRepo.AssertExpectations(t)
	ids.AssertExpectations(t)
}

func TestSignupTakenUsernameNoIdentityCreated(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	ids := new(mocks.IdentityProviderMock)
	handler := NewAuthHandler(profileRepo, ids, nil, testSecret, 60)
	router := setupAuthRouter(handler)

	profileRepo.On("LookupUsername", mock.Anything, "taken").Return("other-uid", nil).Once()

	body := bytes.NewBufferString(`{"username":"taken","email":"new@example.com","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"username"`)
	ids.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	profileRepo.AssertNotCalled(t, "CreateProfileWithUsername", mock.Anything, mock.Anything)
}

func TestSignupProfileWriteFailureDeletesIdentity(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	ids := new(mocks.IdentityProviderMock)
	handler := NewAuthHandler(profileRepo, ids, nil, testSecret, 60)
	router := setupAuthRouter(handler)

	profileRepo.On("LookupUsername", mock.Anything, "racer").Return("", repositories.ErrProfileNotFound).Once()
	ids.On("Create", mock.Anything, "racer@example.com", "secret1").Return("uid-9", nil).Once()
	profileRepo.On("CreateProfileWithUsername", mock.Anything, mock.Anything).Return(repositories.ErrUsernameTaken).Once()
	ids.On("Delete", mock.Anything, "uid-9").Return(nil).Once()

	body := bytes.NewBufferString(`{"username":"racer","email":"racer@example.com","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	ids.AssertExpectations(t)
	profileRepo.AssertExpectations(t)
}

func TestSignupEmailInUse(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	ids := new(mocks.IdentityProviderMock)
	handler := NewAuthHandler(profileRepo, ids, nil, testSecret, 60)
	router := setupAuthRouter(handler)

	profileRepo.On("LookupUsername", mock.Anything, "newuser").Return("", repositories.ErrProfileNotFound).Once()
	ids.On("Create", mock.Anything, "dup@example.com", "secret1").Return("", identity.ErrEmailInUse).Once()

	body := bytes.NewBufferString(`{"username":"newuser","email":"dup@example.com","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"email"`)
	// No compensation runs: the identity was never created.
	ids.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestSignupRejectsBadUsername(t *testing.T) {
	handler := NewAuthHandler(new(mocks.ProfileRepositoryMock), new(mocks.IdentityProviderMock), nil, testSecret, 60)
	router := setupAuthRouter(handler)

	body := bytes.NewBufferString(`{"username":"x!","email":"a@b.com","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginSuccess(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	ids := new(mocks.IdentityProviderMock)
	handler := NewAuthHandler(profileRepo, ids, nil, testSecret, 60)
	router := setupAuthRouter(handler)

	ids.On("Verify", mock.Anything, "a@b.com", "secret1").Return("uid-1", nil).Once()
	profileRepo.On("GetProfile", mock.Anything, "uid-1").Return(models.UserProfile{UID: "uid-1", Username: "alice"}, nil).Once()
	profileRepo.On("TouchLastActive", mock.Anything, "uid-1").Return(nil).Once()

	body := bytes.NewBufferString(`{"email":"a@b.com","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	var token string
	require.NoError(t, json.Unmarshal(resp["token"], &token))
	claims, err := identity.ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UID)

	ids.AssertExpectations(t)
	profileRepo.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	ids := new(mocks.IdentityProviderMock)
	handler := NewAuthHandler(new(mocks.ProfileRepositoryMock), ids, nil, testSecret, 60)
	router := setupAuthRouter(handler)

	ids.On("Verify", mock.Anything, "a@b.com", "wrong").Return("", identity.ErrInvalidCredentials).Once()

	body := bytes.NewBufferString(`{"email":"a@b.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	ids.AssertExpectations(t)
}
