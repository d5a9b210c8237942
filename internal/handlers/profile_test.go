package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aura-talk/internal/identity"
	"aura-talk/internal/middleware"
	"aura-talk/internal/mocks"
	"aura-talk/internal/models"
	"aura-talk/internal/repositories"
)

func setupProfileRouter(handler *ProfileHandler, uid string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, uid)
		c.Next()
	})
	r.GET("/profile", handler.Me)
	r.PUT("/profile", handler.Update)
	r.POST("/profile/avatar", handler.UploadAvatar)
	return r
}

func TestProfileMe(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	handler := NewProfileHandler(profileRepo, new(mocks.IdentityProviderMock), nil)
	router := setupProfileRouter(handler, "uid-1")

	profileRepo.On("GetProfile", mock.Anything, "uid-1").Return(models.UserProfile{UID: "uid-1", Username: "alice"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alice"`)
	profileRepo.AssertExpectations(t)
}

func TestProfileUpdateRenameConflict(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	handler := NewProfileHandler(profileRepo, new(mocks.IdentityProviderMock), nil)
	router := setupProfileRouter(handler, "uid-1")

	profileRepo.On("GetProfile", mock.Anything, "uid-1").Return(models.UserProfile{UID: "uid-1", Username: "alice"}, nil).Once()
	profileRepo.On("RenameUsername", mock.Anything, "uid-1", "alice", "bob").Return(repositories.ErrUsernameTaken).Once()

	body := bytes.NewBufferString(`{"username":"bob"}`)
	req := httptest.NewRequest(http.MethodPut, "/profile", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"username"`)
	profileRepo.AssertExpectations(t)
}

func TestProfileUpdateEmailRequiresPassword(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	ids := new(mocks.IdentityProviderMock)
	handler := NewProfileHandler(profileRepo, ids, nil)
	router := setupProfileRouter(handler, "uid-1")

	profileRepo.On("GetProfile", mock.Anything, "uid-1").Return(models.UserProfile{UID: "uid-1", Username: "alice", Email: "old@b.com"}, nil).Once()

	body := bytes.NewBufferString(`{"email":"new@b.com"}`)
	req := httptest.NewRequest(http.MethodPut, "/profile", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	ids.AssertNotCalled(t, "UpdateEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProfileUpdateEmailWrongPasswordHardFail(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	ids := new(mocks.IdentityProviderMock)
	handler := NewProfileHandler(profileRepo, ids, nil)
	router := setupProfileRouter(handler, "uid-1")

	profileRepo.On("GetProfile", mock.Anything, "uid-1").Return(models.UserProfile{UID: "uid-1", Username: "alice", Email: "old@b.com"}, nil).Once()
	ids.On("UpdateEmail", mock.Anything, "uid-1", "new@b.com", "wrong").Return(identity.ErrInvalidCredentials).Once()

	body := bytes.NewBufferString(`{"email":"new@b.com","current_password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPut, "/profile", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	// The profile copy of the email is never touched on a failed change.
	profileRepo.AssertNotCalled(t, "UpdateEmail", mock.Anything, mock.Anything, mock.Anything)
	ids.AssertExpectations(t)
}

func TestProfileUpdateIndependentFields(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	ids := new(mocks.IdentityProviderMock)
	handler := NewProfileHandler(profileRepo, ids, nil)
	router := setupProfileRouter(handler, "uid-1")

	profileRepo.On("GetProfile", mock.Anything, "uid-1").Return(models.UserProfile{UID: "uid-1", Username: "alice", Email: "old@b.com"}, nil).Once()
	profileRepo.On("RenameUsername", mock.Anything, "uid-1", "alice", "alice2").Return(nil).Once()
	ids.On("UpdateEmail", mock.Anything, "uid-1", "new@b.com", "secret1").Return(nil).Once()
	profileRepo.On("UpdateEmail", mock.Anything, "uid-1", "new@b.com").Return(nil).Once()
	profileRepo.On("TouchLastActive", mock.Anything, "uid-1").Return(nil).Once()
	profileRepo.On("GetProfile", mock.Anything, "uid-1").Return(models.UserProfile{UID: "uid-1", Username: "alice2", Email: "new@b.com"}, nil).Once()

	body := bytes.NewBufferString(`{"username":"alice2","email":"new@b.com","current_password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPut, "/profile", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice2")
	profileRepo.AssertExpectations(t)
	ids.AssertExpectations(t)
}

func TestUploadAvatarStoresReference(t *testing.T) {
	profileRepo := new(mocks.ProfileRepositoryMock)
	avatars := new(mocks.AvatarStoreMock)
	handler := NewProfileHandler(profileRepo, new(mocks.IdentityProviderMock), avatars)
	router := setupProfileRouter(handler, "uid-1")

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	url := "https://cdn.example/aura-avatars/avatars/uid-1?v=1"
	avatars.On("Upload", mock.Anything, "uid-1", int64(9), mock.Anything).Return(url, nil).Once()
	profileRepo.On("UpdateProfilePic", mock.Anything, "uid-1", url).Return(nil).Once()
	profileRepo.On("TouchLastActive", mock.Anything, "uid-1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/profile/avatar", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "avatars/uid-1")
	avatars.AssertExpectations(t)
	profileRepo.AssertExpectations(t)
}

func TestUploadAvatarUnconfigured(t *testing.T) {
	handler := NewProfileHandler(new(mocks.ProfileRepositoryMock), new(mocks.IdentityProviderMock), nil)
	router := setupProfileRouter(handler, "uid-1")

	req := httptest.NewRequest(http.MethodPost, "/profile/avatar", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
