package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aura-talk/internal/middleware"
	"aura-talk/internal/mocks"
	"aura-talk/internal/models"
)

func setupWorldRouter(handler *WorldHandler, uid string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, uid)
		c.Next()
	})
	r.GET("/world/messages", handler.GetMessages)
	r.POST("/world/messages", handler.SendMessage)
	return r
}

func TestWorldGetMessages(t *testing.T) {
	worldRepo := new(mocks.WorldRepositoryMock)
	handler := NewWorldHandler(worldRepo, nil, nil)
	router := setupWorldRouter(handler, "alice")

	worldRepo.On("Window", mock.Anything).Return([]models.Message{
		{ID: "m1", SenderID: "bob", Text: "hi all"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/world/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Channel  string           `json:"channel"`
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, models.WorldChannelID, resp.Channel)
	require.Len(t, resp.Messages, 1)

	worldRepo.AssertExpectations(t)
}

func TestWorldSendMessageSnapshotsSender(t *testing.T) {
	worldRepo := new(mocks.WorldRepositoryMock)
	profileRepo := new(mocks.ProfileRepositoryMock)
	handler := NewWorldHandler(worldRepo, profileRepo, nil)
	router := setupWorldRouter(handler, "alice")

	pic := "https://cdn.example/alice.png"
	profileRepo.On("GetProfile", mock.Anything, "alice").Return(models.UserProfile{
		UID: "alice", Username: "alice", ProfilePic: &pic,
	}, nil).Once()
	worldRepo.On("Append", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		return m.SenderID == "alice" && m.SenderUsername == "alice" &&
			m.SenderProfilePic != nil && *m.SenderProfilePic == pic && m.Text == "hi all"
	})).Return(models.Message{ID: "m2", Text: "hi all", Timestamp: time.Now()}, nil).Once()

	body := bytes.NewBufferString(`{"text":"hi all"}`)
	req := httptest.NewRequest(http.MethodPost, "/world/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	worldRepo.AssertExpectations(t)
	profileRepo.AssertExpectations(t)
}

func TestWorldSendMessageEmptyText(t *testing.T) {
	worldRepo := new(mocks.WorldRepositoryMock)
	handler := NewWorldHandler(worldRepo, new(mocks.ProfileRepositoryMock), nil)
	router := setupWorldRouter(handler, "alice")

	body := bytes.NewBufferString(`{"text":""}`)
	req := httptest.NewRequest(http.MethodPost, "/world/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	worldRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}
