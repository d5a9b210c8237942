package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"aura-talk/internal/ai"
	"aura-talk/internal/models"
	"aura-talk/internal/storage"
)

type ProfileRepositoryMock struct {
	mock.Mock
}

func (m *ProfileRepositoryMock) GetProfile(ctx context.Context, uid string) (models.UserProfile, error) {
	args := m.Called(ctx, uid)
	var p models.UserProfile
	if val := args.Get(0); val != nil {
		p = val.(models.UserProfile)
	}
	return p, args.Error(1)
}

func (m *ProfileRepositoryMock) BulkProfiles(ctx context.Context, uids []string) ([]models.UserProfile, error) {
	args := m.Called(ctx, uids)
	var out []models.UserProfile
	if val := args.Get(0); val != nil {
		out = val.([]models.UserProfile)
	}
	return out, args.Error(1)
}

func (m *ProfileRepositoryMock) LookupUsername(ctx context.Context, username string) (string, error) {
	args := m.Called(ctx, username)
	return args.String(0), args.Error(1)
}

func (m *ProfileRepositoryMock) ResolveUsernames(ctx context.Context, usernames []string) ([]models.UserProfile, error) {
	args := m.Called(ctx, usernames)
	var out []models.UserProfile
	if val := args.Get(0); val != nil {
		out = val.([]models.UserProfile)
	}
	return out, args.Error(1)
}

func (m *ProfileRepositoryMock) CreateProfileWithUsername(ctx context.Context, profile models.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *ProfileRepositoryMock) RenameUsername(ctx context.Context, uid, oldName, newName string) error {
	args := m.Called(ctx, uid, oldName, newName)
	return args.Error(0)
}

func (m *ProfileRepositoryMock) UpdateEmail(ctx context.Context, uid, email string) error {
	args := m.Called(ctx, uid, email)
	return args.Error(0)
}

func (m *ProfileRepositoryMock) UpdateProfilePic(ctx context.Context, uid, url string) error {
	args := m.Called(ctx, uid, url)
	return args.Error(0)
}

func (m *ProfileRepositoryMock) TouchLastActive(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, chatID string, msg models.DirectMessage) (models.DirectMessage, error) {
	args := m.Called(ctx, chatID, msg)
	var out models.DirectMessage
	if val := args.Get(0); val != nil {
		out = val.(models.DirectMessage)
	}
	return out, args.Error(1)
}

func (m *MessageRepositoryMock) Window(ctx context.Context, chatID string) ([]models.DirectMessage, error) {
	args := m.Called(ctx, chatID)
	var out []models.DirectMessage
	if val := args.Get(0); val != nil {
		out = val.([]models.DirectMessage)
	}
	return out, args.Error(1)
}

type WorldRepositoryMock struct {
	mock.Mock
}

func (m *WorldRepositoryMock) Append(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var out models.Message
	if val := args.Get(0); val != nil {
		out = val.(models.Message)
	}
	return out, args.Error(1)
}

func (m *WorldRepositoryMock) Window(ctx context.Context) ([]models.Message, error) {
	args := m.Called(ctx)
	var out []models.Message
	if val := args.Get(0); val != nil {
		out = val.([]models.Message)
	}
	return out, args.Error(1)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) UpsertSummary(ctx context.Context, chatID string, members []string, lastMessage string, lastMessageTS time.Time) error {
	args := m.Called(ctx, chatID, members, lastMessage, lastMessageTS)
	return args.Error(0)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) ListChats(ctx context.Context, uid string) ([]models.Chat, error) {
	args := m.Called(ctx, uid)
	var out []models.Chat
	if val := args.Get(0); val != nil {
		out = val.([]models.Chat)
	}
	return out, args.Error(1)
}

type IdentityProviderMock struct {
	mock.Mock
}

func (m *IdentityProviderMock) Create(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *IdentityProviderMock) Verify(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *IdentityProviderMock) UpdateEmail(ctx context.Context, uid, newEmail, currentPassword string) error {
	args := m.Called(ctx, uid, newEmail, currentPassword)
	return args.Error(0)
}

func (m *IdentityProviderMock) Delete(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

type SuggesterMock struct {
	mock.Mock
}

func (m *SuggesterMock) Suggest(ctx context.Context, req ai.SuggestRequest) (ai.SuggestResponse, error) {
	args := m.Called(ctx, req)
	var out ai.SuggestResponse
	if val := args.Get(0); val != nil {
		out = val.(ai.SuggestResponse)
	}
	return out, args.Error(1)
}

type AvatarStoreMock struct {
	mock.Mock
}

func (m *AvatarStoreMock) Upload(ctx context.Context, uid string, r io.Reader, size int64, contentType string, progress storage.ProgressFunc) (string, error) {
	args := m.Called(ctx, uid, size, contentType)
	return args.String(0), args.Error(1)
}
