package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"aura-talk/internal/identity"
	"aura-talk/internal/repositories"
	"aura-talk/internal/storage"
)

// ProfileHandler manages the caller's own profile settings.
type ProfileHandler struct {
	profiles repositories.ProfileRepository
	ids      identity.Provider
	avatars  storage.AvatarStore
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(profiles repositories.ProfileRepository, ids identity.Provider, avatars storage.AvatarStore) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, ids: ids, avatars: avatars}
}

// Me returns the caller's profile.
func (h *ProfileHandler) Me(c *gin.Context) {
	profile, err := h.profiles.GetProfile(c.Request.Context(), currentUID(c))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrProfileNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

type updateProfileRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
}

// Update applies username and email changes. Each field commits on its own:
// a failed email change does not roll back an already-applied username
// change. A username change swaps the reverse-index entry atomically; an
// email change requires the current password and fails hard without it.
func (h *ProfileHandler) Update(c *gin.Context) {
	uid := currentUID(c)

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	profile, err := h.profiles.GetProfile(ctx, uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	if req.Username != "" && req.Username != profile.Username {
		if !usernameRe.MatchString(req.Username) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username", "field": "username",
				"message": "username must be 3-20 characters: letters, numbers, underscores"})
			return
		}
		if err := h.profiles.RenameUsername(ctx, uid, profile.Username, req.Username); err != nil {
			if errors.Is(err, repositories.ErrUsernameTaken) {
				c.JSON(http.StatusConflict, gin.H{"error": "username taken", "field": "username",
					"message": "this username is already in use"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change username"})
			return
		}
	}

	if req.Email != "" && req.Email != profile.Email {
		if req.CurrentPassword == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "re-authentication required", "field": "email",
				"message": "changing email requires your current password"})
			return
		}
		if err := h.ids.UpdateEmail(ctx, uid, req.Email, req.CurrentPassword); err != nil {
			switch {
			case errors.Is(err, identity.ErrInvalidCredentials):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "re-authentication failed"})
			case errors.Is(err, identity.ErrEmailInUse):
				c.JSON(http.StatusConflict, gin.H{"error": "email in use", "field": "email",
					"message": "this email is already registered"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change email"})
			}
			return
		}
		if err := h.profiles.UpdateEmail(ctx, uid, req.Email); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change email"})
			return
		}
	}

	if err := h.profiles.TouchLastActive(ctx, uid); err != nil {
		log.Warn().Err(err).Str("uid", uid).Msg("failed to bump last_active")
	}

	updated, err := h.profiles.GetProfile(ctx, uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// UploadAvatar streams the uploaded image to blob storage and stores the
// returned reference URL on the profile. An upload failure aborts only this
// step; field edits made earlier through Update stay committed.
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	if h.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "avatar storage not configured"})
		return
	}
	uid := currentUID(c)

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing avatar file"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable avatar file"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.avatars.Upload(c.Request.Context(), uid, file, fileHeader.Size, contentType,
		func(fraction float64) {
			log.Debug().Str("uid", uid).Float64("fraction", fraction).Msg("avatar upload progress")
		})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "avatar upload failed"})
		return
	}

	ctx := c.Request.Context()
	if err := h.profiles.UpdateProfilePic(ctx, uid, url); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store avatar reference"})
		return
	}
	if err := h.profiles.TouchLastActive(ctx, uid); err != nil {
		log.Warn().Err(err).Str("uid", uid).Msg("failed to bump last_active")
	}

	c.JSON(http.StatusOK, gin.H{"profile_pic": url})
}
