package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"aura-talk/internal/identity"
	"aura-talk/internal/models"
	"aura-talk/internal/repositories"
	"aura-talk/internal/telemetry"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// AuthHandler manages signup and login.
type AuthHandler struct {
	profiles  repositories.ProfileRepository
	ids       identity.Provider
	emitter   *telemetry.AuditEmitter
	jwtSecret string
	tokenTTL  int
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(profiles repositories.ProfileRepository, ids identity.Provider, emitter *telemetry.AuditEmitter, jwtSecret string, tokenTTLMinutes int) *AuthHandler {
	return &AuthHandler{
		profiles:  profiles,
		ids:       ids,
		emitter:   emitter,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTLMinutes,
	}
}

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Signup reserves a username and creates the identity plus profile.
//
// The username reservation runs through the reverse index: a taken name is a
// terminal rejection with zero writes. The identity is created first, then
// profile and index entry land in one transaction; if that transaction fails
// the fresh identity is deleted again so no account exists without a profile.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !usernameRe.MatchString(req.Username) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username", "field": "username",
			"message": "username must be 3-20 characters: letters, numbers, underscores"})
		return
	}
	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password", "field": "password",
			"message": "password must be at least 6 characters"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.profiles.LookupUsername(ctx, req.Username); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username taken", "field": "username",
			"message": "this username is already in use"})
		return
	} else if !errors.Is(err, repositories.ErrProfileNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check username"})
		return
	}

	uid, err := h.ids.Create(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailInUse) {
			c.JSON(http.StatusConflict, gin.H{"error": "email in use", "field": "email",
				"message": "this email is already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	profile := models.UserProfile{
		UID:      uid,
		Username: req.Username,
		Email:    req.Email,
	}
	if err := h.profiles.CreateProfileWithUsername(ctx, profile); err != nil {
		// Compensate: the identity exists but has no profile. Delete it so a
		// retry of the signup starts clean.
		if delErr := h.ids.Delete(ctx, uid); delErr != nil {
			log.Error().Err(delErr).Str("uid", uid).Msg("failed to delete orphaned identity")
		}
		h.emitter.Emit(ctx, "WARN", "signup compensated: profile write failed", requestIDFromContext(c), &uid)

		if errors.Is(err, repositories.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username taken", "field": "username",
				"message": "this username is already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create profile"})
		return
	}

	created, err := h.profiles.GetProfile(ctx, uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	token, err := identity.GenerateToken(uid, h.jwtSecret, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "profile": created})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and returns a session token plus profile.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	uid, err := h.ids.Verify(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	profile, err := h.profiles.GetProfile(ctx, uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	if err := h.profiles.TouchLastActive(ctx, uid); err != nil {
		log.Warn().Err(err).Str("uid", uid).Msg("failed to bump last_active")
	}

	token, err := identity.GenerateToken(uid, h.jwtSecret, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "profile": profile})
}
