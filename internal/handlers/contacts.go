package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"aura-talk/internal/ai"
	"aura-talk/internal/models"
	"aura-talk/internal/repositories"
)

// ContactsHandler implements contact discovery: an external suggestion call
// whose output is treated as untrusted text and filtered through the profile
// reverse index before anything reaches the caller.
type ContactsHandler struct {
	profiles  repositories.ProfileRepository
	chats     repositories.ChatRepository
	suggester ai.Suggester
}

// NewContactsHandler builds a ContactsHandler.
func NewContactsHandler(profiles repositories.ProfileRepository, chats repositories.ChatRepository, suggester ai.Suggester) *ContactsHandler {
	return &ContactsHandler{profiles: profiles, chats: chats, suggester: suggester}
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
}

// Search asks the suggestion service for candidates around the query, passing
// the caller's existing contacts so it can rank or exclude them. Candidate
// usernames that do not resolve through the reverse index are dropped, and
// the caller never appears in either list.
func (h *ContactsHandler) Search(c *gin.Context) {
	uid := currentUID(c)

	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is empty", "field": "query"})
		return
	}

	ctx := c.Request.Context()
	existing, err := h.existingContactUsernames(c, uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load contacts"})
		return
	}

	result, err := h.suggester.Suggest(ctx, ai.SuggestRequest{
		Query:            query,
		ExistingContacts: existing,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "suggestion service unavailable"})
		return
	}

	found, err := h.profiles.ResolveUsernames(ctx, result.SearchResults)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve usernames"})
		return
	}
	suggested, err := h.profiles.ResolveUsernames(ctx, result.SuggestedContacts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve usernames"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"search_results": excludeUID(found, uid),
		"suggestions":    excludeUID(suggested, uid),
	})
}

func (h *ContactsHandler) existingContactUsernames(c *gin.Context, uid string) ([]string, error) {
	chats, err := h.chats.ListChats(c.Request.Context(), uid)
	if err != nil {
		return nil, err
	}
	partnerIDs := make([]string, 0, len(chats))
	for _, chat := range chats {
		partnerIDs = append(partnerIDs, chat.Partner(uid))
	}
	partners, err := h.profiles.BulkProfiles(c.Request.Context(), partnerIDs)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(partners))
	for _, p := range partners {
		names = append(names, p.Username)
	}
	return names, nil
}

// excludeUID drops the caller from a result list regardless of what the
// suggestion service or the index lookup returned.
func excludeUID(profiles []models.UserProfile, uid string) []models.UserProfile {
	out := make([]models.UserProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.UID == uid {
			continue
		}
		out = append(out, p)
	}
	return out
}
