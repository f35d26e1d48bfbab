package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/roshiend/retail-Link-sub000/internal/middleware"
	"github.com/roshiend/retail-Link-sub000/internal/repository"
)

const internalError = "Internal server error"

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func respondErrors(c *gin.Context, messages []string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": messages})
}

// respondStoreError maps repository errors onto the error envelopes. Anything
// unexpected is logged and hidden behind a 500.
func respondStoreError(c *gin.Context, logger *logrus.Entry, err error, label string) {
	if messages, ok := repository.IsValidation(err); ok {
		respondErrors(c, messages)
		return
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(c, http.StatusNotFound, label+" not found")
	case errors.Is(err, repository.ErrDuplicate):
		respondErrors(c, []string{err.Error()})
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"path":    c.FullPath(),
			"shop_id": middleware.GetShopID(c).String(),
		}).Error("Request failed")
		respondError(c, http.StatusInternalServerError, internalError)
	}
}

// paramID parses a uuid route parameter. Malformed ids answer 404 like any
// id that belongs to no visible row.
func paramID(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, http.StatusNotFound, label+" not found")
		return uuid.Nil, false
	}
	return id, true
}

// decodeForm reads a JSON body into dst. The fields may be wrapped in a root
// key, e.g. {"vendor": {...}}, or sent bare.
func decodeForm(c *gin.Context, root string, dst interface{}) error {
	body, err := c.GetRawData()
	if err != nil {
		return err
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if inner, ok := wrapped[root]; ok {
		body = inner
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid %s: %w", root, err)
	}
	return nil
}

// parseIDs keeps the well-formed ids; others cannot match any row
func parseIDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func actorID(c *gin.Context) string {
	if s := middleware.GetSession(c); s != nil {
		return s.UserID.String()
	}
	return ""
}
