package api

import (
	"net/http"

	"royale/domain/entities"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// statusForKind maps a business failure to its HTTP status. Infrastructure
// failures are the only ones that ever produce a 5xx.
func statusForKind(kind entities.ErrorKind) int {
	switch kind {
	case entities.ErrKindNotLoggedIn, entities.ErrKindInvalidCredentials:
		return http.StatusUnauthorized
	case entities.ErrKindNotAuthorized:
		return http.StatusForbidden
	case entities.ErrKindRaffleNotFound, entities.ErrKindUserNotFound, entities.ErrKindPollNotFound:
		return http.StatusNotFound
	case entities.ErrKindUsernameTaken, entities.ErrKindAlreadyClaimed:
		return http.StatusConflict
	case entities.ErrKindPaymentDeclined:
		return http.StatusPaymentRequired
	case entities.ErrKindInvalidCount, entities.ErrKindInvalidOption, entities.ErrKindInvalidAmount:
		return http.StatusBadRequest
	case entities.ErrKindRaffleEnded, entities.ErrKindPollClosed, entities.ErrKindSoldOut,
		entities.ErrKindPerUserLimit, entities.ErrKindInsufficientBalance:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the uniform failure envelope
func respondError(c *gin.Context, err error) {
	kind := entities.KindOf(err)
	status := statusForKind(kind)

	body := gin.H{"ok": false, "error": err.Error()}
	if kind != "" {
		body["code"] = string(kind)
	} else {
		// Don't leak internals on infrastructure failures
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		body["error"] = "Something went wrong"
	}

	c.JSON(status, body)
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
}
