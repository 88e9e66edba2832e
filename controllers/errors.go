package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"sparkshare-api/services"
	"sparkshare-api/utils"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrSelfInvitation),
		errors.Is(err, services.ErrInvalidSharedItem),
		errors.Is(err, services.ErrSelfShare):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotInvitationRecipient),
		errors.Is(err, services.ErrNotInvitationSender),
		errors.Is(err, services.ErrNotSharedItemRecipient),
		errors.Is(err, services.ErrNotFriends):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvitationNotFound),
		errors.Is(err, services.ErrFriendshipNotFound),
		errors.Is(err, services.ErrProfileNotFound),
		errors.Is(err, services.ErrSharedItemNotFound),
		errors.Is(err, services.ErrSparkNotRegistered),
		errors.Is(err, services.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateInvitation),
		errors.Is(err, services.ErrAlreadyFriends),
		errors.Is(err, services.ErrInvitationResolved),
		errors.Is(err, services.ErrInvitationAccepted),
		errors.Is(err, services.ErrSharedItemResolved):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a utils.ErrorResponse. Internal errors are
// logged and hidden from the client.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		utils.SendError(c, status, "Internal server error")
		return
	}
	utils.SendError(c, status, err.Error())
}
