package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"sparkshare-api/services"
)

type UserController struct {
	users *services.UserService
	log   logrus.FieldLogger
}

func NewUserController(users *services.UserService, log logrus.FieldLogger) *UserController {
	return &UserController{users: users, log: log}
}

func (uc *UserController) GetProfile(c *gin.Context) {
	user, err := uc.users.GetProfile(c.Request.Context())
	if err != nil {
		respondError(c, uc.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// SyncProfile refreshes the stored profile from the token claims.
func (uc *UserController) SyncProfile(c *gin.Context) {
	user, err := uc.users.SyncProfile(c.Request.Context())
	if err != nil {
		respondError(c, uc.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
