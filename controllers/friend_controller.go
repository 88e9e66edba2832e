package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"sparkshare-api/services"
	"sparkshare-api/utils"
)

type FriendController struct {
	friends *services.FriendService
	log     logrus.FieldLogger
}

func NewFriendController(friends *services.FriendService, log logrus.FieldLogger) *FriendController {
	return &FriendController{
		friends: friends,
		log:     log,
	}
}

type createInvitationRequest struct {
	Email string `json:"email" binding:"required"`
}

func (fc *FriendController) CreateInvitation(c *gin.Context) {
	var req createInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	invitation, err := fc.friends.CreateInvitation(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, fc.log, err)
		return
	}

	utils.SendCreated(c, "Invitation sent successfully", invitation)
}

func (fc *FriendController) GetPendingInvitations(c *gin.Context) {
	invitations, err := fc.friends.GetPendingInvitations(c.Request.Context())
	if err != nil {
		respondError(c, fc.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

func (fc *FriendController) GetSentInvitations(c *gin.Context) {
	invitations, err := fc.friends.GetSentInvitations(c.Request.Context())
	if err != nil {
		respondError(c, fc.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

func (fc *FriendController) AcceptInvitation(c *gin.Context) {
	friendship, err := fc.friends.AcceptInvitation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, fc.log, err)
		return
	}

	utils.SendSuccess(c, "Invitation accepted", friendship)
}

func (fc *FriendController) RejectInvitation(c *gin.Context) {
	if err := fc.friends.RejectInvitation(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, fc.log, err)
		return
	}

	utils.SendSuccess(c, "Invitation rejected", nil)
}

func (fc *FriendController) DeleteInvitation(c *gin.Context) {
	if err := fc.friends.DeleteInvitation(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, fc.log, err)
		return
	}

	utils.SendSuccess(c, "Invitation deleted", nil)
}

func (fc *FriendController) GetFriends(c *gin.Context) {
	friends, err := fc.friends.GetFriends(c.Request.Context())
	if err != nil {
		respondError(c, fc.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"friends": friends,
		"count":   len(friends),
	})
}

func (fc *FriendController) RemoveFriend(c *gin.Context) {
	if err := fc.friends.RemoveFriend(c.Request.Context(), c.Param("user_id")); err != nil {
		respondError(c, fc.log, err)
		return
	}

	utils.SendSuccess(c, "Friend removed successfully", nil)
}

func (fc *FriendController) GetFriendshipStatus(c *gin.Context) {
	status, err := fc.friends.GetFriendshipStatus(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, fc.log, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
