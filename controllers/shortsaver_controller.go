package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"sparkshare-api/sparks/shortsaver"
	"sparkshare-api/utils"
)

type ShortSaverController struct {
	spark *shortsaver.Spark
	log   logrus.FieldLogger
}

func NewShortSaverController(spark *shortsaver.Spark, log logrus.FieldLogger) *ShortSaverController {
	return &ShortSaverController{spark: spark, log: log}
}

func (sc *ShortSaverController) GetClips(c *gin.Context) {
	clips, err := sc.spark.Clips(c.Request.Context())
	if err != nil {
		respondError(c, sc.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clips": clips,
		"count": len(clips),
	})
}

func (sc *ShortSaverController) SaveClip(c *gin.Context) {
	var req shortsaver.SaveClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	clip, err := sc.spark.SaveClip(c.Request.Context(), req)
	if err != nil {
		sc.respondError(c, err)
		return
	}

	utils.SendCreated(c, "Clip saved", clip)
}

func (sc *ShortSaverController) ShareClip(c *gin.Context) {
	var req struct {
		FriendID string `json:"friend_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	envelope, err := sc.spark.ShareClip(c.Request.Context(), c.Param("id"), req.FriendID)
	if err != nil {
		sc.respondError(c, err)
		return
	}

	utils.SendCreated(c, "Clip shared", envelope)
}

func (sc *ShortSaverController) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shortsaver.ErrInvalidClip):
		utils.SendValidationError(c, err.Error())
	default:
		respondError(c, sc.log, err)
	}
}
