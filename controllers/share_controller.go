package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"sparkshare-api/models"
	"sparkshare-api/services"
	"sparkshare-api/utils"
)

// ShareController serves the shared-item mailbox and the spark registry.
type ShareController struct {
	shares   *services.ShareService
	registry *services.SparkRegistry
	log      logrus.FieldLogger
}

func NewShareController(shares *services.ShareService, registry *services.SparkRegistry, log logrus.FieldLogger) *ShareController {
	return &ShareController{
		shares:   shares,
		registry: registry,
		log:      log,
	}
}

func (sc *ShareController) GetSparks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sparks": sc.registry.Sparks()})
}

func (sc *ShareController) GetShareableItems(c *gin.Context) {
	items, err := sc.registry.ShareableItems(c.Request.Context(), c.Param("spark_id"))
	if err != nil {
		respondError(c, sc.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ShareSparkItem hands the share to the spark that owns the item.
func (sc *ShareController) ShareSparkItem(c *gin.Context) {
	var req models.ShareSparkItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	if err := sc.registry.ShareItem(c.Request.Context(), c.Param("spark_id"), req.ItemID, req.FriendID); err != nil {
		respondError(c, sc.log, err)
		return
	}

	utils.SendSuccess(c, "Item shared successfully", nil)
}

func (sc *ShareController) ShareItemCopy(c *gin.Context) {
	var req models.ShareItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	envelope, err := sc.shares.ShareItemCopy(c.Request.Context(), req.SparkID, req.ItemID, req.FriendID, req.Data)
	if err != nil {
		respondError(c, sc.log, err)
		return
	}

	utils.SendCreated(c, "Item shared successfully", envelope)
}

func (sc *ShareController) GetPendingSharedItems(c *gin.Context) {
	items, err := sc.shares.GetPendingSharedItems(c.Request.Context(), c.Param("spark_id"))
	sc.respondList(c, items, err)
}

func (sc *ShareController) GetAcceptedSharedItems(c *gin.Context) {
	items, err := sc.shares.GetAcceptedSharedItems(c.Request.Context(), c.Param("spark_id"))
	sc.respondList(c, items, err)
}

func (sc *ShareController) GetSentSharedItems(c *gin.Context) {
	items, err := sc.shares.GetSentSharedItems(c.Request.Context(), c.Param("spark_id"))
	sc.respondList(c, items, err)
}

// SyncInbox runs the spark's accept policy and returns what it received.
func (sc *ShareController) SyncInbox(c *gin.Context) {
	received, err := sc.registry.SyncInbox(c.Request.Context(), c.Param("spark_id"))
	if err != nil {
		respondError(c, sc.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": received,
		"count": len(received),
	})
}

func (sc *ShareController) GetSharedItem(c *gin.Context) {
	envelope, err := sc.shares.GetSharedItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, sc.log, err)
		return
	}

	c.JSON(http.StatusOK, envelope)
}

func (sc *ShareController) AcceptSharedItem(c *gin.Context) {
	envelope, err := sc.shares.AcceptSharedItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, sc.log, err)
		return
	}

	utils.SendSuccess(c, "Shared item accepted", envelope)
}

func (sc *ShareController) RejectSharedItem(c *gin.Context) {
	envelope, err := sc.shares.RejectSharedItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, sc.log, err)
		return
	}

	utils.SendSuccess(c, "Shared item rejected", envelope)
}

func (sc *ShareController) respondList(c *gin.Context, items []models.SharedItemEnvelope, err error) {
	if err != nil {
		respondError(c, sc.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}
