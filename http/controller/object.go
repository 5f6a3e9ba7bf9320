package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-store-server/apperr"
	"github.com/tnqbao/gau-store-server/schema"
	"github.com/tnqbao/gau-store-server/utils"
)

// respondError maps engine errors onto the JSON helpers by status code.
// Internal failures keep their detail in the logs, not the response.
func (ctrl *Controller) respondError(c *gin.Context, err error) {
	message := "Internal Server Error"
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Status != http.StatusInternalServerError {
		message = appErr.Message
	}

	switch apperr.StatusOf(err) {
	case http.StatusBadRequest:
		utils.JSON400(c, message)
	case http.StatusNotFound:
		utils.JSON404(c, message)
	case http.StatusMethodNotAllowed:
		utils.JSON405(c, message)
	case http.StatusConflict:
		utils.JSON409(c, message)
	default:
		utils.JSON500(c, message)
	}
}

func (ctrl *Controller) StartUpload(c *gin.Context) {
	ctx := c.Request.Context()

	var req schema.StartUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Object] Invalid start_upload request: %v", err)
		utils.JSON400(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := ctrl.Engine.StartUpload(ctx, &req)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Object] start_upload failed: bucket=%s key=%s", req.Bucket, req.Key)
		ctrl.respondError(c, err)
		return
	}
	utils.JSON200(c, resp)
}

func (ctrl *Controller) CompleteUpload(c *gin.Context) {
	ctx := c.Request.Context()

	var req schema.CompleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Object] Invalid complete_upload request: %v", err)
		utils.JSON400(c, "Invalid request body: "+err.Error())
		return
	}

	if err := ctrl.Engine.CompleteUpload(ctx, &req); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Object] complete_upload failed: id=%d", req.ID)
		ctrl.respondError(c, err)
		return
	}
	utils.JSON200(c, gin.H{"message": "Upload completed"})
}

func (ctrl *Controller) LocateObject(c *gin.Context) {
	ctx := c.Request.Context()

	var req schema.LocateObjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Object] Invalid locate_object request: %v", err)
		utils.JSON400(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := ctrl.Engine.LocateObject(ctx, &req)
	if err != nil {
		ctrl.respondError(c, err)
		return
	}
	utils.JSON200(c, resp)
}

func (ctrl *Controller) StartDeleteObjects(c *gin.Context) {
	ctx := c.Request.Context()

	var req schema.DeleteObjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Object] Invalid start_delete_objects request: %v", err)
		utils.JSON400(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := ctrl.Engine.StartDeleteObjects(ctx, &req)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Object] start_delete_objects failed: bucket=%s", req.Bucket)
		ctrl.respondError(c, err)
		return
	}
	utils.JSON200(c, resp)
}

func (ctrl *Controller) CompleteDeleteObjects(c *gin.Context) {
	ctx := c.Request.Context()

	var req schema.CompleteDeleteObjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Object] Invalid complete_delete_objects request: %v", err)
		utils.JSON400(c, "Invalid request body: "+err.Error())
		return
	}

	if err := ctrl.Engine.CompleteDeleteObjects(ctx, &req); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Object] complete_delete_objects failed")
		ctrl.respondError(c, err)
		return
	}
	utils.JSON200(c, gin.H{"message": "Delete completed"})
}

func (ctrl *Controller) CleanObject(c *gin.Context) {
	ctx := c.Request.Context()

	var req schema.CleanObjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Object] Invalid clean_object request: %v", err)
		utils.JSON400(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := ctrl.Engine.CleanObjects(ctx, req.Timestamp)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Object] clean_object failed")
		ctrl.respondError(c, err)
		return
	}
	utils.JSON200(c, resp)
}
