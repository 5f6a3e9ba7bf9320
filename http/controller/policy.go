package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-store-server/schema"
	"github.com/tnqbao/gau-store-server/utils"
)

// UpdatePolicy switches the active placement/transfer policy names at
// runtime. Empty fields keep the current setting.
func (ctrl *Controller) UpdatePolicy(c *gin.Context) {
	ctx := c.Request.Context()

	var req schema.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Policy] Invalid update_policy request: %v", err)
		utils.JSON400(c, "Invalid request body: "+err.Error())
		return
	}
	if req.PutPolicy == "" && req.GetPolicy == "" {
		utils.JSON400(c, "At least one of put_policy or get_policy is required")
		return
	}

	if err := ctrl.Policies.Update(ctx, req.PutPolicy, req.GetPolicy); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Policy] update_policy failed: put=%s get=%s", req.PutPolicy, req.GetPolicy)
		utils.JSON400(c, err.Error())
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Policy] Policies updated: put=%s get=%s", req.PutPolicy, req.GetPolicy)
	utils.JSON200(c, gin.H{"message": "Policy updated"})
}

func (ctrl *Controller) Healthz(c *gin.Context) {
	utils.JSON200(c, schema.HealthcheckResponse{Status: "OK"})
}
