package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-store-server/http/controller"
	middlewares "github.com/tnqbao/gau-store-server/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}
	r.Use(middles.CORSMiddleware)

	r.GET("/healthz", ctrl.Healthz)

	apiRoutes := r.Group("/api/v1/store")
	{
		objectRoutes := apiRoutes.Group("/objects")
		{
			objectRoutes.POST("/start_upload", ctrl.StartUpload)
			objectRoutes.PATCH("/complete_upload", ctrl.CompleteUpload)
			objectRoutes.POST("/locate", ctrl.LocateObject)
			objectRoutes.POST("/start_delete", ctrl.StartDeleteObjects)
			objectRoutes.PATCH("/complete_delete", ctrl.CompleteDeleteObjects)
			objectRoutes.POST("/clean", ctrl.CleanObject)
		}

		apiRoutes.POST("/update_policy", ctrl.UpdatePolicy)
	}
	return r
}
