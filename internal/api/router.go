package api

import (
	"github.com/gin-gonic/gin"

	"mower-backend/internal/api/handlers"
	"mower-backend/internal/api/middleware"
	"mower-backend/internal/service"
	"mower-backend/pkg/config"
	"mower-backend/pkg/logger"
)

// NewRouter assembles the HTTP surface. Operator routes sit behind bearer
// auth when enabled; the telemetry ingest stays open because machines do not
// authenticate.
func NewRouter(
	cfg *config.ServerConfig,
	machineHandler *handlers.MachineHandler,
	queueHandler *handlers.QueueHandler,
	telemetryHandler *handlers.TelemetryHandler,
	statusHandler *handlers.StatusHandler,
	authHandler *handlers.AuthHandler,
	authService *service.AuthService,
	logger *logger.Logger,
) *gin.Engine {
	log := logger.GetLogger("router")

	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	operator := v1.Group("")
	if cfg.Auth.Enabled {
		operator.Use(middleware.AuthRequired(authService))
	}
	{
		operator.GET("/status", statusHandler.GetSystemStatus)

		operator.GET("/machines", machineHandler.ListMachines)
		operator.POST("/machines", machineHandler.CreateMachine)
		operator.GET("/machines/:machine_id", machineHandler.GetMachine)
		operator.DELETE("/machines/:machine_id", machineHandler.DeleteMachine)

		operator.GET("/machines/:machine_id/queues", queueHandler.ListQueues)
		operator.POST("/machines/:machine_id/queues", queueHandler.CreateQueue)
		operator.POST("/machines/:machine_id/queues/:queue_id/start", queueHandler.StartQueue)
		operator.POST("/machines/:machine_id/queues/:queue_id/pause", queueHandler.PauseQueue)
		operator.POST("/machines/:machine_id/queues/:queue_id/resume", queueHandler.ResumeQueue)
		operator.POST("/machines/:machine_id/queues/:queue_id/terminate", queueHandler.TerminateQueue)
		operator.POST("/machines/:machine_id/queues/:queue_id/skip", queueHandler.SkipCurrentField)
		operator.GET("/machines/:machine_id/queues/:queue_id/items", queueHandler.ListItems)
		operator.POST("/machines/:machine_id/queues/:queue_id/items", queueHandler.AddItem)
		operator.DELETE("/machines/:machine_id/queues/:queue_id/items", queueHandler.RemoveItems)
	}

	// Machine-originated telemetry, never behind operator auth.
	v1.POST("/machines/:machine_id/incoming_machine_telem", telemetryHandler.IncomingMachineTelem)

	log.Debug().Msg("Router initialized")
	return r
}
