package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/geo-tasks/internal/services"
)

type Handler interface {
	HandleAuthenticationMiddleware(c *gin.Context)

	HandleCreateTask(c *gin.Context)
	HandleSearchTasks(c *gin.Context)
	HandleGetTask(c *gin.Context)
	HandleClaimTask(c *gin.Context)
	HandleCompleteTask(c *gin.Context)
}

type handlerImpl struct {
	logger   zerolog.Logger
	dispatch services.DispatchService
}

func New(
	logger zerolog.Logger,
	dispatchService services.DispatchService,
) Handler {
	return &handlerImpl{
		logger:   logger,
		dispatch: dispatchService,
	}
}
