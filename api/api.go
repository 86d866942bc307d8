package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"rebalancer/internal/domain"
	"rebalancer/internal/logger"
	"rebalancer/internal/repository"
	"rebalancer/internal/service"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ApiHandler struct {
	// Db is nil when portfolios are kept in memory
	Db               *sql.DB
	PortfolioService service.PortfolioService
	JwtDecodeToken   string
	Logger           *zap.SugaredLogger
}

func (m ApiHandler) InitializeRouterEngine() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(m.logRequestMiddleware)

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, map[string]string{"message": "welcome to rebalancer"})
	})
	router.GET("/strategies", m.getStrategies)
	router.POST("/computeTargets", m.computeTargets)

	portfolios := router.Group("/portfolios")
	portfolios.Use(m.authMiddleware)
	portfolios.GET("", m.listPortfolios)
	portfolios.POST("", m.createPortfolio)
	portfolios.GET("/:portfolioID", m.getPortfolio)
	portfolios.DELETE("/:portfolioID", m.deletePortfolio)
	portfolios.POST("/:portfolioID/positions", m.addPosition)
	portfolios.PATCH("/:portfolioID/positions/:positionID", m.updatePosition)
	portfolios.DELETE("/:portfolioID/positions/:positionID", m.removePosition)
	portfolios.PUT("/:portfolioID/strategy", m.setStrategy)
	portfolios.GET("/:portfolioID/rebalance", m.rebalance)
	portfolios.POST("/:portfolioID/import", m.importPositions)
	portfolios.GET("/:portfolioID/export", m.exportPositions)
	portfolios.POST("/:portfolioID/syncBroker", m.syncBroker)

	return router
}

func (m ApiHandler) StartApi(port int) error {
	return m.InitializeRouterEngine().Run(fmt.Sprintf(":%d", port))
}

func returnErrorJson(err error, c *gin.Context) {
	returnErrorJsonCode(err, c, errorStatusCode(err))
}

func returnErrorJsonCode(err error, c *gin.Context, code int) {
	log := logger.FromContext(c.Request.Context())
	if code >= 500 {
		log.Errorw("request failed", "error", err.Error(), "status", code)
	} else {
		log.Infow("request rejected", "error", err.Error(), "status", code)
	}
	c.AbortWithStatusJSON(code, gin.H{
		"error": err.Error(),
	})
}

func errorStatusCode(err error) int {
	switch {
	case errors.Is(err, repository.ErrPortfolioNotFound),
		errors.Is(err, domain.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStrategy),
		errors.Is(err, repository.ErrInvalidPositionCsv):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrBrokerNotConfigured):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func (m ApiHandler) logRequestMiddleware(c *gin.Context) {
	log := m.Logger
	if log == nil {
		log = zap.S()
	}
	log = log.With(
		"requestID", uuid.NewString(),
		"method", c.Request.Method,
		"route", c.FullPath(),
	)
	c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), log))

	start := time.Now().UTC()
	c.Next()

	log.Infow(
		"handled request",
		"status", c.Writer.Status(),
		"durationMs", time.Since(start).Milliseconds(),
		"ip", c.ClientIP(),
	)
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		returnErrorJsonCode(fmt.Errorf("invalid %s %q: %w", name, c.Param(name), err), c, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
