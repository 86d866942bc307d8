package api

import (
	"net/http"
	"rebalancer/internal/domain"

	"github.com/gin-gonic/gin"
)

type strategyResponse struct {
	Name      domain.Strategy `json:"name"`
	IsDefault bool            `json:"isDefault"`
}

func (m ApiHandler) getStrategies(c *gin.Context) {
	out := []strategyResponse{}
	for _, s := range domain.AllStrategies() {
		out = append(out, strategyResponse{
			Name:      s,
			IsDefault: s == domain.DefaultStrategy,
		})
	}
	c.JSON(200, out)
}

type setStrategyRequest struct {
	Strategy string `json:"strategy" binding:"required"`
}

func (m ApiHandler) setStrategy(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "portfolioID")
	if !ok {
		return
	}

	var requestBody setStrategyRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(err, c, http.StatusBadRequest)
		return
	}

	strategy, err := domain.ParseStrategy(requestBody.Strategy)
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	portfolio, err := m.PortfolioService.SetStrategy(c.Request.Context(), portfolioID, strategy)
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, portfolio)
}
