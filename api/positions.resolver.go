package api

import (
	"net/http"
	"rebalancer/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type addPositionRequest struct {
	Name string `json:"name"`
}

type updatePositionRequest struct {
	Name          *string          `json:"name"`
	CurrentValue  *decimal.Decimal `json:"currentValue"`
	TargetPercent *decimal.Decimal `json:"targetPercent"`
}

func (m ApiHandler) addPosition(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "portfolioID")
	if !ok {
		return
	}

	var requestBody addPositionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&requestBody); err != nil {
			returnErrorJsonCode(err, c, http.StatusBadRequest)
			return
		}
	}

	portfolio, err := m.PortfolioService.AddPosition(c.Request.Context(), portfolioID, requestBody.Name)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(200, portfolio)
}

func (m ApiHandler) updatePosition(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "portfolioID")
	if !ok {
		return
	}
	positionID, ok := uuidParam(c, "positionID")
	if !ok {
		return
	}

	var requestBody updatePositionRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(err, c, http.StatusBadRequest)
		return
	}

	portfolio, err := m.PortfolioService.UpdatePosition(c.Request.Context(), portfolioID, positionID, service.UpdatePositionInput{
		Name:          requestBody.Name,
		CurrentValue:  requestBody.CurrentValue,
		TargetPercent: requestBody.TargetPercent,
	})
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(200, portfolio)
}

func (m ApiHandler) removePosition(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "portfolioID")
	if !ok {
		return
	}
	positionID, ok := uuidParam(c, "positionID")
	if !ok {
		return
	}

	portfolio, err := m.PortfolioService.RemovePosition(c.Request.Context(), portfolioID, positionID)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(200, portfolio)
}
