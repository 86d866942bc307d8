package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createPortfolioRequest struct {
	Name string `json:"name"`
}

func (m ApiHandler) listPortfolios(c *gin.Context) {
	portfolios, err := m.PortfolioService.List(c.Request.Context())
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(200, portfolios)
}

func (m ApiHandler) createPortfolio(c *gin.Context) {
	var requestBody createPortfolioRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&requestBody); err != nil {
			returnErrorJsonCode(err, c, http.StatusBadRequest)
			return
		}
	}

	portfolio, err := m.PortfolioService.Create(c.Request.Context(), requestBody.Name)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(http.StatusCreated, portfolio)
}

func (m ApiHandler) getPortfolio(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "portfolioID")
	if !ok {
		return
	}

	portfolio, err := m.PortfolioService.Get(c.Request.Context(), portfolioID)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(200, portfolio)
}

func (m ApiHandler) deletePortfolio(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "portfolioID")
	if !ok {
		return
	}

	if err := m.PortfolioService.Delete(c.Request.Context(), portfolioID); err != nil {
		returnErrorJson(err, c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (m ApiHandler) rebalance(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "portfolioID")
	if !ok {
		return
	}

	summary, err := m.PortfolioService.Rebalance(c.Request.Context(), portfolioID)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(200, summary)
}
