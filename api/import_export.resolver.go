package api

import (
	"bytes"
	"fmt"
	"net/http"
	"rebalancer/internal/service"

	"github.com/gin-gonic/gin"
)

type syncBrokerRequest struct {
	IncludeCash bool `json:"includeCash"`
}

func (m ApiHandler) importPositions(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "portfolioID")
	if !ok {
		return
	}

	portfolio, err := m.PortfolioService.ImportPositions(c.Request.Context(), portfolioID, c.Request.Body)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(200, portfolio)
}

func (m ApiHandler) exportPositions(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "portfolioID")
	if !ok {
		return
	}

	buf := &bytes.Buffer{}
	if err := m.PortfolioService.ExportPositions(c.Request.Context(), portfolioID, buf); err != nil {
		returnErrorJson(err, c)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", portfolioID.String()+".csv"))
	c.Data(200, "text/csv", buf.Bytes())
}

func (m ApiHandler) syncBroker(c *gin.Context) {
	portfolioID, ok := uuidParam(c, "portfolioID")
	if !ok {
		return
	}

	var requestBody syncBrokerRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&requestBody); err != nil {
			returnErrorJsonCode(err, c, http.StatusBadRequest)
			return
		}
	}

	portfolio, err := m.PortfolioService.SyncFromBroker(c.Request.Context(), portfolioID, service.SyncFromBrokerInput{
		IncludeCash: requestBody.IncludeCash,
	})
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	c.JSON(200, portfolio)
}
