package api

import (
	"fmt"
	"net/http"
	"rebalancer/internal/domain"
	l2_service "rebalancer/internal/service/l2"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type computeTargetsPosition struct {
	ID             *uuid.UUID       `json:"id"`
	Name           string           `json:"name"`
	CurrentValue   decimal.Decimal  `json:"currentValue"`
	TargetFraction *decimal.Decimal `json:"targetFraction"`
	TargetPercent  *decimal.Decimal `json:"targetPercent"`
}

type computeTargetsRequest struct {
	Strategy  string                   `json:"strategy"`
	Positions []computeTargetsPosition `json:"positions"`
}

func (in computeTargetsRequest) toPositionSet() (domain.PositionSet, error) {
	out := domain.PositionSet{}
	seen := map[uuid.UUID]bool{}
	for i, p := range in.Positions {
		if p.TargetFraction != nil && p.TargetPercent != nil {
			return nil, fmt.Errorf("position %d: set only one of targetFraction and targetPercent", i)
		}

		targetFraction := decimal.Zero
		if p.TargetFraction != nil {
			targetFraction = *p.TargetFraction
		} else if p.TargetPercent != nil {
			targetFraction = domain.PercentToFraction(*p.TargetPercent)
		}

		id := domain.NewID()
		if p.ID != nil {
			id = *p.ID
		}
		if seen[id] {
			return nil, fmt.Errorf("position %d: duplicate id %s", i, id)
		}
		seen[id] = true

		name := p.Name
		if name == "" {
			name = fmt.Sprintf("Position %d", i+1)
		}

		out = append(out, domain.Position{
			ID:             id,
			Name:           name,
			CurrentValue:   p.CurrentValue,
			TargetFraction: targetFraction,
		})
	}
	return out, nil
}

func (m ApiHandler) computeTargets(c *gin.Context) {
	var requestBody computeTargetsRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(err, c, http.StatusBadRequest)
		return
	}

	strategy := domain.DefaultStrategy
	if requestBody.Strategy != "" {
		s, err := domain.ParseStrategy(requestBody.Strategy)
		if err != nil {
			returnErrorJson(err, c)
			return
		}
		strategy = s
	}

	positions, err := requestBody.toPositionSet()
	if err != nil {
		returnErrorJsonCode(err, c, http.StatusBadRequest)
		return
	}

	summary, err := l2_service.SummarizeRebalance(l2_service.SummarizeRebalanceInput{
		Strategy:  strategy,
		Positions: positions,
	})
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, summary)
}
