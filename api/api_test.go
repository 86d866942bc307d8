package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"rebalancer/internal/domain"
	"rebalancer/internal/repository"
	mock_repository "rebalancer/internal/repository/mocks"
	"rebalancer/internal/service"
	l2_service "rebalancer/internal/service/l2"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestRouter(brokerRepository repository.BrokerRepository, jwtDecodeToken string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := ApiHandler{
		PortfolioService: service.NewPortfolioService(
			repository.NewMemoryPortfolioRepository(),
			repository.NewPositionCsvRepository(),
			brokerRepository,
		),
		JwtDecodeToken: jwtDecodeToken,
	}
	return handler.InitializeRouterEngine()
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func TestComputeTargets(t *testing.T) {
	router := newTestRouter(nil, "")

	t.Run("buy keeps the most overweight position", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/computeTargets", map[string]any{
			"strategy": "buy",
			"positions": []map[string]any{
				{"name": "AAPL", "currentValue": "300", "targetPercent": "70"},
				{"name": "VTI", "currentValue": "300", "targetPercent": "20"},
				{"name": "BND", "currentValue": "200", "targetPercent": "10"},
			},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		summary := decodeBody[l2_service.RebalanceSummary](t, w)
		require.Equal(t, domain.StrategyBuy, summary.Strategy)
		require.True(t, summary.Rebalanced)
		require.Len(t, summary.Targets, 3)
		requireDecimal(t, "1400", summary.Targets[0].Value)
		requireDecimal(t, "400", summary.Targets[1].Value)
		requireDecimal(t, "200", summary.Targets[2].Value)
		require.Equal(t, "AAPL", summary.Positions[0].Name)
	})

	t.Run("defaults to buy and accepts fractions", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/computeTargets", map[string]any{
			"positions": []map[string]any{
				{"currentValue": 100, "targetFraction": 0.5},
				{"currentValue": 300, "targetFraction": 0.5},
			},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		summary := decodeBody[l2_service.RebalanceSummary](t, w)
		require.Equal(t, domain.StrategyBuy, summary.Strategy)
		requireDecimal(t, "300", summary.Targets[0].Value)
		requireDecimal(t, "300", summary.Targets[1].Value)
		require.Equal(t, "Position 2", summary.Positions[1].Name)
	})

	t.Run("mirrors when fractions are invalid", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/computeTargets", map[string]any{
			"strategy": "BuySell",
			"positions": []map[string]any{
				{"currentValue": "100", "targetFraction": "0.5"},
				{"currentValue": "300", "targetFraction": "0.4"},
			},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		summary := decodeBody[l2_service.RebalanceSummary](t, w)
		require.False(t, summary.Rebalanced)
		require.False(t, summary.ValidTargetAllocation)
		requireDecimal(t, "100", summary.Targets[0].Value)
		requireDecimal(t, "300", summary.Targets[1].Value)
	})

	t.Run("rejects unknown strategy", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/computeTargets", map[string]any{
			"strategy":  "hold",
			"positions": []map[string]any{},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), "invalid")
	})

	t.Run("rejects both target forms on one position", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/computeTargets", map[string]any{
			"positions": []map[string]any{
				{"currentValue": "100", "targetFraction": "1", "targetPercent": "100"},
			},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/computeTargets", "{not json")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetStrategies(t *testing.T) {
	router := newTestRouter(nil, "")

	w := doRequest(t, router, http.MethodGet, "/strategies", nil)
	require.Equal(t, http.StatusOK, w.Code)

	strategies := decodeBody[[]strategyResponse](t, w)
	require.Equal(t, []strategyResponse{
		{Name: domain.StrategyBuy, IsDefault: true},
		{Name: domain.StrategyBuySell},
		{Name: domain.StrategySell},
	}, strategies)
}

func TestPortfolioRoutes(t *testing.T) {
	router := newTestRouter(nil, "")

	w := doRequest(t, router, http.MethodPost, "/portfolios", map[string]string{"name": "retirement"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[domain.Portfolio](t, w)
	require.Equal(t, "retirement", created.Name)
	require.Len(t, created.Positions, 2)

	base := "/portfolios/" + created.PortfolioID.String()

	w = doRequest(t, router, http.MethodPost, base+"/positions", map[string]string{"name": "BND"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	withBond := decodeBody[domain.Portfolio](t, w)
	require.Len(t, withBond.Positions, 3)
	require.Equal(t, "BND", withBond.Positions[2].Name)

	updates := []map[string]string{
		{"currentValue": "300", "targetPercent": "70"},
		{"currentValue": "300", "targetPercent": "20"},
		{"currentValue": "200", "targetPercent": "10"},
	}
	for i, u := range updates {
		path := fmt.Sprintf("%s/positions/%s", base, withBond.Positions[i].ID)
		w = doRequest(t, router, http.MethodPatch, path, u)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodPut, base+"/strategy", map[string]string{"strategy": "sell"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, domain.StrategySell, decodeBody[domain.Portfolio](t, w).Strategy)

	w = doRequest(t, router, http.MethodGet, base+"/rebalance", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decodeBody[l2_service.RebalanceSummary](t, w)
	require.True(t, summary.Rebalanced)
	// sell keeps the most underweight position (AAPL at 300 of 70%)
	requireDecimal(t, "300", summary.Targets[0].Value)
	expectedVTI := decimal.RequireFromString("60").DivRound(decimal.RequireFromString("0.7"), domain.DivisionPrecision)
	requireDecimal(t, expectedVTI.String(), summary.Targets[1].Value)
	require.True(t, summary.Targets[1].Value.LessThan(decimal.NewFromInt(300)))

	w = doRequest(t, router, http.MethodGet, base+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Body.String(), "BND")

	csvBody := "name,current_value,target_percent\nVTI,500,60\nBND,500,40\n"
	w = doRequest(t, router, http.MethodPost, base+"/import", csvBody, "Content-Type", "text/csv")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	imported := decodeBody[domain.Portfolio](t, w)
	require.Len(t, imported.Positions, 2)
	require.Equal(t, "VTI", imported.Positions[0].Name)

	w = doRequest(t, router, http.MethodPost, base+"/import", "name,current_value\nVTI,abc\n", "Content-Type", "text/csv")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodDelete, fmt.Sprintf("%s/positions/%s", base, imported.Positions[1].ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody[domain.Portfolio](t, w).Positions, 1)

	w = doRequest(t, router, http.MethodGet, "/portfolios", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody[[]domain.Portfolio](t, w), 1)

	w = doRequest(t, router, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, http.MethodGet, base, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPortfolioRoutes_Errors(t *testing.T) {
	router := newTestRouter(nil, "")

	t.Run("invalid id", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/portfolios/not-a-uuid", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown position", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/portfolios", nil)
		require.Equal(t, http.StatusCreated, w.Code)
		created := decodeBody[domain.Portfolio](t, w)

		path := fmt.Sprintf("/portfolios/%s/positions/%s", created.PortfolioID, domain.NewID())
		w = doRequest(t, router, http.MethodPatch, path, map[string]string{"name": "x"})
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("broker not configured", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/portfolios", nil)
		created := decodeBody[domain.Portfolio](t, w)

		w = doRequest(t, router, http.MethodPost, "/portfolios/"+created.PortfolioID.String()+"/syncBroker", nil)
		require.Equal(t, http.StatusNotImplemented, w.Code)
	})
}

func TestSyncBroker(t *testing.T) {
	ctrl := gomock.NewController(t)
	brokerRepository := mock_repository.NewMockBrokerRepository(ctrl)
	router := newTestRouter(brokerRepository, "")

	brokerRepository.EXPECT().
		GetPositionValues(gomock.Any()).
		Return(map[string]decimal.Decimal{"VTI": decimal.NewFromInt(1200)}, nil)
	brokerRepository.EXPECT().
		GetCash(gomock.Any()).
		Return(decimal.NewFromInt(50), nil)

	w := doRequest(t, router, http.MethodPost, "/portfolios", nil)
	created := decodeBody[domain.Portfolio](t, w)

	w = doRequest(t, router, http.MethodPost, "/portfolios/"+created.PortfolioID.String()+"/syncBroker", map[string]bool{"includeCash": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	synced := decodeBody[domain.Portfolio](t, w)
	require.Len(t, synced.Positions, 4)
	require.Equal(t, repository.CashSymbol, synced.Positions[2].Name)
	requireDecimal(t, "50", synced.Positions[2].CurrentValue)
	require.Equal(t, "VTI", synced.Positions[3].Name)
	requireDecimal(t, "1200", synced.Positions[3].CurrentValue)
	require.True(t, synced.Positions[3].TargetFraction.IsZero())
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	secret := "test-secret"
	router := newTestRouter(nil, secret)

	t.Run("public routes stay open", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/strategies", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/portfolios", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token := signToken(t, secret, jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		w := doRequest(t, router, http.MethodGet, "/portfolios", nil, "Authorization", "Bearer "+token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "other", jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		w := doRequest(t, router, http.MethodGet, "/portfolios", nil, "Authorization", "Bearer "+token)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, secret, jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		w := doRequest(t, router, http.MethodGet, "/portfolios", nil, "Authorization", "Bearer "+token)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.True(t, strings.Contains(w.Body.String(), "expired"))
	})
}
