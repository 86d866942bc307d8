package integration_tests

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"rebalancer/api"
	"rebalancer/internal/db/models/postgres/public/model"
	"rebalancer/internal/db/models/postgres/public/table"
	"rebalancer/internal/domain"
	"rebalancer/internal/repository"
	"rebalancer/internal/service"
	l2_service "rebalancer/internal/service/l2"
	"rebalancer/internal/util"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-jet/jet/v2/postgres"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func openTestDb(t *testing.T) *sql.DB {
	t.Helper()
	db, err := util.NewTestDb()
	require.NoError(t, err)
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("test database unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var exists bool
	err = db.QueryRow(`SELECT to_regclass('public.portfolio') IS NOT NULL`).Scan(&exists)
	require.NoError(t, err)
	if !exists {
		schema, err := os.ReadFile("../internal/db/schema.sql")
		require.NoError(t, err)
		_, err = db.Exec(string(schema))
		require.NoError(t, err)
	}
	return db
}

func cleanupPortfolios(db *sql.DB) error {
	if _, err := table.PortfolioPosition.DELETE().WHERE(postgres.Bool(true)).Exec(db); err != nil {
		return err
	}
	if _, err := table.Portfolio.DELETE().WHERE(postgres.Bool(true)).Exec(db); err != nil {
		return err
	}
	return nil
}

func getPositionRows(db *sql.DB) ([]model.PortfolioPosition, error) {
	out := []model.PortfolioPosition{}
	err := table.PortfolioPosition.
		SELECT(table.PortfolioPosition.AllColumns).
		ORDER_BY(table.PortfolioPosition.SortIndex.ASC()).
		Query(db, &out)
	return out, err
}

func hitEndpoint(baseUrl string, route string, method string, payload interface{}, target interface{}) error {
	var body io.Reader
	contentType := "application/json"
	switch p := payload.(type) {
	case nil:
		body = bytes.NewReader(nil)
	case string:
		body = bytes.NewReader([]byte(p))
		contentType = "text/csv"
	default:
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payloadBytes)
	}

	req, err := http.NewRequest(method, baseUrl+"/"+route, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("failed with status %d: %s", resp.StatusCode, string(responseBody))
	}
	if target == nil {
		return nil
	}

	return json.Unmarshal(responseBody, target)
}

func Test_portfolioFlow(t *testing.T) {
	db := openTestDb(t)
	require.NoError(t, cleanupPortfolios(db))
	t.Cleanup(func() { require.NoError(t, cleanupPortfolios(db)) })

	gin.SetMode(gin.TestMode)
	handler := api.ApiHandler{
		Db: db,
		PortfolioService: service.NewPortfolioService(
			repository.NewPortfolioRepository(db),
			repository.NewPositionCsvRepository(),
			NewMockBrokerRepositoryForTests(),
		),
	}
	server := httptest.NewServer(handler.InitializeRouterEngine())
	defer server.Close()

	created := domain.Portfolio{}
	err := hitEndpoint(server.URL, "portfolios", http.MethodPost, map[string]string{"name": "ira"}, &created)
	require.NoError(t, err)
	route := "portfolios/" + created.PortfolioID.String()

	imported := domain.Portfolio{}
	err = hitEndpoint(server.URL, route+"/import", http.MethodPost, "name,current_value,target_percent\nVTI,0,60\nBND,0,30\nGLD,0,10\n", &imported)
	require.NoError(t, err)
	require.Len(t, imported.Positions, 3)

	synced := domain.Portfolio{}
	err = hitEndpoint(server.URL, route+"/syncBroker", http.MethodPost, map[string]bool{"includeCash": true}, &synced)
	require.NoError(t, err)
	require.Len(t, synced.Positions, 4)
	require.Equal(t, repository.CashSymbol, synced.Positions[3].Name)

	// cash has no target yet, so the fractions still add up to one
	err = hitEndpoint(server.URL, route+"/strategy", http.MethodPut, map[string]string{"strategy": "BuySell"}, nil)
	require.NoError(t, err)

	summary := l2_service.RebalanceSummary{}
	err = hitEndpoint(server.URL, route+"/rebalance", http.MethodGet, nil, &summary)
	require.NoError(t, err)
	require.True(t, summary.Rebalanced)
	require.True(t, decimal.NewFromInt(1000).Equal(summary.PositionTotal))
	require.True(t, summary.PositionTotal.Equal(summary.TargetTotal))
	require.True(t, decimal.NewFromInt(600).Equal(summary.Targets[0].Value))
	require.True(t, decimal.NewFromInt(300).Equal(summary.Targets[1].Value))
	require.True(t, decimal.NewFromInt(100).Equal(summary.Targets[2].Value))
	require.True(t, summary.Targets[3].Value.IsZero())

	rows, err := getPositionRows(db)
	require.NoError(t, err)
	require.Equal(t, "", cmp.Diff(
		[]model.PortfolioPosition{
			{Name: "VTI", CurrentValue: decimal.RequireFromString("612.40"), TargetFraction: decimal.RequireFromString("0.6"), SortIndex: 0},
			{Name: "BND", CurrentValue: decimal.RequireFromString("187.60"), TargetFraction: decimal.RequireFromString("0.3"), SortIndex: 1},
			{Name: "GLD", CurrentValue: decimal.RequireFromString("45.05"), TargetFraction: decimal.RequireFromString("0.1"), SortIndex: 2},
			{Name: repository.CashSymbol, CurrentValue: decimal.RequireFromString("154.95"), TargetFraction: decimal.Zero, SortIndex: 3},
		},
		rows,
		cmpopts.IgnoreFields(model.PortfolioPosition{}, "PortfolioPositionID", "PortfolioID", "CreatedAt"),
		cmp.Comparer(func(d1, d2 decimal.Decimal) bool {
			return d1.Equal(d2)
		}),
	))

	err = hitEndpoint(server.URL, route, http.MethodDelete, nil, nil)
	require.NoError(t, err)

	rows, err = getPositionRows(db)
	require.NoError(t, err)
	require.Empty(t, rows)

	err = hitEndpoint(server.URL, route, http.MethodGet, nil, &domain.Portfolio{})
	require.ErrorContains(t, err, "status 404")
}
