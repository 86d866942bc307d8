package cmd

import (
	"database/sql"
	"fmt"
	"rebalancer/api"
	"rebalancer/internal/logger"
	"rebalancer/internal/repository"
	"rebalancer/internal/service"
	"rebalancer/internal/util"

	_ "github.com/lib/pq"
)

func CloseDependencies(handler *api.ApiHandler) {
	if handler.Db == nil {
		return
	}
	if err := handler.Db.Close(); err != nil {
		logger.New().Errorf("failed to close db: %v", err)
	}
}

func InitializeDependencies() (*api.ApiHandler, error) {
	secrets, err := util.LoadSecrets()
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	return InitializeDependenciesFromSecrets(secrets)
}

func InitializeDependenciesFromSecrets(secrets *util.Secrets) (*api.ApiHandler, error) {
	log := logger.New()

	var (
		dbConn              *sql.DB
		portfolioRepository repository.PortfolioRepository
	)
	if secrets.UsesMemoryStorage() {
		log.Infow("using in-memory portfolio storage")
		portfolioRepository = repository.NewMemoryPortfolioRepository()
	} else {
		conn, err := sql.Open("postgres", secrets.Db.ToConnectionStr())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to db: %w", err)
		}
		dbConn = conn
		portfolioRepository = repository.NewPortfolioRepository(dbConn)
	}

	var brokerRepository repository.BrokerRepository
	if secrets.Alpaca.Enabled() {
		brokerRepository = repository.NewAlpacaRepository(
			secrets.Alpaca.ApiKey,
			secrets.Alpaca.ApiSecret,
			secrets.Alpaca.Endpoint,
		)
	} else {
		log.Infow("alpaca credentials not set; broker sync disabled")
	}

	portfolioService := service.NewPortfolioService(
		portfolioRepository,
		repository.NewPositionCsvRepository(),
		brokerRepository,
	)

	apiHandler := &api.ApiHandler{
		Db:               dbConn,
		PortfolioService: portfolioService,
		JwtDecodeToken:   secrets.Jwt,
		Logger:           log,
	}

	return apiHandler, nil
}
