package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"monestat/internal/config"
	"monestat/internal/database"
	"monestat/internal/handlers"
	"monestat/internal/logger"
	"monestat/internal/middleware"
	"monestat/internal/services"
	"monestat/internal/validator"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	db := dbManager.DB()
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db, categoryService)
	limitService := services.NewLimitService(db)

	transactionHandler := handlers.NewTransactionHandler(transactionService, appConfig.ImportMaxBytes)
	limitHandler := handlers.NewLimitHandler(categoryService, limitService)

	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogging(), middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/transactions/import", transactionHandler.ImportTransactions)
		v1.GET("/transactions", transactionHandler.ListTransactions)
		v1.GET("/report/period", transactionHandler.GetDataPeriod)

		v1.GET("/limits", limitHandler.GetLimits)
		v1.GET("/limits/check", limitHandler.CheckLimits)
		v1.PUT("/limits/:category", limitHandler.UpsertLimit)
		v1.DELETE("/limits/:category", limitHandler.DeleteLimit)
	}

	log.Infof("Server listening on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
