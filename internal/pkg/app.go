package pkg

import (
	"context"
	"fmt"

	"energycalc/internal/app/calc"
	"energycalc/internal/app/config"
	"energycalc/internal/app/dsn"
	"energycalc/internal/app/handler"
	"energycalc/internal/app/middleware"
	"energycalc/internal/app/redis"
	"energycalc/internal/app/repository"
	"energycalc/internal/app/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Application struct {
	Config         *config.Config
	Router         *gin.Engine
	Handler        *handler.APIHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// NewApp собирает приложение: конфиг, БД, Redis, MinIO, клиент расчета, обработчики
func NewApp(ctx context.Context) (*Application, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	repo, err := repository.New(dsn.FromEnv())
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	minioClient, err := storage.NewMinIOClient(cfg.Minio)
	if err != nil {
		return nil, fmt.Errorf("minio: %w", err)
	}

	calcClient := calc.NewClient(cfg.Calc)

	authHandler := handler.NewAuthHandler(repo, redisClient, cfg)
	apiHandler := handler.NewAPIHandler(repo, minioClient, calcClient, authHandler, cfg.Calc.Token)
	authMiddleware := middleware.NewAuthMiddleware(repo, redisClient, cfg)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Session-Id"},
		AllowCredentials: true,
	}))

	return &Application{
		Config:         cfg,
		Router:         router,
		Handler:        apiHandler,
		AuthMiddleware: authMiddleware,
	}, nil
}

func (a *Application) RunApp() {
	logrus.Info("Server start up")

	a.Handler.RegisterAPIRoutes(a.Router, a.AuthMiddleware)

	serverAddress := fmt.Sprintf("%s:%d", a.Config.ServiceHost, a.Config.ServicePort)
	logrus.Infof("Starting server on %s", serverAddress)

	if err := a.Router.Run(serverAddress); err != nil {
		logrus.Fatal(err)
	}

	logrus.Info("Server down")
}
