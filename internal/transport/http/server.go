package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	appsvc "expense-tracker-api/internal/app"
	"expense-tracker-api/internal/bootstrap"
	"expense-tracker-api/internal/cache"
	rabbitmqClient "expense-tracker-api/internal/platform/rabbitmq"
	"expense-tracker-api/internal/repository"
	"expense-tracker-api/internal/transport/http/handler"
	"expense-tracker-api/internal/transport/http/middleware"
	"expense-tracker-api/internal/transport/http/response"
)

const welcomeMessage = "Welcome to the Expense Tracker API"

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(app.Log), gin.Recovery())
	if origins := app.Config.CORS.AllowedOrigins; len(origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/", func(c *gin.Context) {
		response.Message(c, http.StatusOK, welcomeMessage)
	})
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.DB)
	expenseRepo := repository.NewExpenseRepository(app.DB)
	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)

	var listCache appsvc.ExpenseListCache
	if app.Redis != nil {
		listCache = cache.NewExpenseCache(app.Redis, time.Duration(app.Config.Redis.ExpenseTTLSeconds)*time.Second)
	}
	var cleanup appsvc.ReceiptCleanupPublisher
	if app.MQConn != nil {
		cleanup = rabbitmqClient.NewCleanupPublisher(app.MQConn, app.Config.RabbitMQ.ReceiptCleanupQueue)
	}
	expenseService := appsvc.NewExpenseService(expenseRepo, listCache, cleanup, app.Log)

	authHandler := handler.NewAuthHandler(authService)
	expenseHandler := handler.NewExpenseHandler(expenseService)

	api := router.Group("/api")
	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	upload := middleware.UploadImage(app.Receipts, app.Log)
	expenseGroup := api.Group("/expenses")
	expenseGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	expenseGroup.POST("", upload, expenseHandler.Create)
	expenseGroup.GET("", expenseHandler.List)
	expenseGroup.GET("/:id", expenseHandler.Get)
	expenseGroup.PUT("/:id", upload, expenseHandler.Update)
	expenseGroup.DELETE("/:id", expenseHandler.Delete)

	return router
}
