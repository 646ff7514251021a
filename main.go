// @title           Costest API
// @version         1.0
// @description     Construction cost estimation and CIDB price forecasting backend.

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"costest/handlers"
	"costest/models"
	"costest/services"
	"costest/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:9000",
	}
	if origin := os.Getenv("FRONTEND_ORIGIN"); origin != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, origin)
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding",
		"Accept", "Origin", "X-Requested-With", "Authorization", "User-Agent",
		"Cache-Control", "Referer",
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD", "PATCH"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Type", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

func setupRouter() *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(CORSConfig()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/register", handlers.RegisterUser)
	r.POST("/api/login", handlers.LoginUser)

	api := r.Group("/api", handlers.AuthRequired())
	{
		api.POST("/logout", handlers.LogoutUser)
		api.POST("/validate-session", handlers.ValidateSession)
		api.GET("/profile", handlers.GetProfile)

		api.GET("/dashboard", handlers.GetDashboard)

		api.POST("/projects", handlers.RequireRole(models.RoleQS, models.RoleContractor), handlers.UploadProject)
		api.GET("/projects/:project_id", handlers.GetProjectDetail)
		api.PUT("/projects/:project_id", handlers.UpdateProject)
		api.POST("/projects/:project_id/actuals", handlers.RequireRole(models.RolePM, models.RoleDeveloper), handlers.SaveActuals)
		api.POST("/projects/:project_id/inflation", handlers.RequireRole(models.RoleQS), handlers.ApplyInflation)
		api.DELETE("/projects/:project_id/inflation", handlers.RequireRole(models.RoleQS), handlers.RevertInflation)

		api.POST("/cidb/import", handlers.RequireRole(models.RoleQS), handlers.ImportCIDB)
		api.GET("/cidb/status", handlers.CIDBDataStatus)

		api.POST("/projects/:project_id/forecast", handlers.RequireRole(models.RoleQS), handlers.RunProjectForecast)
		api.GET("/projects/:project_id/forecast", handlers.ViewForecast)
		api.POST("/forecast/catalog", handlers.RequireRole(models.RoleAdmin), handlers.RunCatalogForecast)
		api.GET("/forecast/catalog", handlers.ViewCatalogForecast)

		api.GET("/export/forecasts", handlers.ExportForecasts)
		api.GET("/export/projects", handlers.ExportAllProjects)
		api.GET("/projects/:project_id/report", handlers.GenerateProjectReport)
	}

	return r
}

func startCronJobs() *cron.Cron {
	c := cron.New()

	// Expired sessions pile up fast with 15 minute tokens.
	if _, err := c.AddFunc("@hourly", func() {
		if err := storage.CleanupExpiredSessions(storage.GetDB()); err != nil {
			log.Printf("session cleanup failed: %v", err)
		}
	}); err != nil {
		log.Printf("failed to schedule session cleanup: %v", err)
	}

	// Catalog-wide forecasts refresh nightly so the next CIDB import is
	// reflected by morning without anyone pressing the button.
	if _, err := c.AddFunc("0 2 * * *", func() {
		if _, err := services.RunCatalogForecast(storage.GetGormDB()); err != nil {
			log.Printf("catalog forecast refresh failed: %v", err)
		}
	}); err != nil {
		log.Printf("failed to schedule catalog forecast: %v", err)
	}

	c.Start()
	return c
}

func main() {
	storage.InitDB()
	storage.InitGormDB()

	cronRunner := startCronJobs()
	defer cronRunner.Stop()

	router := setupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("server stopped")
}
