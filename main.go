package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"

	"vereinsportal-backend/internal/event_mgmt/events"
	"vereinsportal-backend/internal/event_mgmt/helpers"
	"vereinsportal-backend/internal/event_mgmt/locks"
	"vereinsportal-backend/internal/inventory/items"
	"vereinsportal-backend/internal/inventory/rentals"
	"vereinsportal-backend/internal/platform/auth"
	"vereinsportal-backend/internal/platform/db"
	"vereinsportal-backend/internal/platform/mailqueue"
	"vereinsportal-backend/internal/platform/metrics"
)

func main() {
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	userConn, err := db.Connect(cfg.UserDB)
	if err != nil {
		panic(err)
	}
	defer userConn.Close()
	log.Printf("[INFO] connected to user DB: %s", cfg.UserDB.DBName)

	contentConn, err := db.Connect(cfg.ContentDB)
	if err != nil {
		panic(err)
	}
	defer contentConn.Close()
	log.Printf("[INFO] connected to content DB: %s", cfg.ContentDB.DBName)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS is only needed while the frontend runs on its own dev server.
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", metrics.Handler())

	mail := mailqueue.NewStore(contentConn)
	lockSvc := locks.NewService(contentConn, cfg.EventLockTTL())

	// /api/v1
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api.Group("/auth"), auth.NewService(userConn, auth.NewNoopDirectory(), []byte(cfg.JWTSecret)))

	protected := api.Group("")
	protected.Use(auth.RequireAuth([]byte(cfg.JWTSecret)))
	items.RegisterRoutes(protected, items.NewService(contentConn))
	rentals.RegisterRoutes(protected, rentals.NewService(contentConn, mail))
	events.RegisterRoutes(protected, events.NewService(contentConn, lockSvc))
	locks.RegisterRoutes(protected, lockSvc)
	helpers.RegisterRoutes(protected, helpers.NewService(contentConn, mail))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	var certFile, keyFile string
	if mode == "dev" {
		certFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Cert)
		keyFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Key)
	} else {
		certFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Cert)
		keyFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Key)
	}

	go func() {
		log.Printf("[INFO] listening on https://0.0.0.0%s", cfg.Addr)
		if err := srv.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
