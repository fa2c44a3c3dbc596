package main

import (
	"flag"
	"log"
	"strconv"

	"claimscope/config"
	"claimscope/db"
	"claimscope/internal/relay"
	"claimscope/routes"
	"claimscope/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "./config/config.yml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := services.InitDebateService(cfg); err != nil {
		log.Fatalf("Failed to initialize debate service: %v", err)
	}

	if cfg.Database.URI != "" {
		if err := db.ConnectMongoDB(cfg.Database.URI); err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		log.Println("Connected to MongoDB")
	} else {
		log.Println("No database configured; transcripts will not be persisted")
	}

	if cfg.Redis.Addr != "" {
		if err := relay.InitRedis(cfg.Redis.Addr); err != nil {
			log.Printf("Redis unavailable, spectator mode disabled: %v", err)
		}
	}

	router := setupRouter(cfg)
	port := strconv.Itoa(cfg.Server.Port)
	log.Printf("Server starting on port %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	// Set trusted proxies (adjust as needed)
	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}
	if len(cfg.Server.CorsOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.CorsOrigins
		corsCfg.AllowCredentials = true
	} else {
		// Browser extensions call from arbitrary origins.
		corsCfg.AllowAllOrigins = true
	}
	router.Use(cors.New(corsCfg))

	routes.SetupDebateRoutes(router)
	return router
}
