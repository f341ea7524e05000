package main

import (
	"codetective/internal/api"
	"codetective/internal/app/event"
	"codetective/internal/app/judge"
	"codetective/internal/app/service"
	"codetective/internal/app/worker"
	"codetective/internal/common/security"
	"codetective/internal/domain/repository"
	"codetective/internal/platform/config"
	"codetective/internal/platform/database"
	"codetective/internal/platform/queue"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	fmt.Println("Database connected.")

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()
	fmt.Println("Redis connected.")

	// 5. Initialize Repositories
	playerRepo := repository.NewPgPlayerRepository(database.DB)
	taskRepo := repository.NewPgTaskRepository(database.DB)
	recordRepo := repository.NewPgGameRecordRepository(database.DB)
	roomRepo := repository.NewPgRoomRepository(database.DB)

	// 6. Initialize Services
	bus := event.NewBus()
	gradingQueue := queue.NewGradingQueue(queue.RDB, config.AppConfig.GradingQueueName)
	backend, err := judge.NewFromConfig(config.AppConfig)
	if err != nil {
		log.Fatalf("Could not initialize execution backend: %v", err)
	}

	authService, err := service.NewAuthService(playerRepo, config.AppConfig.AdminPassword)
	if err != nil {
		log.Fatalf("Could not initialize auth service: %v", err)
	}
	roomService := service.NewRoomService(bus, roomRepo)
	gameService := service.NewGameService(roomService, bus, gradingQueue, playerRepo, recordRepo, database.DB, config.AppConfig.TotalRounds)
	gradingService := service.NewGradingService(backend)
	taskService := service.NewTaskService(taskRepo, database.DB)
	leaderboardService := service.NewLeaderboardService(recordRepo)

	// 7. Initialize Grading Worker Pool (as a goroutine)
	gradingWorker := worker.NewGradingWorker(gradingQueue, taskRepo, gradingService, gameService, config.AppConfig.GradingWorkers)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go gradingWorker.Start(workerCtx)
	fmt.Println("Grading worker pool started.")

	// 8. Initialize Router & HTTP Server
	router := api.NewRouter(authService, roomService, gameService, gradingService, taskService, leaderboardService, bus)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")
	workerCancel() // Signal workers to stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server and workers stopped gracefully.")
}
