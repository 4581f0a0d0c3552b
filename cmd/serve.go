/*
Copyright © 2024 Dean
*/
package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	httphandler "evalrag/handler/http"
	"evalrag/src/core/eval"
	"evalrag/src/core/rag"
	"evalrag/src/infrastructure/integrations/ollama"
	"evalrag/src/infrastructure/job"
	"evalrag/src/infrastructure/log"
	"evalrag/src/storage/postgres/runctrl"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the question answering and evaluation HTTP server",
	Long: `The serve command starts an HTTP server exposing the query endpoint and
the evaluation run API. Evaluation runs are enqueued for the worker.`,
	Run: RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	settingDefaultConfig()
}

func RunServer(cmd *cobra.Command, args []string) {
	log.UseProduction()

	db, err := openDatabase()
	if err != nil {
		log.Error(err, "Failed to connect to database")
		return
	}

	oc := newOllamaClient()

	index, ensureIndex, err := newVectorIndex()
	if err != nil {
		log.Error(err, "Failed to create vector index")
		return
	}
	if err := ensureIndex(context.Background()); err != nil {
		log.Error(err, "Failed to ensure vector index schema")
		return
	}

	// Serving pipeline
	embedder := ollama.NewEmbeddingProvider(oc, viper.GetString("models.embedding"))
	retriever := rag.NewRetriever(embedder, index)
	prompts, err := rag.NewPromptBuilder("")
	if err != nil {
		log.Error(err, "Failed to build prompt template")
		return
	}
	generator := rag.NewGenerator(oc, rag.GeneratorConfig{
		Model:      viper.GetString("models.generation"),
		Timeout:    time.Duration(viper.GetInt("eval.timeout_ms")) * time.Millisecond,
		MaxRetries: viper.GetInt("eval.max_retries"),
	})
	pipeline := rag.NewPipeline(retriever, prompts, generator, viper.GetInt("eval.k"))

	// Job queue publisher
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		log.Error(err, "Failed to create AMQP publisher")
		return
	}
	defer amqpPublisher.Close()

	jobRepo := job.NewPostgresJobRepository(db)
	jobService := job.NewJobService(amqpPublisher, jobRepo, watermill.NewStdLogger(false, false))

	runService, err := runctrl.NewRunService(db)
	if err != nil {
		log.Error(err, "Failed to create run service")
		return
	}
	evalService := eval.NewService(jobService, runService)

	// Initialize HTTP handler
	handler := httphandler.NewHandler(pipeline, evalService).
		WithHealthCheck("vector_index", func(ctx context.Context) error {
			_, err := index.Size(ctx)
			return err
		}).
		WithHealthCheck("database", func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})

	// Setup gin router
	r := gin.Default()

	// Register routes
	handler.RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			return
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Parse shutdown timeout
	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Get underlying *sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		log.Error(err, "Failed to get underlying *sql.DB")
	} else {
		// Close database connection
		if err := sqlDB.Close(); err != nil {
			log.Error(err, "Error closing database connection")
		}
	}

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited")
}
