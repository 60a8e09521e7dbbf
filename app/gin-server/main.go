package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/interpretd/speechrelay/config"
	"github.com/interpretd/speechrelay/internal/api/handlers"
	"github.com/interpretd/speechrelay/internal/api/middleware"
	"github.com/interpretd/speechrelay/internal/api/routes"
	"github.com/interpretd/speechrelay/internal/cache"
	"github.com/interpretd/speechrelay/internal/logger"
	"github.com/interpretd/speechrelay/internal/providers/llm"
	"github.com/interpretd/speechrelay/internal/providers/stt"
	"github.com/interpretd/speechrelay/internal/providers/translate"
	"github.com/interpretd/speechrelay/internal/providers/tts"
	mongorepo "github.com/interpretd/speechrelay/internal/repositories/mongo"
	pgrepo "github.com/interpretd/speechrelay/internal/repositories/postgres"
	"github.com/interpretd/speechrelay/internal/services"
	"github.com/interpretd/speechrelay/internal/storage"
	"github.com/interpretd/speechrelay/internal/transport"
	"github.com/interpretd/speechrelay/internal/workers"
)

func main() {
	_ = godotenv.Load()

	lg := logger.New()
	ctx := context.Background()

	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	lg.Info("PostgreSQL connected")

	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	lg.Info("MongoDB connected")

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	lg.Info("Redis connected")

	mongoDB := config.MongoClient.Database(config.MongoDBName())

	// Repositories
	eventRepo := pgrepo.NewEventRepo(config.PostgresDB)
	transcriptRepo := pgrepo.NewTranscriptRepo(config.PostgresDB)
	bufferRepo := mongorepo.NewTranscriptBufferRepo(mongoDB)

	// Storage (optional: export disabled without a bucket)
	var uploader storage.Uploader
	var signer storage.Signer
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		gcsStore, err := storage.NewGCSStorage(ctx, bucket)
		if err != nil {
			log.Fatalf("GCS init error: %v", err)
		}
		defer gcsStore.Close()
		uploader, signer = gcsStore, gcsStore
	}

	// Providers
	var translator translate.Provider
	if key := os.Getenv("DEEPL_API_KEY"); key != "" {
		if base := os.Getenv("DEEPL_API_URL"); base != "" {
			translator = translate.NewDeepLWithBaseURL(key, base)
		} else {
			translator = translate.NewDeepL(key)
		}
	}

	var synthesizer tts.Provider
	if key := os.Getenv("AZURE_SPEECH_KEY"); key != "" {
		region := os.Getenv("AZURE_SPEECH_REGION")
		if region == "" {
			region = "westeurope"
		}
		synthesizer = tts.NewAzure(key, region)
	}

	var enhancer llm.Provider
	if project := os.Getenv("GCP_PROJECT_ID"); project != "" {
		location := os.Getenv("GCP_LOCATION")
		if location == "" {
			location = "us-central1"
		}
		v, err := llm.NewVertexGemini(ctx, project, location, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			log.Fatalf("Vertex init error: %v", err)
		}
		defer v.Close()
		enhancer = v
	}

	var recognizer stt.Provider
	if os.Getenv("ENABLE_SERVER_STT") == "true" {
		g, err := stt.NewGoogleSpeech(ctx)
		if err != nil {
			log.Fatalf("Speech init error: %v", err)
		}
		defer g.Close()
		recognizer = g
	}

	// Wiring
	hub := transport.NewHub(config.RedisClient, lg)
	rcache := cache.NewRedisCache(config.RedisClient)

	eventSvc := services.NewEventService(eventRepo, hub)
	translationSvc := services.NewTranslationService(translator, rcache)
	transcriptSvc := services.NewTranscriptService(bufferRepo, transcriptRepo, eventRepo, uploader, signer, nil)
	captureSvc := services.NewCaptureService(config.RedisClient, hub, enhancer, transcriptSvc, eventSvc, lg)
	broadcastSvc := services.NewBroadcastService(config.RedisClient, hub, eventSvc, transcriptSvc, translationSvc, nil, lg)

	if recognizer != nil {
		pool := &workers.AudioWorkerPool{
			Redis:    config.RedisClient,
			Captures: captureSvc,
			STT:      recognizer,
			Logger:   lg,
		}
		if err := pool.Start(ctx); err != nil {
			log.Fatalf("Audio worker init error: %v", err)
		}
		lg.Info("audio worker pool started")
	}

	// HTTP surface
	r := gin.New()
	r.Use(middleware.RequestLogger(lg), gin.Recovery())

	routes.RegisterRoutes(r, routes.Deps{
		Event:      handlers.NewEventHandler(eventSvc),
		Transcript: handlers.NewTranscriptHandler(transcriptSvc),
		Translate:  handlers.NewTranslateHandler(translationSvc),
		TTS:        handlers.NewTTSHandler(synthesizer),
		Broadcast:  handlers.NewBroadcastWSHandler(broadcastSvc),
		Capture:    handlers.NewCaptureWSHandler(captureSvc, eventSvc),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
