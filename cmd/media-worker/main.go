package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/config"
	"github.com/lumenai/lumen-api/internal/domain/generation"
	"github.com/lumenai/lumen-api/internal/domain/ledger"
	"github.com/lumenai/lumen-api/internal/domain/user"
	"github.com/lumenai/lumen-api/internal/pkg/database"
	"github.com/lumenai/lumen-api/internal/pkg/email"
	"github.com/lumenai/lumen-api/internal/pkg/storage"
)

const (
	dequeueTimeout = 5 * time.Second
	renderSize     = 1024
	thumbSize      = 400
	jpegQuality    = 85
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().Msg("Starting media-worker")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	store, err := newStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}

	emails := email.NewService(email.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	})
	defer emails.Close()

	// The worker holds no client sockets; the hub is here only to publish
	// job events to the API instances over Redis.
	hub := generation.NewHub(rdb)
	defer hub.Stop()

	generationRepo := generation.NewRepository(db)
	ledgerService := ledger.NewService(ledger.NewRepository(db))
	userRepo := user.NewRepository(db)
	queue := generation.NewQueue(rdb, cfg.GenerationQueueKey)

	svc := generation.NewService(generationRepo, queue, ledgerService, userRepo, emails, hub, generation.ServiceConfig{
		MaxQueuedPerUser:    cfg.GenerationMaxQueued,
		LowBalanceThreshold: cfg.LowBalanceThreshold,
		FrontendURL:         cfg.FrontendURL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	for {
		if ctx.Err() != nil {
			log.Info().Msg("media-worker stopped")
			return
		}

		msg, err := queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("media-worker stopped")
				return
			}
			log.Error().Err(err).Msg("Dequeue failed")
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		processJob(ctx, svc, store, msg)
	}
}

func processJob(ctx context.Context, svc *generation.Service, store storage.Storage, msg *generation.QueueMessage) {
	job, err := svc.Start(ctx, msg.JobID)
	if err != nil {
		log.Error().Err(err).Str("job_id", msg.JobID.String()).Msg("Failed to claim job")
		return
	}
	if job == nil {
		// Another worker got there first
		return
	}

	start := time.Now()
	log.Info().
		Str("job_id", job.ID.String()).
		Str("kind", string(job.Kind)).
		Msg("Processing job")

	resultURL, thumbURL, err := render(ctx, store, job)
	if err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("Rendering failed")
		if err2 := svc.CompleteFailure(ctx, job.ID, err.Error()); err2 != nil {
			log.Error().Err(err2).Str("job_id", job.ID.String()).Msg("Failed to finalize failed job")
		}
		return
	}

	if err := svc.CompleteSuccess(ctx, job.ID, resultURL, thumbURL); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("Failed to finalize job")
		return
	}

	log.Info().
		Str("job_id", job.ID.String()).
		Dur("took", time.Since(start)).
		Msg("Job done")
}

// render produces the job artifact and uploads it with a thumbnail. The
// model backend is not wired yet; a deterministic placeholder image stands
// in so the rest of the pipeline is exercised end to end.
// TODO: call the real inference backend once its API is available.
func render(ctx context.Context, store storage.Storage, job *generation.Job) (string, string, error) {
	img := placeholderImage(job)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", "", fmt.Errorf("encode result: %w", err)
	}

	resultKey := fmt.Sprintf("generations/%s.jpg", job.ID)
	if err := store.Save(ctx, resultKey, bytes.NewReader(buf.Bytes()), "image/jpeg"); err != nil {
		return "", "", fmt.Errorf("upload result: %w", err)
	}

	thumb := imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
	var thumbBuf bytes.Buffer
	if err := imaging.Encode(&thumbBuf, thumb, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", "", fmt.Errorf("encode thumb: %w", err)
	}

	thumbKey := fmt.Sprintf("generations/%s_thumb.jpg", job.ID)
	if err := store.Save(ctx, thumbKey, bytes.NewReader(thumbBuf.Bytes()), "image/jpeg"); err != nil {
		return "", "", fmt.Errorf("upload thumb: %w", err)
	}

	return store.GetURL(resultKey), store.GetURL(thumbKey), nil
}

// placeholderImage renders a gradient seeded by the job id, so repeated runs
// of the same job produce the same bytes.
func placeholderImage(job *generation.Job) image.Image {
	seed := sha256.Sum256([]byte(job.ID.String() + job.Prompt))
	base := color.NRGBA{R: seed[0], G: seed[1], B: seed[2], A: 255}

	img := imaging.New(renderSize, renderSize, base)
	for y := 0; y < renderSize; y++ {
		shade := uint8(y * 255 / renderSize)
		for x := 0; x < renderSize; x += 4 {
			img.Set(x, y, color.NRGBA{
				R: base.R ^ shade,
				G: base.G,
				B: base.B ^ seed[x%32],
				A: 255,
			})
		}
	}
	return img
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.R2AccountID != "" {
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		})
	}
	return storage.NewLocalStorage("data/media", cfg.BackendURL+"/media")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
