package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"mlmonitor/internal/config"
	"mlmonitor/internal/provision"
	"mlmonitor/internal/storage"
)

// One-shot provisioner: waits for the object storage service, ensures the
// default bucket exists with a public-read policy, then exits.
func main() {
	log.Println("Starting storage provisioner...")

	config.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	cfg.SetupLogging()

	store, err := storage.NewS3Provider(storage.S3Config{
		Endpoint:        cfg.S3EndpointURL,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Region:          cfg.S3Region,
	})
	if err != nil {
		log.Fatalf("Failed to create storage provider: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provisioner := provision.New(store, cfg.DefaultBucket, cfg.PollInterval, cfg.MaxWait)
	if err := provisioner.Run(ctx); err != nil {
		log.Fatalf("Provisioning failed: %v", err)
	}

	log.Printf("Provisioning finished: bucket %q is ready", cfg.DefaultBucket)
}
