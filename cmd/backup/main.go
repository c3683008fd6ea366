package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"mlmonitor/internal/backup"
	"mlmonitor/internal/config"
	"mlmonitor/internal/storage"
)

const usage = `usage: backup [-env FILE] [-label LABEL] [-dest DIR] [-overwrite] <backup|restore|list>

  backup    upload the workspace directory to the storage bucket
  restore   download a snapshot (-label required) into -dest
  list      print stored snapshot labels
`

func main() {
	var (
		label     = flag.String("label", "", "snapshot label (default: timestamp on backup, required on restore)")
		dest      = flag.String("dest", "", "restore destination (default: workspace dir)")
		overwrite = flag.Bool("overwrite", false, "replace restore destination if it exists")
	)

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

	manager := backup.NewManager(store, cfg.DefaultBucket)
	ctx := context.Background()

	switch flag.Arg(0) {
	case "backup":
		prefix, err := manager.Backup(ctx, cfg.WorkspaceDir, *label)
		if err != nil {
			log.Fatalf("Backup failed: %v", err)
		}
		log.Printf("Workspace backed up to s3://%s/%s", cfg.DefaultBucket, prefix)

	case "restore":
		if *label == "" {
			log.Fatalf("restore requires -label")
		}
		target := *dest
		if target == "" {
			target = cfg.WorkspaceDir
		}
		if err := manager.Restore(ctx, *label, target, *overwrite); err != nil {
			log.Fatalf("Restore failed: %v", err)
		}
		log.Printf("Snapshot %q restored to %s", *label, target)

	case "list":
		labels, err := manager.List(ctx)
		if err != nil {
			log.Fatalf("List failed: %v", err)
		}
		for _, l := range labels {
			fmt.Println(l)
		}

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}
