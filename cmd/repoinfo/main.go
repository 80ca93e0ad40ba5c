/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// repoinfo is a small operational tool for inspecting and seeding a
// repository table described by a config file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suparena/genericrepo"
	"github.com/suparena/genericrepo/config"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	configFlag  = flag.String("config", "repo.yaml", "Path to repository config file")
	countFlag   = flag.Bool("count", false, "Print the approximate item count")
	seedFlag    = flag.Int("seed", 0, "Write n sample items with generated keys")
)

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		info := genericrepo.GetVersionInfo()
		fmt.Printf("repoinfo version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "repoinfo: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	settings, err := config.Load(*configFlag)
	if err != nil {
		return err
	}

	client, err := genericrepo.NewClient(ctx, settings.Region)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	repo, err := genericrepo.New(client, settings.RepositoryConfig(),
		genericrepo.WithLogger(logger))
	if err != nil {
		return err
	}

	if *countFlag {
		count, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s: ~%d items\n", repo.TableName(), count)
	}

	if *seedFlag > 0 {
		items := make([]genericrepo.Item, 0, *seedFlag)
		for i := 0; i < *seedFlag; i++ {
			items = append(items, genericrepo.Item{
				repo.PrimaryKeyName(): uuid.NewString(),
				"seeded":              true,
				"seq":                 i,
				"createdAt":           time.Now().UTC().Format(time.RFC3339),
			})
		}
		if err := repo.SaveBatch(ctx, items); err != nil {
			return err
		}
		fmt.Printf("%s: seeded %d items\n", repo.TableName(), *seedFlag)
	}

	return nil
}
