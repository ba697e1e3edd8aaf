// Command binimport loads bin master data from a YAML file:
//
//	warehouse: WH-North      # default for entries without one
//	bins:
//	  - bin_code: A001
//	    location: Aisle 1
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"audit-backend/internal/cache"
	"audit-backend/internal/config"
	"audit-backend/internal/db"
	"audit-backend/internal/models"
	"audit-backend/internal/repositories"
	"audit-backend/internal/services"

	"gopkg.in/yaml.v3"
)

type binFile struct {
	Warehouse string        `yaml:"warehouse"`
	Bins      []*models.Bin `yaml:"bins"`
}

func main() {
	path := flag.String("file", "bins.yaml", "YAML file with bin master data")
	flag.Parse()

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("open %s: %v", *path, err)
	}
	bins, err := loadBins(f)
	f.Close()
	if err != nil {
		log.Fatalf("parse %s: %v", *path, err)
	}

	cfg := config.Load()
	pool := db.Connect(cfg)
	defer pool.Close()

	if cfg.Redis.Enabled {
		if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password); err != nil {
			log.Printf("[Redis] unavailable, cached bin lists expire on their own: %v", err)
		}
		defer cache.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := services.NewBinService(repositories.NewBinRepository(pool)).Import(ctx, bins)
	if err != nil {
		log.Fatalf("import stopped after %d bins: %v", n, err)
	}
	log.Printf("[BinImport] Imported %d bins from %s", n, *path)
}

func loadBins(r io.Reader) ([]*models.Bin, error) {
	var file binFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, err
	}
	if len(file.Bins) == 0 {
		return nil, fmt.Errorf("no bins listed")
	}
	for _, b := range file.Bins {
		if b.WarehouseName == "" {
			b.WarehouseName = file.Warehouse
		}
	}
	return file.Bins, nil
}
