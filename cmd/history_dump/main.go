package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"pricecompare/internal/catalog"
	"pricecompare/internal/config"
	"pricecompare/internal/logger"
	"pricecompare/internal/series"
)

// productTable is one product's merged comparison table.
type productTable struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	LowestPrice float64            `json:"lowestPrice"`
	Rows        []series.MergedRow `json:"rows"`
}

func main() {
	var (
		outPath     string
		cfgPath     string
		rangeFlag   string
		platforms   string
		concurrency int
	)
	flag.StringVar(&outPath, "out", "price_history.json", "output JSON file path")
	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_FILE"), "path to config.yaml (optional)")
	flag.StringVar(&rangeFlag, "range", "1y", "window: 15d,1m,3m,6m,1y,2y or a number of days")
	flag.StringVar(&platforms, "platforms", "", "comma-separated platforms to include (default all)")
	flag.IntVar(&concurrency, "concurrency", 4, "number of products merged in parallel")
	flag.Parse()

	log := logger.GetLogger().WithComponent("history_dump")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	days, err := series.ParseWindow(rangeFlag)
	if err != nil {
		log.WithError(err).Fatal("range")
	}
	show, err := series.ParseVisible(platforms)
	if err != nil {
		log.WithError(err).Fatal("platforms")
	}

	var src catalog.Source = catalog.StaticSource(catalog.Seed(time.Now(), cfg.Catalog.SeedDays))
	if cfg.Catalog.File != "" {
		src = catalog.FileSource{Path: cfg.Catalog.File}
	}
	products, err := src.Products(context.Background())
	if err != nil {
		log.WithError(err).Fatal("catalog")
	}
	log.WithFields(logger.Fields{"products": len(products), "window_days": days}).Info("dumping")

	outFile, err := os.Create(outPath)
	if err != nil {
		log.WithError(err).Fatal("create out")
	}
	defer outFile.Close()
	bw := bufio.NewWriterSize(outFile, 1<<20)

	n, err := dump(bw, products, days, show, concurrency)
	if err != nil {
		log.WithError(err).Fatal("dump")
	}
	if err := bw.Flush(); err != nil {
		log.WithError(err).Fatal("flush")
	}
	log.WithFields(logger.Fields{"path": outPath, "products": n}).Info("done")
}

// dump streams {"windowDays":N,"products":[...]} to w, merging products on a
// worker pool. Product order in the output follows completion order.
func dump(w io.Writer, products []catalog.Product, days int, show map[series.Platform]bool, concurrency int) (int, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	if _, err := fmt.Fprintf(w, `{"windowDays":%d,"products":[`, days); err != nil {
		return 0, err
	}

	var (
		mu       sync.Mutex
		first    = true
		written  int
		writeErr error
	)
	jobs := make(chan catalog.Product, concurrency*2)
	wg := sync.WaitGroup{}

	worker := func() {
		defer wg.Done()
		for p := range jobs {
			rows := series.Compare(p.Platforms, days)
			if show != nil {
				rows = series.Visible(rows, show)
			}
			b, err := json.Marshal(productTable{ID: p.ID, Title: p.Title, LowestPrice: p.LowestPrice(), Rows: rows})

			mu.Lock()
			if writeErr == nil {
				if err != nil {
					writeErr = fmt.Errorf("encode %s: %w", p.ID, err)
				} else {
					if !first {
						_, writeErr = io.WriteString(w, ",")
					}
					first = false
					if writeErr == nil {
						_, writeErr = w.Write(b)
					}
					written++
				}
			}
			mu.Unlock()
		}
	}

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker()
	}
	for _, p := range products {
		jobs <- p
	}
	close(jobs)
	wg.Wait()

	if writeErr != nil {
		return written, writeErr
	}
	if _, err := io.WriteString(w, "]}\n"); err != nil {
		return written, err
	}
	return written, nil
}
