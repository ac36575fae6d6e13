package main

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/propdata-cli/internal/export"
	"github.com/sells-group/propdata-cli/internal/gate"
	"github.com/sells-group/propdata-cli/internal/model"
)

var (
	batchLimit       int
	batchConcurrency int
	batchSave        bool
	batchOut         string
	batchFormats     []string
)

var batchCmd = &cobra.Command{
	Use:   "batch <addresses.csv>",
	Short: "Look up a CSV of addresses and export the results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := initService()
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "open address file")
		}
		defer f.Close() //nolint:errcheck

		addresses, err := readAddresses(f)
		if err != nil {
			return err
		}

		records, err := processBatch(ctx, addresses, batchLimit, batchConcurrency, svc.Lookup)
		if err != nil {
			return err
		}

		if batchSave && len(records) > 0 {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if _, err := st.SaveProperties(ctx, records); err != nil {
				return eris.Wrap(err, "save batch results")
			}
		}

		if len(records) > 0 {
			if _, err := export.Write(cfg.Export.Dir, batchOut, batchFormats, records, cfg.Export.IncludeRaw); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of addresses to process (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 2, "max concurrent lookups")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "save results to the configured store")
	batchCmd.Flags().StringVar(&batchOut, "out", "batch", "output filename prefix")
	batchCmd.Flags().StringSliceVar(&batchFormats, "format", []string{"json"}, "output formats (json, csv, xlsx)")
	rootCmd.AddCommand(batchCmd)
}

// readAddresses parses a CSV of street addresses. If the header row has
// an "address" column that column is used, otherwise the first column.
func readAddresses(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "parse address csv")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := 0
	start := 0
	for i, name := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(name), "address") {
			col = i
			start = 1
			break
		}
	}

	var addresses []string
	for _, row := range rows[start:] {
		if col >= len(row) {
			continue
		}
		if addr := strings.TrimSpace(row[col]); addr != "" {
			addresses = append(addresses, addr)
		}
	}
	return addresses, nil
}

// lookupFunc is the callback signature for resolving one address.
type lookupFunc func(ctx context.Context, address string) (*model.PropertyRecord, error)

// processBatch applies limit, then looks up addresses concurrently.
// Individual failures are logged and skipped rather than aborting the
// batch; quota refusals surface through the returned error.
func processBatch(ctx context.Context, addresses []string, limit, concurrency int, lookup lookupFunc) ([]model.PropertyRecord, error) {
	if len(addresses) == 0 {
		zap.L().Info("no addresses to process")
		return nil, nil
	}

	if limit > 0 && len(addresses) > limit {
		addresses = addresses[:limit]
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("addresses", len(addresses)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	var records []model.PropertyRecord
	var found, missed, failed atomic.Int64

	for _, address := range addresses {
		address := address
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			log := zap.L().With(zap.String("address", address))

			record, err := lookup(gctx, address)
			if err != nil {
				// A quota refusal will refuse every remaining address too;
				// stop the batch instead of spinning through them.
				var quota *gate.QuotaError
				if errors.As(err, &quota) {
					return err
				}
				failed.Add(1)
				log.Error("lookup failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}
			if record == nil {
				missed.Add(1)
				log.Warn("no property found")
				return nil
			}

			found.Add(1)
			mu.Lock()
			records = append(records, *record)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("found", found.Load()),
		zap.Int64("missed", missed.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return records, nil
}
