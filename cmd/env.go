package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/propdata-cli/internal/gate"
	"github.com/sells-group/propdata-cli/internal/ledger"
	"github.com/sells-group/propdata-cli/internal/propdata"
	"github.com/sells-group/propdata-cli/internal/resilience"
	"github.com/sells-group/propdata-cli/internal/store"
	"github.com/sells-group/propdata-cli/pkg/propstream"
)

// initService wires the ledger, gate, and upstream client into a
// ready-to-use property service.
func initService() (*propdata.Service, error) {
	if cfg.Propstream.AuthToken == "" {
		return nil, eris.New("propstream auth token is required (PROPDATA_PROPSTREAM_AUTH_TOKEN)")
	}

	led := ledger.New(cfg.Gate.LedgerPath)
	g := gate.New(led, gate.Config{
		MinDelay:    cfg.Gate.MinDelay(),
		MaxDelay:    cfg.Gate.MaxDelay(),
		HourlyLimit: cfg.Gate.HourlyLimit,
		DailyLimit:  cfg.Gate.DailyLimit,
	})

	retry := resilience.DefaultRetryConfig()
	if cfg.Propstream.MaxRetries > 0 {
		retry.MaxAttempts = cfg.Propstream.MaxRetries
	}

	client := propstream.NewClient(cfg.Propstream.AuthToken,
		propstream.WithBaseURL(cfg.Propstream.BaseURL),
		propstream.WithGate(g),
		propstream.WithRetry(retry),
		propstream.WithTimeout(time.Duration(cfg.Propstream.TimeoutSecs)*time.Second),
	)

	return propdata.New(client, g), nil
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
