package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/propdata-cli/internal/config"
	"github.com/sells-group/propdata-cli/internal/export"
	"github.com/sells-group/propdata-cli/internal/gate"
	"github.com/sells-group/propdata-cli/internal/model"
	"github.com/sells-group/propdata-cli/internal/store"
	"github.com/sells-group/propdata-cli/pkg/propstream"
)

var servePort int

// propertyService is the subset of the property service the HTTP
// front-end needs; tests substitute a fake.
type propertyService interface {
	Lookup(ctx context.Context, address string) (*model.PropertyRecord, error)
	Search(ctx context.Context, query string) ([]model.AddressSuggestion, error)
	SearchProperties(ctx context.Context, c propstream.SearchCriteria) ([]model.PropertyRecord, error)
	UsageStats() model.UsageStats
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, err := initService()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		router := buildRouter(svc, st, cfg.Export, cfg.Server.AllowedOrigins)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background()) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func buildRouter(svc propertyService, st store.Store, exportCfg config.ExportConfig, allowedOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/lookup", func(w http.ResponseWriter, req *http.Request) {
		address := req.URL.Query().Get("address")
		if address == "" {
			writeError(w, http.StatusBadRequest, "address is required")
			return
		}

		record, err := svc.Lookup(req.Context(), address)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, "no property found")
			return
		}
		writeJSON(w, http.StatusOK, record)
	})

	r.Get("/api/search", func(w http.ResponseWriter, req *http.Request) {
		query := req.URL.Query().Get("q")
		if query == "" {
			writeError(w, http.StatusBadRequest, "q is required")
			return
		}

		suggestions, err := svc.Search(req.Context(), query)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, suggestions)
	})

	r.Get("/api/find", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		records, err := svc.SearchProperties(req.Context(), propstream.SearchCriteria{
			City:    q.Get("city"),
			State:   q.Get("state"),
			ZipCode: q.Get("zip"),
			County:  q.Get("county"),
			APN:     q.Get("apn"),
			Limit:   limit,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	})

	r.Get("/api/stats", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, svc.UsageStats())
	})

	r.Post("/api/export", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			City    string   `json:"city"`
			State   string   `json:"state"`
			Limit   int      `json:"limit"`
			Prefix  string   `json:"prefix"`
			Formats []string `json:"formats"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(body.Formats) == 0 {
			body.Formats = []string{"csv"}
		}

		records, err := st.ListProperties(req.Context(), store.Filter{
			City:  body.City,
			State: body.State,
			Limit: body.Limit,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		paths, err := export.Write(exportCfg.Dir, body.Prefix, body.Formats, records, exportCfg.IncludeRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count": len(records),
			"files": paths,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps known failure modes to HTTP statuses: quota
// refusals become 429, upstream failures become 502.
func writeServiceError(w http.ResponseWriter, err error) {
	var quota *gate.QuotaError
	if errors.As(err, &quota) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":               quota.Error(),
			"scope":               string(quota.Scope),
			"retry_after_seconds": int(quota.RetryAfter.Seconds()),
		})
		return
	}

	var upstream *propstream.UpstreamError
	if errors.As(err, &upstream) {
		writeError(w, http.StatusBadGateway, upstream.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}
