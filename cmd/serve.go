package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP trigger surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		p, reports, err := buildPipeline(st, pipeline.FormatCSV)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(p, reports, st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type generateRequest struct {
	BusinessType string `json:"businessType"`
	Location     string `json:"location"`
	LeadCount    int    `json:"leadCount,omitempty"`
}

type generateResponse struct {
	Filename        string `json:"filename,omitempty"`
	FileSizeInBytes int64  `json:"fileSizeInBytes,omitempty"`
	LeadCount       int    `json:"leadCount,omitempty"`
	Message         string `json:"message,omitempty"`
}

func newRouter(p *pipeline.Pipeline, reports *pipeline.ReportGenerator, st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Post("/generate-leads", func(w http.ResponseWriter, req *http.Request) {
		var body generateRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, generateResponse{Message: "invalid request body"})
			return
		}
		if body.BusinessType == "" || body.Location == "" {
			writeJSON(w, http.StatusBadRequest, generateResponse{Message: "businessType and location are required"})
			return
		}
		if body.LeadCount < 0 {
			writeJSON(w, http.StatusBadRequest, generateResponse{Message: "leadCount must not be negative"})
			return
		}

		outcome, runErr := p.GenerateLeads(req.Context(), body.BusinessType, body.Location, body.LeadCount)
		switch outcome.Kind {
		case model.OutcomeSuccess:
			writeJSON(w, http.StatusOK, generateResponse{
				Filename:        outcome.Report.Filename,
				FileSizeInBytes: outcome.Report.SizeBytes,
				LeadCount:       outcome.LeadCount,
			})
		case model.OutcomeNoLeads:
			writeJSON(w, http.StatusOK, generateResponse{Message: "no leads found"})
		default:
			zap.L().Error("generate-leads failed", zap.Error(runErr))
			writeJSON(w, http.StatusInternalServerError, generateResponse{Message: outcome.Message})
		}
	})

	r.Get("/api/report/latest", func(w http.ResponseWriter, req *http.Request) {
		meta, err := st.LatestReportMeta(req.Context())
		if err != nil {
			zap.L().Error("latest report lookup failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, generateResponse{Message: "internal error"})
			return
		}
		if meta == nil {
			writeJSON(w, http.StatusNotFound, generateResponse{Message: "no report available"})
			return
		}
		writeJSON(w, http.StatusOK, meta)
	})

	r.Get("/api/report/download", func(w http.ResponseWriter, req *http.Request) {
		meta, err := st.LatestReportMeta(req.Context())
		if err != nil || meta == nil {
			writeJSON(w, http.StatusNotFound, generateResponse{Message: "no report available"})
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.Filename))
		http.ServeFile(w, req, reports.Path(meta.Filename))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
