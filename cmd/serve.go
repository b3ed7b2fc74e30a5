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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/model"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/processor"
	"github.com/ramez00/Autonomous-Investment-Research-Agent/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the research API server and background processor",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		orch, err := initOrchestrator()
		if err != nil {
			return err
		}

		proc := processor.New(st, orch, processor.Config{
			PollInterval: time.Duration(cfg.Processor.PollIntervalSecs) * time.Second,
			Workers:      cfg.Processor.Workers,
			PollBatch:    cfg.Processor.PollBatch,
		})

		procDone := make(chan error, 1)
		go func() {
			procDone <- proc.Run(ctx)
		}()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      buildRouter(st, proc.Enqueue),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}

		// Graceful shutdown: stop accepting requests, then let the
		// processor finish its in-flight jobs.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		if err := <-procDone; err != nil && !errors.Is(err, context.Canceled) {
			return eris.Wrap(err, "processor")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter assembles the HTTP API. enqueue hands newly created job IDs to
// the background processor; the poll loop would pick them up anyway, enqueue
// just skips the wait.
func buildRouter(st store.Store, enqueue func(jobID string)) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/jobs", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Symbol      string `json:"symbol"`
			CompanyName string `json:"company_name"`
			Depth       string `json:"depth"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Symbol == "" {
			writeError(w, http.StatusBadRequest, "symbol is required")
			return
		}
		depth := model.ResearchDepth(body.Depth)
		if body.Depth == "" {
			depth = model.DepthStandard
		}
		if !model.ValidDepth(depth) {
			writeError(w, http.StatusBadRequest, "depth must be quick, standard, or deep")
			return
		}

		job, err := st.CreateJob(req.Context(), body.Symbol, body.CompanyName, depth)
		if err != nil {
			zap.L().Error("create job failed", zap.String("symbol", body.Symbol), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "create job failed")
			return
		}
		if enqueue != nil {
			enqueue(job.ID)
		}

		writeJSON(w, http.StatusAccepted, job)
	})

	r.Get("/jobs", func(w http.ResponseWriter, req *http.Request) {
		limit := 50
		if v := req.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}
		filter := store.JobFilter{
			Status: model.JobStatus(req.URL.Query().Get("status")),
			Symbol: req.URL.Query().Get("symbol"),
			Limit:  limit,
		}

		jobs, err := st.ListJobs(req.Context(), filter)
		if err != nil {
			zap.L().Error("list jobs failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list jobs failed")
			return
		}
		if jobs == nil {
			jobs = []model.Job{}
		}
		writeJSON(w, http.StatusOK, jobs)
	})

	r.Get("/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
		jobID := chi.URLParam(req, "id")

		job, err := st.GetJob(req.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "job not found")
				return
			}
			zap.L().Error("get job failed", zap.String("job_id", jobID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "get job failed")
			return
		}

		steps, err := st.ListSteps(req.Context(), jobID)
		if err != nil {
			zap.L().Error("list steps failed", zap.String("job_id", jobID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list steps failed")
			return
		}
		job.Steps = steps

		writeJSON(w, http.StatusOK, job)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
