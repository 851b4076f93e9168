package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/force-pipeline/internal/decay"
	"github.com/sells-group/force-pipeline/internal/dedupe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve resolve, decay and merge over HTTP for webhook callers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		resolver, err := loadResolver()
		if err != nil {
			return err
		}
		classifier := decay.FromConfig(cfg.Decay)

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		mux.HandleFunc("POST /resolve", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Text  string `json:"text"`
				Email string `json:"email"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}

			var id string
			if req.Email != "" {
				id = resolver.ResolveEmail(req.Email)
			} else {
				id = resolver.ResolveMention(req.Text)
			}
			if id == "" {
				writeJSON(w, http.StatusOK, map[string]any{"resolved": false})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"resolved":       true,
				"force_id":       id,
				"canonical_name": resolver.CanonicalName(id),
			})
		})

		mux.HandleFunc("GET /decay", func(w http.ResponseWriter, r *http.Request) {
			contacts, err := st.ListContactsWithLastContact(r.Context())
			if err != nil {
				zap.L().Error("serve: list contacts", zap.Error(err))
				http.Error(w, `{"error":"store unavailable"}`, http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, classifier.BuildReport(contacts, time.Now().UTC()))
		})

		mux.HandleFunc("POST /merge", func(w http.ResponseWriter, r *http.Request) {
			open, err := st.ListOpenOpportunities(r.Context(), "")
			if err != nil {
				zap.L().Error("serve: list open opportunities", zap.Error(err))
				http.Error(w, `{"error":"store unavailable"}`, http.StatusInternalServerError)
				return
			}
			merger := dedupe.New(st, dedupe.WithRateLimit(cfg.Store.WriteRPS))
			results, err := merger.Run(r.Context(), open)
			if err != nil {
				zap.L().Error("serve: merge run", zap.Error(err))
				http.Error(w, `{"error":"merge failed"}`, http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"merged": results})
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("serve: listening", zap.Int("port", cfg.Server.Port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return eris.Wrap(srv.Shutdown(shutdownCtx), "serve: shutdown")
		case err := <-errCh:
			return eris.Wrap(err, "serve: listen")
		}
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
