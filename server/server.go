// Package server exposes the ingest pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tlc-ingest/metrics"
	"tlc-ingest/models"
	"tlc-ingest/services"
	"tlc-ingest/utils"
)

const serviceName = "tlc-ingest"

// Ingester runs one monthly ingest.
type Ingester interface {
	Run(ctx context.Context, p models.Params) (*models.IngestReport, error)
}

type Server struct {
	ingester Ingester
	logger   *utils.Logger
}

func New(ingester Ingester, logger *utils.Logger) *Server {
	return &Server{ingester: ingester, logger: logger}
}

// Handler returns the router wrapped in an access log written to accessLog.
// A nil accessLog disables access logging.
func (s *Server) Handler(accessLog io.Writer) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/", s.ingest)
	r.HandleFunc("/ingest", s.ingest)

	if accessLog == nil {
		return r
	}
	return handlers.CombinedLoggingHandler(accessLog, r)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "running",
		"service": serviceName,
	})
}

// ingest runs the pipeline for the request's query parameters. The body is
// plain text; the status is 200 on success and 500 on any failure.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	params := services.ResolveParams(r.URL.Query())

	_, err := s.ingester.Run(r.Context(), params)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err != nil {
		kind := "unknown"
		if k, ok := services.KindOf(err); ok {
			kind = k.Label()
		}
		metrics.RequestsTotal.WithLabelValues("failure").Inc()
		metrics.ErrorsTotal.WithLabelValues(kind).Inc()
		s.logger.Error("[server] %s %s failed: %v", params.TaxiType, params.Period(), err)

		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Error: %s", err.Error())
		return
	}

	metrics.RequestsTotal.WithLabelValues("success").Inc()
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Successfully processed %s %s", params.TaxiType, params.Period())
}
