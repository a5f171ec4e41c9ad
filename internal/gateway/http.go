package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"lmsgate/pkg/logging"
)

const (
	// apiPrefix is the inbound path prefix mirrored onto the backend.
	apiPrefix = "/api/"

	// maxRequestBody bounds inbound passthrough bodies.
	maxRequestBody = 32 << 20
)

// ErrorBody is the JSON body written for locally generated failures.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HTTPHandler exposes a pipeline Handler over HTTP.
type HTTPHandler struct {
	pipeline Handler
	metrics  *Metrics
}

// NewHTTPHandler creates the handler. metrics may be nil, in which case
// /metrics is not served.
func NewHTTPHandler(pipeline Handler, metrics *Metrics) *HTTPHandler {
	return &HTTPHandler{pipeline: pipeline, metrics: metrics}
}

// CreateMux routes /health, /metrics and the /api/ passthrough.
func (h *HTTPHandler) CreateMux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics.Handler())
	}

	mux.HandleFunc(apiPrefix, h.serveAPI)

	return mux
}

func (h *HTTPHandler) serveAPI(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil && r.Method != http.MethodGet && r.Method != http.MethodHead {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
	}

	req := &Request{
		Method:   r.Method,
		Path:     strings.TrimPrefix(r.URL.Path, apiPrefix),
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
	}

	resp, err := h.pipeline.Do(r.Context(), req)
	if err != nil {
		h.writePipelineError(w, resp, err)
		return
	}
	writeResponse(w, resp)
}

func (h *HTTPHandler) writePipelineError(w http.ResponseWriter, resp *Response, err error) {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		logging.Error("Gateway", err, "Pipeline failed")
		writeError(w, http.StatusInternalServerError, "Internal gateway error", err.Error())
		return
	}

	switch gwErr.Kind {
	case KindRateLimited:
		if gwErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(gwErr.RetryAfter.Seconds()))))
		}
		writeError(w, http.StatusTooManyRequests, "Too many requests", gwErr.Error())
	case KindNetworkFailure:
		if resp != nil {
			writeResponse(w, resp)
			return
		}
		writeError(w, http.StatusBadGateway, "Failed to reach backend", gwErr.Error())
	case KindInvalidRequest:
		writeError(w, http.StatusBadRequest, "Invalid request", gwErr.Error())
	case KindAuthRequired:
		writeError(w, http.StatusUnauthorized, "Authentication required", gwErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Internal gateway error", gwErr.Error())
	}
}

func writeResponse(w http.ResponseWriter, resp *Response) {
	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	if resp.FromCache {
		w.Header().Set("X-Cache", "HIT")
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: msg, Details: details})
}
