package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/rxprice/cache"
	"github.com/jonwraymond/rxprice/observe"
	"github.com/jonwraymond/rxprice/pricing"
	"github.com/jonwraymond/rxprice/resilience"
	"github.com/jonwraymond/rxprice/usage"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a JSON body into dst. An empty body leaves dst unchanged.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) *APIError {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	err := json.NewDecoder(body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &APIError{
				Status:  http.StatusRequestEntityTooLarge,
				Kind:    KindValidation,
				Message: "request body too large",
			}
		}
		return validationError("Validation error", map[string]string{"body": err.Error()})
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	apiErr := toAPIError(err)
	s.logError(r.Context(), msg, err, apiErr)
	writeError(w, apiErr)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Medication Price Comparison API",
		"status":  "active",
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req pricing.ChatRequest
	if apiErr := s.decodeBody(w, r, &req); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	ctx := r.Context()
	if noCache(r) {
		ctx = cache.WithBypass(ctx)
	}
	resp, err := s.deps.Assistant.Chat(ctx, req)
	if err != nil {
		s.fail(w, r, "chat failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearchMedication(w http.ResponseWriter, r *http.Request) {
	kwargs := map[string]any{}
	if apiErr := s.decodeBody(w, r, &kwargs); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	v, err := s.invoke(r, pricing.OpSearchPrice, kwargs)
	if err != nil {
		s.fail(w, r, "search medication failed", err)
		return
	}
	prices := []pricing.MedicationPrice{}
	if res, ok := v.(*pricing.PriceResult); ok && res.Prices != nil {
		prices = res.Prices
	}
	writeJSON(w, http.StatusOK, prices)
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	kwargs := map[string]any{}
	if apiErr := s.decodeBody(w, r, &kwargs); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	v, err := s.invoke(r, name, kwargs)
	if err != nil {
		s.fail(w, r, "tool call failed", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": pricing.Descriptors()})
}

// OperationStats is the per-operation section of /stats.
type OperationStats struct {
	Cache     cache.OpStats            `json:"cache"`
	Usage     usage.Stats              `json:"usage"`
	RateLimit *resilience.BucketStatus `json:"rate_limit,omitempty"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	WindowSeconds float64                   `json:"window_seconds"`
	Cache         *cache.Stats              `json:"cache,omitempty"`
	Operations    map[string]OperationStats `json:"operations"`
}

func (s *Server) statsWindow(r *http.Request) (time.Duration, *APIError) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return s.cfg.StatsWindow, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return 0, validationError("Validation error", map[string]string{"window": "must be a positive number of seconds"})
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (s *Server) operationStats(name string, window time.Duration) OperationStats {
	var st OperationStats
	if s.deps.CacheMiddleware != nil {
		st.Cache = s.deps.CacheMiddleware.Stats(name)
	}
	if s.deps.Tracker != nil {
		st.Usage = s.deps.Tracker.Stats(name, window)
	} else {
		st.Usage = usage.Stats{WindowSeconds: window.Seconds()}
	}
	if s.deps.Limiter != nil {
		bs := s.deps.Limiter.Status(name)
		st.RateLimit = &bs
	}
	return st
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	window, apiErr := s.statsWindow(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	resp := StatsResponse{
		WindowSeconds: window.Seconds(),
		Operations:    make(map[string]OperationStats),
	}
	if s.deps.Cache != nil {
		cs := s.deps.Cache.Stats()
		resp.Cache = &cs
	}
	for _, name := range s.deps.Registry.Names() {
		resp.Operations[name] = s.operationStats(name, window)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOperationStats(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, ok := s.deps.Registry.Lookup(name); !ok {
		writeError(w, &APIError{Status: http.StatusNotFound, Kind: KindTool, Message: "unknown operation: " + name})
		return
	}
	window, apiErr := s.statsWindow(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"operation":      name,
		"window_seconds": window.Seconds(),
		"stats":          s.operationStats(name, window),
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		writeError(w, &APIError{Status: http.StatusNotFound, Kind: KindTool, Message: "cache disabled"})
		return
	}
	n := s.deps.Cache.Len()
	if err := s.deps.Cache.Clear(r.Context()); err != nil {
		s.fail(w, r, "clear cache failed", err)
		return
	}
	s.logger.Info(r.Context(), "cache cleared", observe.F("entries", n))
	writeJSON(w, http.StatusOK, map[string]any{"cleared": n})
}

func (s *Server) handleMCPStatus(w http.ResponseWriter, _ *http.Request) {
	available := s.deps.MCP != nil
	body := map[string]any{
		"mcp_available": available,
		"tools":         pricing.Descriptors(),
	}
	if available {
		body["endpoint"] = "/mcp"
	}
	writeJSON(w, http.StatusOK, body)
}

func containsToken(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}
