package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"greenscore/pkg/calllog"
	"greenscore/pkg/probe"
	"greenscore/pkg/storage"
)

type API struct {
	ServiceName string

	r     *mux.Router
	db    storage.Storage
	rec   *calllog.Recorder
	probe *probe.Client
	log   logrus.FieldLogger
}

func New(name string, db storage.Storage, rec *calllog.Recorder, client *probe.Client, logger logrus.FieldLogger) *API {
	api := API{
		ServiceName: name,
		r:           mux.NewRouter(),
		db:          db,
		rec:         rec,
		probe:       client,
		log:         logger,
	}
	api.endpoints()

	return &api
}

func (api *API) Router() *mux.Router {
	return api.r
}

func (api *API) endpoints() {
	api.r.Use(api.requestIDMiddleware)
	api.r.Use(api.headerMiddleware)
	api.r.Use(api.accessLogMiddleware)

	api.r.HandleFunc("/addresses/address", api.addressesHandler).Methods(http.MethodGet)

	api.r.HandleFunc("/api/hello", api.helloHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/api/url2test", api.urlTestHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/api/json2test", api.contentTypeTestHandler(probe.MIMEJSON)).Methods(http.MethodGet)
	api.r.HandleFunc("/api/xml2test", api.contentTypeTestHandler(probe.MIMEXML)).Methods(http.MethodGet)
	api.r.HandleFunc("/api/json2xml", api.jsonToXMLHandler).Methods(http.MethodGet)

	api.r.HandleFunc("/logs", api.manualLogHandler).Methods(http.MethodGet)
	api.r.HandleFunc("/logs/latest", api.latestLogsHandler).Methods(http.MethodGet)

	api.r.HandleFunc("/health", api.healthHandler).Methods(http.MethodGet)
}

func (api *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	if err := api.db.Ping(r.Context()); err != nil {
		api.log.Errorf("[healthHandler][%s] storage ping failed: %v", sID, err)
		api.writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	api.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (api *API) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.log.Errorf("[writeJSON][%s] failed to encode response data: %v", shorten(GetRequestID(r.Context())), err)
	}
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(msg))
}

// GetRequestID extracts the request ID from the context.
// It returns the request ID as a string if present, otherwise returns an empty string.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// getClientIP prefers the first X-Forwarded-For hop and falls back to the host part of RemoteAddr.
func getClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// shorten truncates a string to 6 characters if it is longer than 6, appends '...' at the end,
// otherwise it returns the string unchanged.
func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
