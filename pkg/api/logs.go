package api

import (
	"context"
	"net/http"
	"strconv"

	"greenscore/pkg/storage"
)

const (
	defaultManualLogURL = "non fournie"
	defaultLatestLimit  = 10
	msgLogged           = "Appel loggé avec succès"
)

// manualLogHandler records a zero-cost entry without any outbound call.
func (api *API) manualLogHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	url := r.URL.Query().Get("url")
	if url == "" {
		url = defaultManualLogURL
	}
	ip := getClientIP(r)
	api.log.Debugf("[manualLogHandler][%s] logging API call from IP: %s", sID, ip)

	if _, err := api.rec.Log(context.WithoutCancel(r.Context()), url, ip, 0, 0, http.StatusOK); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		api.log.Errorf("[manualLogHandler][%s] failed to record call: %v", sID, err)
		return
	}

	writeText(w, http.StatusOK, msgLogged)
}

func (api *API) latestLogsHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultLatestLimit
	}
	if limit > storage.MaxLatestLimit {
		http.Error(w, "Limit parameter is too big", http.StatusBadRequest)
		api.log.Debugf("[latestLogsHandler][%s] request with too big limit parameter", sID)
		return
	}

	entries, err := api.db.LatestEntries(r.Context(), limit)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		api.log.Errorf("[latestLogsHandler][%s] LatestEntries() returned error: %v", sID, err)
		return
	}

	api.writeJSON(w, r, http.StatusOK, entries)
	api.log.Debugf("[latestLogsHandler][%s] response sent to: %v", sID, r.RemoteAddr)
}
