package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const defaultHelloURL = "defaultUrl"

type Greeting struct {
	Message      string `json:"message"`
	URL          string `json:"url"`
	ResponseTime int64  `json:"responseTime"`
	PayloadSize  int    `json:"payloadSize"`
}

func (api *API) helloHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	url := r.URL.Query().Get("url")
	if url == "" {
		url = defaultHelloURL
	}

	start := time.Now()
	greeting := Greeting{Message: "Hello, API Green Score!", URL: url}
	b, err := json.Marshal(greeting)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		api.log.Errorf("[helloHandler][%s] failed to encode greeting: %v", sID, err)
		return
	}
	greeting.ResponseTime = time.Since(start).Milliseconds()
	greeting.PayloadSize = len(b)

	if _, err := api.rec.Record(context.WithoutCancel(r.Context()), url, getClientIP(r), greeting.ResponseTime, greeting.PayloadSize); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		api.log.Errorf("[helloHandler][%s] failed to record call: %v", sID, err)
		return
	}

	api.writeJSON(w, r, http.StatusOK, greeting)
}
