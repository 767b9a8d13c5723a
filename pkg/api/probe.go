package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"greenscore/pkg/probe"
)

const (
	msgInvalidScheme   = "L'URL doit commencer par http:// ou https://"
	msgCallFailed      = "Erreur lors de l'appel de l'URL : "
	msgCallSucceeded   = "Appel réussi. Statut: %d / Temps: %d ms"
	msgWrongType       = "Type de contenu inattendu. Attendu: %s / Reçu: %s"
	msgConversionError = "Erreur lors de la conversion JSON vers XML : "
)

// fetchAndLog validates the url parameter, calls it and records exactly one entry for the call.
// When ok is false the response has already been written.
func (api *API) fetchAndLog(w http.ResponseWriter, r *http.Request, handler string) (res probe.Result, ok bool) {
	sID := shorten(GetRequestID(r.Context()))
	url := r.URL.Query().Get("url")
	ip := getClientIP(r)

	if err := probe.ValidateURL(url); err != nil {
		writeText(w, http.StatusBadRequest, msgInvalidScheme)
		api.log.Debugf("[%s][%s] rejected url %q: %v", handler, sID, url, err)
		return probe.Result{}, false
	}

	// The entry outlives the caller: it is written even if the request was cancelled mid-call.
	logCtx := context.WithoutCancel(r.Context())

	res, err := api.probe.Fetch(r.Context(), url)
	if err != nil {
		api.log.Warnf("[%s][%s] call to %s failed: %v", handler, sID, url, err)
		if _, logErr := api.rec.Log(logCtx, url, ip, res.Elapsed.Milliseconds(), 0, http.StatusInternalServerError); logErr != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			api.log.Errorf("[%s][%s] failed to record call: %v", handler, sID, logErr)
			return probe.Result{}, false
		}
		writeText(w, http.StatusInternalServerError, msgCallFailed+err.Error())
		return probe.Result{}, false
	}

	if _, err := api.rec.Log(logCtx, url, ip, res.Elapsed.Milliseconds(), res.PayloadSize(), res.StatusCode); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		api.log.Errorf("[%s][%s] failed to record call: %v", handler, sID, err)
		return probe.Result{}, false
	}

	return res, true
}

func (api *API) urlTestHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := api.fetchAndLog(w, r, "urlTestHandler")
	if !ok {
		return
	}

	writeText(w, http.StatusOK, fmt.Sprintf(msgCallSucceeded, res.StatusCode, res.Elapsed.Milliseconds()))
}

// contentTypeTestHandler behaves like urlTestHandler but also requires the target's
// content type to contain expected. The call is recorded before the check.
func (api *API) contentTypeTestHandler(expected string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := api.fetchAndLog(w, r, "contentTypeTestHandler")
		if !ok {
			return
		}

		var ctErr *probe.ContentTypeError
		if err := res.CheckContentType(expected); errors.As(err, &ctErr) {
			writeText(w, http.StatusBadRequest, fmt.Sprintf(msgWrongType, ctErr.Expected, ctErr.Received))
			api.log.Debugf("[contentTypeTestHandler][%s] %v", shorten(GetRequestID(r.Context())), err)
			return
		}

		writeText(w, http.StatusOK, fmt.Sprintf(msgCallSucceeded, res.StatusCode, res.Elapsed.Milliseconds()))
	}
}

func (api *API) jsonToXMLHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := api.fetchAndLog(w, r, "jsonToXMLHandler")
	if !ok {
		return
	}

	b, err := probe.JSONToXML(res.Body)
	if err != nil {
		writeText(w, http.StatusInternalServerError, msgConversionError+err.Error())
		api.log.Warnf("[jsonToXMLHandler][%s] conversion failed: %v", shorten(GetRequestID(r.Context())), err)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
