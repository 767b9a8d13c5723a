package api

import (
	"net/http"
	"strconv"

	"greenscore/pkg/addresses"
)

const defaultAddressLimit = "2"

func (api *API) addressesHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))
	q := r.URL.Query()

	limitStr := q.Get("limitStr")
	if limitStr == "" {
		limitStr = q.Get("limit")
	}
	if limitStr == "" {
		limitStr = defaultAddressLimit
	}

	found := addresses.Filter(addresses.Query{
		Street: q.Get("street"),
		City:   q.Get("city"),
		Fields: q.Get("fields"),
		Limit:  parseLimit(limitStr),
	})

	api.writeJSON(w, r, http.StatusOK, found)
	api.log.Debugf("[addressesHandler][%s] %d addresses sent to: %v", sID, len(found), r.RemoteAddr)
}

// parseLimit converts s to an int, mapping anything unparsable or negative to 0.
func parseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
