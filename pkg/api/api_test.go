package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/sirupsen/logrus"

	"greenscore/pkg/calllog"
	"greenscore/pkg/models"
	"greenscore/pkg/probe"
	"greenscore/pkg/storage/memdb"
)

const (
	testRequestID = "9b4f6c5d-1a32-4d8f-b5a6-23c9e1f7d2a1"
	testRemoteIP  = "192.0.2.1"
	upstreamURL   = "http://upstream.test"
)

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.PanicLevel)
	exitCode := m.Run()
	os.Exit(exitCode)
}

func newTestAPI(t *testing.T) (*API, *memdb.Store) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db := memdb.New()
	rec := calllog.New(db, logger)
	return New("greenscore-test", db, rec, probe.New(2*time.Second), logger), db
}

func serve(api *API, target string) *httptest.ResponseRecorder {
	return serveContext(context.Background(), api, target)
}

func serveContext(ctx context.Context, api *API, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
	req.Header.Set("X-Request-Id", testRequestID)
	req.RemoteAddr = testRemoteIP + ":54321"
	rr := httptest.NewRecorder()
	api.Router().ServeHTTP(rr, req)
	return rr
}

func TestAPI_helloHandler(t *testing.T) {
	api, db := newTestAPI(t)

	rr := serve(api, "/api/hello?url=http://example.com")
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}

	var got Greeting
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if got.URL != "http://example.com" {
		t.Errorf("want url %q, got %q", "http://example.com", got.URL)
	}
	if got.PayloadSize <= 0 || got.ResponseTime < 0 {
		t.Errorf("want positive size and non-negative time, got %+v", got)
	}

	entries := db.Entries()
	if len(entries) != 1 {
		t.Fatalf("want 1 log entry, got %d", len(entries))
	}
	e := entries[0]
	if e.StatusCode != http.StatusOK || e.URL != "http://example.com" || e.CallerIP != testRemoteIP || e.PayloadSize != got.PayloadSize {
		t.Errorf("unexpected log entry %+v", e)
	}
}

func TestAPI_helloHandlerDefaultURL(t *testing.T) {
	api, db := newTestAPI(t)

	rr := serve(api, "/api/hello")
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}
	if entries := db.Entries(); len(entries) != 1 || entries[0].URL != defaultHelloURL {
		t.Errorf("want one entry for %q, got %+v", defaultHelloURL, entries)
	}
}

func TestAPI_probeInvalidScheme(t *testing.T) {
	paths := []string{"/api/url2test", "/api/json2test", "/api/xml2test", "/api/json2xml"}
	urls := []string{"", "ftp://example.com", "example.com", "file:///etc/passwd"}

	for _, path := range paths {
		for _, u := range urls {
			t.Run(path+" "+u, func(t *testing.T) {
				api, db := newTestAPI(t)

				rr := serve(api, path+"?url="+u)
				if rr.Code != http.StatusBadRequest {
					t.Errorf("want status code %v, got status code %v", http.StatusBadRequest, rr.Code)
				}
				if got := rr.Body.String(); got != msgInvalidScheme {
					t.Errorf("want body %q, got %q", msgInvalidScheme, got)
				}
				if n := len(db.Entries()); n != 0 {
					t.Errorf("want no log entry, got %d", n)
				}
			})
		}
	}
}

func TestAPI_urlTestHandler(t *testing.T) {
	defer gock.Off()

	body := `<html><body>hello</body></html>`
	gock.New(upstreamURL).
		Get("/page").
		Reply(http.StatusOK).
		SetHeader("Content-Type", "text/html").
		BodyString(body)

	api, db := newTestAPI(t)
	rr := serve(api, "/api/url2test?url="+upstreamURL+"/page")
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if !strings.HasPrefix(rr.Body.String(), "Appel réussi. Statut: 200 / Temps: ") {
		t.Errorf("unexpected body %q", rr.Body.String())
	}

	entries := db.Entries()
	if len(entries) != 1 {
		t.Fatalf("want 1 log entry, got %d", len(entries))
	}
	want := models.LogEntry{
		ID:           1,
		URL:          upstreamURL + "/page",
		Timestamp:    entries[0].Timestamp,
		PayloadSize:  len(body),
		ResponseTime: entries[0].ResponseTime,
		StatusCode:   http.StatusOK,
		CallerIP:     testRemoteIP,
	}
	if entries[0] != want {
		t.Errorf("want entry\n%+v\ngot entry\n%+v", want, entries[0])
	}
	if entries[0].ResponseTime < 0 {
		t.Errorf("want non-negative response time, got %d", entries[0].ResponseTime)
	}
}

func TestAPI_urlTestHandlerUnreachable(t *testing.T) {
	defer gock.Off()

	gock.New("http://unreachable.test").
		Get("/").
		ReplyError(errors.New("dial tcp: connection refused"))

	api, db := newTestAPI(t)
	rr := serve(api, "/api/url2test?url=http://unreachable.test/")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("want status code %v, got status code %v", http.StatusInternalServerError, rr.Code)
	}
	if !strings.HasPrefix(rr.Body.String(), msgCallFailed) || !strings.Contains(rr.Body.String(), "connection refused") {
		t.Errorf("unexpected body %q", rr.Body.String())
	}

	entries := db.Entries()
	if len(entries) != 1 {
		t.Fatalf("want exactly 1 log entry, got %d", len(entries))
	}
	if entries[0].StatusCode != http.StatusInternalServerError || entries[0].PayloadSize != 0 || entries[0].ResponseTime < 0 {
		t.Errorf("unexpected log entry %+v", entries[0])
	}
}

func TestAPI_urlTestHandlerUpstreamError(t *testing.T) {
	defer gock.Off()

	gock.New(upstreamURL).
		Get("/missing").
		Reply(http.StatusNotFound).
		BodyString("nope")

	api, db := newTestAPI(t)
	rr := serve(api, "/api/url2test?url="+upstreamURL+"/missing")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("want status code %v, got status code %v", http.StatusInternalServerError, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "404") {
		t.Errorf("want upstream status in body, got %q", rr.Body.String())
	}

	entries := db.Entries()
	if len(entries) != 1 || entries[0].StatusCode != http.StatusInternalServerError || entries[0].PayloadSize != 0 {
		t.Errorf("unexpected log entries %+v", entries)
	}
}

func TestAPI_contentTypeTestHandler(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		contentType string
		wantCode    int
		wantBody    string
	}{
		{
			name:        "json ok",
			path:        "/api/json2test",
			contentType: "application/json;charset=UTF-8",
			wantCode:    http.StatusOK,
			wantBody:    "Appel réussi. Statut: 200",
		},
		{
			name:        "json got text xml",
			path:        "/api/json2test",
			contentType: "text/xml",
			wantCode:    http.StatusBadRequest,
			wantBody:    "Type de contenu inattendu. Attendu: application/json / Reçu: text/xml",
		},
		{
			name:        "xml ok",
			path:        "/api/xml2test",
			contentType: "application/xml",
			wantCode:    http.StatusOK,
			wantBody:    "Appel réussi. Statut: 200",
		},
		{
			name:        "xml got json",
			path:        "/api/xml2test",
			contentType: "application/json",
			wantCode:    http.StatusBadRequest,
			wantBody:    "Type de contenu inattendu. Attendu: application/xml / Reçu: application/json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer gock.Off()

			gock.New(upstreamURL).
				Get("/doc").
				Reply(http.StatusOK).
				SetHeader("Content-Type", tt.contentType).
				BodyString("<a>b</a>")

			api, db := newTestAPI(t)
			rr := serve(api, tt.path+"?url="+upstreamURL+"/doc")
			if rr.Code != tt.wantCode {
				t.Fatalf("want status code %v, got status code %v", tt.wantCode, rr.Code)
			}
			if !strings.HasPrefix(rr.Body.String(), tt.wantBody) {
				t.Errorf("want body starting with %q, got %q", tt.wantBody, rr.Body.String())
			}

			// The call is recorded with the real status even when the type check fails.
			entries := db.Entries()
			if len(entries) != 1 || entries[0].StatusCode != http.StatusOK || entries[0].PayloadSize != len("<a>b</a>") {
				t.Errorf("unexpected log entries %+v", entries)
			}
		})
	}
}

func TestAPI_jsonToXMLHandler(t *testing.T) {
	defer gock.Off()

	gock.New(upstreamURL).
		Get("/data.json").
		Reply(http.StatusOK).
		JSON(map[string]string{"a": "b"})

	api, db := newTestAPI(t)
	rr := serve(api, "/api/json2xml?url="+upstreamURL+"/data.json")
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("want content type application/xml, got %q", ct)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<root>") || !strings.Contains(body, "<a>b</a>") {
		t.Errorf("unexpected XML body\n%s", body)
	}
	if n := len(db.Entries()); n != 1 {
		t.Errorf("want 1 log entry, got %d", n)
	}
}

func TestAPI_jsonToXMLHandlerInvalidJSON(t *testing.T) {
	defer gock.Off()

	gock.New(upstreamURL).
		Get("/broken").
		Reply(http.StatusOK).
		SetHeader("Content-Type", "application/json").
		BodyString(`{"a":`)

	api, db := newTestAPI(t)
	rr := serve(api, "/api/json2xml?url="+upstreamURL+"/broken")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("want status code %v, got status code %v", http.StatusInternalServerError, rr.Code)
	}
	if !strings.HasPrefix(rr.Body.String(), msgConversionError) {
		t.Errorf("unexpected body %q", rr.Body.String())
	}

	// Logged once, before the conversion attempt, with the upstream status.
	entries := db.Entries()
	if len(entries) != 1 || entries[0].StatusCode != http.StatusOK {
		t.Errorf("unexpected log entries %+v", entries)
	}
}

func TestAPI_jsonToXMLHandlerInvalidElementName(t *testing.T) {
	defer gock.Off()

	gock.New(upstreamURL).
		Get("/keys").
		Reply(http.StatusOK).
		SetHeader("Content-Type", "application/json").
		BodyString(`{"a b":"c"}`)

	api, db := newTestAPI(t)
	rr := serve(api, "/api/json2xml?url="+upstreamURL+"/keys")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("want status code %v, got status code %v", http.StatusInternalServerError, rr.Code)
	}
	if !strings.HasPrefix(rr.Body.String(), msgConversionError) {
		t.Errorf("unexpected body %q", rr.Body.String())
	}
	if n := len(db.Entries()); n != 1 {
		t.Errorf("want 1 log entry, got %d", n)
	}
}

// ctxStore fails writes on a done context, like the database-backed stores.
type ctxStore struct {
	*memdb.Store
}

func (s ctxStore) AddEntry(ctx context.Context, entry models.LogEntry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.Store.AddEntry(ctx, entry)
}

func TestAPI_cancelledRequestIsStillLogged(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantCode   int
		wantStatus int
		wantPrefix string
	}{
		{
			name:       "failed outbound call",
			target:     "/api/url2test?url=http://unreachable.test/",
			wantCode:   http.StatusInternalServerError,
			wantStatus: http.StatusInternalServerError,
			wantPrefix: msgCallFailed,
		},
		{name: "greeting", target: "/api/hello", wantCode: http.StatusOK, wantStatus: http.StatusOK},
		{name: "manual log", target: "/logs", wantCode: http.StatusOK, wantStatus: http.StatusOK, wantPrefix: msgLogged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer gock.Off()

			gock.New("http://unreachable.test").
				Get("/").
				ReplyError(errors.New("dial tcp: connection refused"))

			logger := logrus.New()
			logger.SetOutput(io.Discard)
			db := ctxStore{memdb.New()}
			api := New("greenscore-test", db, calllog.New(db, logger), probe.New(2*time.Second), logger)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			rr := serveContext(ctx, api, tt.target)
			if rr.Code != tt.wantCode {
				t.Fatalf("want status code %v, got status code %v (body %q)", tt.wantCode, rr.Code, rr.Body.String())
			}
			if !strings.HasPrefix(rr.Body.String(), tt.wantPrefix) {
				t.Errorf("want body prefix %q, got %q", tt.wantPrefix, rr.Body.String())
			}

			entries := db.Entries()
			if len(entries) != 1 {
				t.Fatalf("want exactly 1 log entry, got %d", len(entries))
			}
			if entries[0].StatusCode != tt.wantStatus {
				t.Errorf("want logged status %d, got %d", tt.wantStatus, entries[0].StatusCode)
			}
			if tt.wantStatus == http.StatusInternalServerError && entries[0].PayloadSize != 0 {
				t.Errorf("want payload size 0 for failed call, got %d", entries[0].PayloadSize)
			}
		})
	}
}

func TestAPI_manualLogHandler(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		wantURL string
	}{
		{name: "with url", target: "/logs?url=http://example.com/x", wantURL: "http://example.com/x"},
		{name: "default url", target: "/logs", wantURL: defaultManualLogURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, db := newTestAPI(t)

			rr := serve(api, tt.target)
			if rr.Code != http.StatusOK {
				t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
			}
			if rr.Body.String() != msgLogged {
				t.Errorf("want body %q, got %q", msgLogged, rr.Body.String())
			}

			entries := db.Entries()
			if len(entries) != 1 {
				t.Fatalf("want exactly 1 log entry, got %d", len(entries))
			}
			want := models.LogEntry{ID: 1, URL: tt.wantURL, Timestamp: entries[0].Timestamp, StatusCode: http.StatusOK, CallerIP: testRemoteIP}
			if entries[0] != want {
				t.Errorf("want entry\n%+v\ngot entry\n%+v", want, entries[0])
			}
		})
	}
}

func TestAPI_latestLogsHandler(t *testing.T) {
	api, db := newTestAPI(t)
	for i := 0; i < 3; i++ {
		if _, err := db.AddEntry(context.Background(), models.LogEntry{URL: "http://example.com", StatusCode: 200}); err != nil {
			t.Fatal(err)
		}
	}

	rr := serve(api, "/logs/latest?limit=2")
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}

	var got []models.LogEntry
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 2 {
		t.Errorf("want entries 3 and 2, got %+v", got)
	}

	rr = serve(api, "/logs/latest?limit=101")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("want status code %v, got status code %v", http.StatusBadRequest, rr.Code)
	}

	if n := len(db.Entries()); n != 3 {
		t.Errorf("reading entries must not record calls, got %d entries", n)
	}
}

func TestAPI_healthHandler(t *testing.T) {
	api, _ := newTestAPI(t)

	rr := serve(api, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %q", rr.Body.String())
	}
}

func TestAPI_methodNotAllowed(t *testing.T) {
	api, db := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/logs", nil)
	rr := httptest.NewRecorder()
	api.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("want status code %v, got status code %v", http.StatusMethodNotAllowed, rr.Code)
	}
	if n := len(db.Entries()); n != 0 {
		t.Errorf("want no log entry, got %d", n)
	}
}

func Test_getClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{name: "remote addr with port", remoteAddr: "10.1.2.3:4567", want: "10.1.2.3"},
		{name: "ipv6 remote addr", remoteAddr: "[::1]:4567", want: "::1"},
		{name: "remote addr without port", remoteAddr: "10.1.2.3", want: "10.1.2.3"},
		{name: "forwarded chain", remoteAddr: "10.1.2.3:4567", forwarded: "203.0.113.7, 10.0.0.1", want: "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
