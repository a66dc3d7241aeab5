package testing

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Basic-auth credentials accepted by ServeExport.
const (
	ExportUsername = "kobo"
	ExportPassword = "secret"
)

// ExportServer is a stand-in for the form export endpoint.
type ExportServer struct {
	*httptest.Server

	mu     sync.Mutex
	status int
	body   string
	hits   int
}

// ServeExport starts a server answering every authenticated GET with status
// and body; wrong credentials get 401. It is closed with t.Cleanup.
func ServeExport(t *testing.T, status int, body string) *ExportServer {
	t.Helper()

	es := &ExportServer{status: status, body: body}
	es.Server = httptest.NewServer(http.HandlerFunc(es.serve))
	t.Cleanup(es.Close)

	return es
}

func (es *ExportServer) serve(w http.ResponseWriter, r *http.Request) {
	es.mu.Lock()
	es.hits++
	status, body := es.status, es.body
	es.mu.Unlock()

	user, pass, ok := r.BasicAuth()
	if !ok || user != ExportUsername || pass != ExportPassword {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// SetResponse changes what later requests receive.
func (es *ExportServer) SetResponse(status int, body string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.status, es.body = status, body
}

// Hits returns the number of requests served so far.
func (es *ExportServer) Hits() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.hits
}

// ExportURL returns a URL shaped like a form export link.
func (es *ExportServer) ExportURL() string {
	return es.Server.URL + "/api/v2/assets/a1b2c3/export-settings/es1/data.csv"
}
