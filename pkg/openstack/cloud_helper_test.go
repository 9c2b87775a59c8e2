package openstack

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeCloud serves keystone and the catalog of services registered via handle.
type fakeCloud struct {
	t        *testing.T
	server   *httptest.Server
	mux      *http.ServeMux
	services map[string]string
}

func newFakeCloud(t *testing.T) *fakeCloud {
	t.Helper()

	f := &fakeCloud{t: t, mux: http.NewServeMux(), services: map[string]string{}}
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)

	f.mux.HandleFunc("POST /identity/v3/auth/tokens", f.token)
	return f
}

// service registers a service of the given type in the catalog. Its endpoint is served below
// path.
func (f *fakeCloud) service(serviceType, path string) {
	f.services[serviceType] = f.server.URL + path
}

func (f *fakeCloud) handle(pattern string, status int, body string) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

// record serves body and hands the decoded request body to the returned channel.
func (f *fakeCloud) record(pattern string, status int, body string) <-chan map[string]any {
	requests := make(chan map[string]any, 1)
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		var request map[string]any
		_ = json.NewDecoder(r.Body).Decode(&request)
		requests <- request

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
	return requests
}

func (f *fakeCloud) token(w http.ResponseWriter, _ *http.Request) {
	type endpoint struct {
		ID        string `json:"id"`
		Interface string `json:"interface"`
		Region    string `json:"region"`
		RegionID  string `json:"region_id"`
		URL       string `json:"url"`
	}
	type entry struct {
		ID        string     `json:"id"`
		Type      string     `json:"type"`
		Name      string     `json:"name"`
		Endpoints []endpoint `json:"endpoints"`
	}

	catalog := []entry{}
	for serviceType, url := range f.services {
		catalog = append(catalog, entry{
			ID:   serviceType,
			Type: serviceType,
			Name: serviceType,
			Endpoints: []endpoint{
				{ID: serviceType, Interface: "public", Region: "RegionOne", RegionID: "RegionOne", URL: url},
			},
		})
	}

	body := map[string]any{
		"token": map[string]any{
			"expires_at": time.Now().Add(time.Hour).UTC().Format("2006-01-02T15:04:05.000000Z"),
			"methods":    []string{"password"},
			"catalog":    catalog,
			"project":    map[string]any{"id": "project", "name": "project"},
			"user":       map[string]any{"id": "user", "name": "user"},
		},
	}

	w.Header().Set("X-Subject-Token", "token")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeCloud) credentials() Credentials {
	return Credentials{
		AuthURL:   f.server.URL + "/identity/v3",
		UserID:    "user",
		Password:  "secret",
		ProjectID: "project",
	}
}

func (f *fakeCloud) connect() *Cloud {
	f.t.Helper()

	cloud, err := testConnector().Connect(f.t.Context(), f.credentials())
	require.NoError(f.t, err)
	return cloud
}

func testConnector() *Connector {
	connector := NewConnector(slog.New(slog.DiscardHandler))
	connector.connectTimeout = 100 * time.Millisecond
	connector.connectPause = 10 * time.Millisecond
	return connector
}
