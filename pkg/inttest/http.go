package inttest

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/openflighthpc/cluster-builder/internal/handler"
	"github.com/openflighthpc/cluster-builder/internal/server"
)

// SetupHTTPServer serves the routes registered by f on the engine the service runs with. The
// returned client sends requests to it. The server is closed when the test ends.
func SetupHTTPServer(t *testing.T, f func(engine *gin.Engine)) *HTTPClient {
	t.Helper()

	require.NoError(t, handler.RegisterValidation(), "failed to register validation")
	gin.SetMode(gin.TestMode)

	engine := server.GetEngine(slog.New(slog.DiscardHandler), nil)
	f(engine)

	srv := httptest.NewServer(engine.Handler())
	client := srv.Client()
	t.Cleanup(func() {
		client.CloseIdleConnections()
		srv.Close()
	})

	return &HTTPClient{Client: client, ServerURL: srv.URL}
}

// HTTPClient sends requests to a server started by SetupHTTPServer and fails the test on any
// unexpected response.
type HTTPClient struct {
	Client    *http.Client
	ServerURL string
}

// Header modifies the headers of a request.
type Header func(http.Header)

func WithHeader(key string, value string) Header {
	return func(header http.Header) {
		header.Add(key, value)
	}
}

// WithAuthToken authorizes the request with the given bearer token.
func WithAuthToken(token string) Header {
	return WithHeader("Authorization", "Bearer "+token)
}

// Do sends a request and returns the response body. The test fails unless the response has the
// expected status.
func (hc *HTTPClient) Do(t *testing.T, method, path string, requestBody io.Reader, expectedStatus int, headers ...Header) []byte {
	t.Helper()
	_, body := hc.DoWithHeader(t, method, path, requestBody, expectedStatus, headers...)
	return body
}

// DoWithHeader works like Do but also returns the response headers.
func (hc *HTTPClient) DoWithHeader(t *testing.T, method, path string, requestBody io.Reader, expectedStatus int, headers ...Header) (http.Header, []byte) {
	t.Helper()
	msg := fmt.Sprintf("%s %q", method, path)

	req, err := http.NewRequest(method, hc.ServerURL+path, requestBody)
	require.NoError(t, err, msg+": failed to create request")
	for _, header := range headers {
		header(req.Header)
	}

	res, err := hc.Client.Do(req)
	require.NoError(t, err, msg+": request failed")
	defer func() {
		require.NoError(t, res.Body.Close(), msg+": failed to close response body")
	}()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err, msg+": failed to read response body")
	require.Equal(t, expectedStatus, res.StatusCode, msg+": unexpected status, body: "+string(body))
	return res.Header, body
}

// GetJSON expects a 200 response to a GET of path and decodes its body into responseBody.
func (hc *HTTPClient) GetJSON(t *testing.T, path string, responseBody any, headers ...Header) {
	t.Helper()
	body := hc.Do(t, http.MethodGet, path, nil, http.StatusOK, headers...)
	require.NoError(t, json.Unmarshal(body, responseBody), "GET %q: failed to decode response body", path)
}

// PostJSON posts the JSON requestBody to path, expects a 201 response and decodes its body into
// responseBody.
func (hc *HTTPClient) PostJSON(t *testing.T, path string, requestBody io.Reader, responseBody any, headers ...Header) {
	t.Helper()
	headers = append(headers, WithHeader("Content-Type", "application/json"))
	body := hc.Do(t, http.MethodPost, path, requestBody, http.StatusCreated, headers...)
	require.NoError(t, json.Unmarshal(body, responseBody), "POST %q: failed to decode response body", path)
}
