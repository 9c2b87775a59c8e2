// Package inttest enables writing of integration tests. SetupHTTPServer starts the Gin engine of
// the service with the routes under test on an httptest server and returns a client ready to talk
// to it. Resources are cleaned up after the tests are finished.
package inttest
