// Package middleware provides the HTTP middleware of the catalog server:
// W3C extended format request logging through the application logger, and
// Prometheus request metrics labelled by mux route template.
package middleware
