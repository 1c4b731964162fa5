// Package server is the HTTP surface of docdex.
//
// It is deliberately thin: every handler parses the request, calls one
// component, and serializes the result. Domain errors map to status codes
// in one place so handlers never inspect error text.
package server
