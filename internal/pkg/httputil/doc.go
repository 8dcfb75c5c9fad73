// Package httputil holds small helpers shared by all HTTP handlers:
// JSON response envelopes and request decoding.
package httputil
