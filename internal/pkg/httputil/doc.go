// Package httputil carries the JSON request/response helpers shared by
// the import API handlers: one error envelope, size-capped body
// decoding, and status helpers for the optional subsystems.
package httputil
