// Package httputil provides shared HTTP utilities for consistent response handling.
package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/getmockd/mocknet/pkg/mock"
)

// WriteJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a JSON error response with the given status code.
// The error response includes an error code and a human-readable message.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	WriteJSON(w, status, map[string]string{
		"error":   errCode,
		"message": message,
	})
}

// WriteErrorWithDetails writes a JSON error response with additional details.
func WriteErrorWithDetails(w http.ResponseWriter, status int, errCode, message string, details any) {
	WriteJSON(w, status, map[string]any{
		"error":   errCode,
		"message": message,
		"details": details,
	})
}

// WriteBadGateway writes a 502 Bad Gateway error response.
func WriteBadGateway(w http.ResponseWriter, errCode, message string) {
	WriteError(w, http.StatusBadGateway, errCode, message)
}

// WriteMockResponse renders a mock response. Repeated header names are
// sent as separate header lines in declaration order. Flat bodies carry a
// Content-Length; chunked bodies are written and flushed one piece at a
// time so each piece becomes one chunk on the wire.
func WriteMockResponse(w http.ResponseWriter, resp *mock.Response) {
	h := w.Header()
	for _, f := range resp.Header.Fields() {
		h.Add(f.Name, f.Value)
	}

	switch body := resp.Body.(type) {
	case mock.ChunkedBody:
		h.Del("Content-Length")
		w.WriteHeader(resp.Status)
		flusher, _ := w.(http.Flusher)
		if flusher != nil {
			flusher.Flush()
		}
		for _, piece := range body.Chunks {
			if _, err := w.Write(piece); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	default:
		data := resp.BodyBytes()
		h.Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(resp.Status)
		if len(data) > 0 {
			_, _ = w.Write(data)
		}
	}
}
