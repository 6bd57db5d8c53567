// Package httpx concentra los helpers de respuesta JSON compartidos entre
// handlers y middlewares, con el envelope de error estilo OAuth
// ("error", "error_description").
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"
)

// ErrBodyTooLarge lo retorna DecodeJSON cuando el body supera el límite.
var ErrBodyTooLarge = errors.New("request body too large")

// maxBodySize limita los bodies JSON que aceptamos.
const maxBodySize = 64 * 1024 // 64KB

// WriteJSON serializa v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError emite el envelope de error estándar.
func WriteError(w http.ResponseWriter, code, desc string, status int) {
	WriteJSON(w, status, map[string]any{
		"error": code, "error_description": desc,
	})
}

// WriteThrottled emite 429 con Retry-After y el tiempo de espera en el body,
// redondeado hacia arriba para que el cliente nunca reintente antes de tiempo.
func WriteThrottled(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	WriteJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":                "rate_limited",
		"error_description":    "Too many requests",
		"available_in_seconds": secs,
	})
}

// DecodeJSON decodea el body en dst con límite de tamaño y campos estrictos.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrBodyTooLarge
		}
		return err
	}
	// rechazar basura después del objeto
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("unexpected trailing data")
	}
	return nil
}
