package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/releaseboard/internal/upstream"
)

// Chat turns may carry images as data URLs.
const maxBodyBytes = 10 << 20

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

type errorResponse struct {
	Error string `json:"error"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteError writes a JSON error body.
func WriteError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if err := WriteJSON(w, status, errorResponse{Error: message}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("Failed to write error response")
	}
}

// WriteHandlerError maps err onto a response. HandlerError and FieldError carry
// their own status, upstream failures become 429 or 502, anything else is a 500.
func WriteHandlerError(w http.ResponseWriter, r *http.Request, err error) {
	var handlerErr HandlerError
	if errors.As(err, &handlerErr) {
		WriteError(w, r, handlerErr.Status, handlerErr.Message)
		return
	}
	var fieldErr FieldError
	if errors.As(err, &fieldErr) {
		WriteError(w, r, http.StatusBadRequest, fieldErr.Error())
		return
	}
	var upstreamErr *upstream.Error
	if errors.As(err, &upstreamErr) {
		WriteUpstreamError(w, r, upstreamErr)
		return
	}
	log.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
	WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
}

// WriteUpstreamError reports a failed third-party call. Rate limiting is kept
// distinct so clients can back off.
func WriteUpstreamError(w http.ResponseWriter, r *http.Request, err *upstream.Error) {
	logger := log.Ctx(r.Context())
	if err.RateLimited {
		logger.Warn().Err(err).Str("service", err.Service).Dur("retry_after", err.RetryAfter).Msg("Upstream rate limited")
		SetRetryAfter(w, err.RetryAfter)
		WriteError(w, r, http.StatusTooManyRequests, upstream.UserMessage(err))
		return
	}
	logger.Error().Err(err).Str("service", err.Service).Msg("Upstream request failed")
	WriteError(w, r, http.StatusBadGateway, upstream.UserMessage(err))
}

// SetRetryAfter sets the Retry-After header in whole seconds, rounding up.
func SetRetryAfter(w http.ResponseWriter, d time.Duration) {
	if d <= 0 {
		return
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
}
