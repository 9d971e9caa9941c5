package remote

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// logStatusFailure logs a non-2xx response with severity derived from the status code.
func logStatusFailure(req Request, host string, statusCode int, duration time.Duration, requestBody, responseBody []byte) {
	entry := log.WithFields(log.Fields{
		"caller":      req.Caller,
		"method":      req.Method,
		"path":        host + string(req.Path),
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
		"body":        summarizePayload(requestBody),
		"error":       summarizePayload(responseBody),
	})
	message := "API Error: `" + req.Caller + "` " + req.Method + " " + host + string(req.Path)

	switch {
	case statusCode == http.StatusUnauthorized:
		entry.Warn(message + ": unauthorized, credentials may be invalid or expired")
	case statusCode == http.StatusForbidden:
		entry.Warn(message + ": forbidden")
	case statusCode == http.StatusTooManyRequests:
		entry.Warn(message + ": rate limited")
	case statusCode >= 500:
		entry.Error(message + ": server error")
	default:
		entry.Error(message)
	}
}

// logTransportFailure logs a request that never produced a response.
func logTransportFailure(req Request, host string, duration time.Duration, err error) {
	log.WithError(err).WithFields(log.Fields{
		"caller":      req.Caller,
		"method":      req.Method,
		"path":        host + string(req.Path),
		"duration_ms": duration.Milliseconds(),
	}).Error("API Error: `" + req.Caller + "` " + req.Method + " " + host + string(req.Path) + " - network error")
}
