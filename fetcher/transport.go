package fetcher

import (
	"net/http"
	"time"

	"github.com/pitabwire/util"
)

// loggingTransport logs resource requests and their outcome.
type loggingTransport struct {
	transport http.RoundTripper
}

func newLoggingTransport(transport http.RoundTripper) http.RoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &loggingTransport{transport: transport}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := util.Log(req.Context()).WithFields(map[string]any{
		"method": req.Method,
		"url":    req.URL.String(),
	})
	log.Debug("resource request sent")

	resp, err := t.transport.RoundTrip(req)

	log = log.WithField("duration", time.Since(start).String())
	if err != nil {
		log.WithError(err).Warn("resource request failed")
		return resp, err
	}

	log.WithField("status", resp.StatusCode).Debug("resource response received")
	return resp, nil
}
