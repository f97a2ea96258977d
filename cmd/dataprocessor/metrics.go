package main

import (
	"log"

	"dataprocessor/internal/config"
	"dataprocessor/internal/metrics"
	"dataprocessor/internal/metrics/datadog"
	"dataprocessor/internal/metrics/prompush"
)

// setupMetrics installs the configured backend and returns its flush
// function. The returned function is never nil.
func setupMetrics(m config.Metrics, verbose bool) func() {
	noop := func() {}

	switch m.Backend {
	case "pushgateway":
		b, err := prompush.NewBackend(m.Job, m.PushgatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return noop
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", m.PushgatewayURL, m.Backend, m.Job)
		metrics.SetBackend(b)
		return flushMetrics

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  "dataprocessor.",
			GlobalTags: []string{"job:" + m.Job},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return noop
		}
		log.Printf("metrics: addr=%v, backend=%v", m.DatadogAddr, m.Backend)
		metrics.SetBackend(b)
		return func() {
			flushMetrics()
			if err := b.Close(); err != nil {
				log.Printf("metrics: close error: %v", err)
			}
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", m.Backend)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", m.Backend)
	}
	return noop
}

func flushMetrics() {
	if err := metrics.Flush(); err != nil {
		log.Printf("metrics: flush error: %v", err)
	}
}
