package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the HTTP handler that exposes this registry's metrics
// in the Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Serve starts a blocking HTTP server exposing Handler at /metrics.
func (r *Registry) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	return http.ListenAndServe(addr, mux)
}

// ReassemblyHooks wires an engine's outcomes into this registry, for use
// as reassembly.Hooks.
func (r *Registry) ReassemblyHooks() (onPublished func(name string, size uint64), onIntegrityFailure, onSuperseded, onSkipped func(name string), onPublishFailure func(name string, err error)) {
	onPublished = func(name string, size uint64) {
		r.FilesPublished.Inc()
		r.BytesPublished.Add(float64(size))
	}
	onIntegrityFailure = func(string) { r.IntegrityFailures.Inc() }
	onSuperseded = func(string) { r.FilesSuperseded.Inc() }
	onSkipped = func(string) { r.FilesSkipped.Inc() }
	onPublishFailure = func(string, error) { r.PublishFailures.Inc() }
	return
}
