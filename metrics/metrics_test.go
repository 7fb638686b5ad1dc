package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistry_HandlerExposesCounters(t *testing.T) {
	r := New()
	r.PacketsSent.Inc()
	r.FilesPublished.Add(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "blindftp_packets_sent_total 1") {
		t.Errorf("expected packets_sent_total in output, got:\n%s", body)
	}
	if !strings.Contains(body, "blindftp_files_published_total 3") {
		t.Errorf("expected files_published_total in output, got:\n%s", body)
	}
}

func TestRegistry_ReassemblyHooksWireCounters(t *testing.T) {
	r := New()
	onPublished, onIntegrityFailure, onSuperseded, onSkipped, _ := r.ReassemblyHooks()

	onPublished("a.txt", 100)
	onIntegrityFailure("b.txt")
	onSuperseded("c.txt")
	onSkipped("d.txt")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	body := rec.Body.String()

	for _, want := range []string{
		"blindftp_files_published_total 1",
		"blindftp_bytes_published_total 100",
		"blindftp_integrity_failures_total 1",
		"blindftp_files_superseded_total 1",
		"blindftp_files_skipped_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in output, got:\n%s", want, body)
		}
	}
}
