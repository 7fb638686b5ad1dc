package main

import (
	"github.com/blindftp/blindftp/metrics"
	"github.com/blindftp/blindftp/reassembly"
	"github.com/blindftp/blindftp/reftree"
	"github.com/blindftp/blindftp/sender"
)

// SyncMetricsHooks adapts a metrics.Registry into sender.SyncHooks.
func SyncMetricsHooks(reg *metrics.Registry) sender.SyncHooks {
	return sender.SyncHooks{
		OnFileSent: func(path string, nbSend int) {
			reg.PacketsSent.Inc()
		},
		OnFileDeleted: func(path string) {},
		OnPassStart: func(diff reftree.Diff) {
			reg.FilesInSync.Set(float64(len(diff.Same) + len(diff.Different)))
		},
		OnPassEnd: func() {
			reg.RedundancyPasses.Inc()
		},
	}
}

// receiverHooksFor adapts the metrics callbacks returned by
// metrics.Registry.ReassemblyHooks into a reassembly.Hooks value.
func receiverHooksFor(onPublished func(name string, size uint64), onIntegrityFailure, onSuperseded, onSkipped func(name string), onPublishFailure func(name string, err error)) reassembly.Hooks {
	return reassembly.Hooks{
		OnPublished:        onPublished,
		OnIntegrityFailure: onIntegrityFailure,
		OnSuperseded:       onSuperseded,
		OnSkippedExisting:  onSkipped,
		OnPublishFailure:   onPublishFailure,
	}
}
