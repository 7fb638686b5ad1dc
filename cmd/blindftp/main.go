// Command blindftp runs one side of a one-way bulk file transfer over a
// data diode: send a single file, continuously synchronize a directory,
// or receive and reassemble incoming datagrams.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/blindftp/blindftp/asprocess"
	"github.com/blindftp/blindftp/config"
	"github.com/blindftp/blindftp/heartbeat"
	"github.com/blindftp/blindftp/logger"
	"github.com/blindftp/blindftp/metrics"
	"github.com/blindftp/blindftp/receiver"
	"github.com/blindftp/blindftp/sender"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	lctx := logger.NewSessionContext()
	logger.SetDebug(cfg.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	asprocess.Watch(lctx, asprocess.CheckParentInterval, asprocess.Cleanup(cancel))
	installSignalCancel(cancel)

	reg := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := reg.Serve(cfg.MetricsAddr); err != nil {
				logger.E(lctx, "metrics server exited, err is", err)
			}
		}()
	}

	switch cfg.Mode {
	case config.ModeSendFile:
		err = runSendFile(ctx, lctx, cfg)
	case config.ModeSync, config.ModeStrictSync:
		err = runSync(ctx, lctx, cfg, reg)
	case config.ModeReceive:
		err = runReceive(ctx, lctx, cfg, reg)
	}
	if err != nil {
		logger.E(lctx, "run failed, err is", err)
		os.Exit(1)
	}
}

func parseFlags() (config.Config, error) {
	var (
		sendFile   = flag.String("e", "", "send a single file and exit")
		syncDir    = flag.String("s", "", "continuously synchronize this directory")
		strictSync = flag.String("S", "", "like -s, but also propagate deletions to the receiver")
		receive    = flag.Bool("r", false, "run as a receiver")

		addr        = flag.String("a", fmt.Sprintf("0.0.0.0:%d", config.DefaultPort), "listen/target address")
		destRoot    = flag.String("d", "", "receiver destination directory")
		syncFile    = flag.String("c", "", "reference tree checkpoint file (defaults to <dir>/BFTPsynchro.xml)")
		rate        = flag.Int("b", config.DefaultRateKbps, "rate ceiling in kbps")
		pause       = flag.Duration("p", config.DefaultPause, "pause between synchronization passes")
		redundancy  = flag.Int("P", config.DefaultMinFileRedundancy, "minimum redundant transmissions per file")
		resume      = flag.Bool("resume", false, "resume from an existing reference tree checkpoint")
		loopCount   = flag.Int("l", 0, "number of synchronization passes, 0 to run until every file exceeds -P sends")
		nice        = flag.Int("nice", 0, "niceness to set at startup (negative raises priority), 0 to leave unchanged")
		rcvBuf      = flag.Int("rcvbuf", config.DefaultRcvBufBytes, "receive socket buffer size in bytes")
		hbDelay     = flag.Duration("hb-delay", config.DefaultHeartbeatDelay, "heartbeat emission interval")
		hbTimeout   = flag.Duration("hb-timeout", config.DefaultHeartbeatTimeout, "heartbeat overdue threshold")
		debug       = flag.Bool("debug", false, "enable debug logging")
		metricsAddr = flag.String("metrics-addr", "", "address to expose Prometheus metrics on, empty to disable")
	)
	flag.Parse()

	c := config.Config{
		Addr:              *addr,
		RateKbps:          *rate,
		Pause:             *pause,
		MinFileRedundancy: *redundancy,
		OfflineRetention:  config.DefaultOfflineRetention,
		Resume:            *resume,
		LoopCount:         *loopCount,
		Nice:              *nice,
		DestRoot:          *destRoot,
		RcvBufBytes:       *rcvBuf,
		HeartbeatDelay:    *hbDelay,
		HeartbeatTimeout:  *hbTimeout,
		Debug:             *debug,
		MetricsAddr:       *metricsAddr,
		SyncFilePath:      *syncFile,
	}

	modesSelected := 0
	if *sendFile != "" {
		c.Mode = config.ModeSendFile
		c.SinglePath = *sendFile
		modesSelected++
	}
	if *syncDir != "" {
		c.Mode = config.ModeSync
		c.RootPath = *syncDir
		modesSelected++
	}
	if *strictSync != "" {
		c.Mode = config.ModeStrictSync
		c.RootPath = *strictSync
		modesSelected++
	}
	if *receive {
		c.Mode = config.ModeReceive
		modesSelected++
	}
	if modesSelected != 1 {
		return c, fmt.Errorf("select exactly one of -e, -s, -S, -r")
	}
	if c.RootPath != "" && c.SyncFilePath == "" {
		c.SyncFilePath = filepath.Join(c.RootPath, "BFTPsynchro.xml")
	}
	if c.DestRoot != "" {
		c.ScratchDir = filepath.Join(c.DestRoot, ".blindftp-scratch")
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func installSignalCancel(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()
}

func runSendFile(ctx context.Context, lctx logger.Context, cfg config.Config) error {
	s, err := sender.New(sender.Config{TargetAddr: cfg.Addr, RateKbps: cfg.RateKbps})
	if err != nil {
		return err
	}
	defer s.Close()

	name := filepath.Base(cfg.SinglePath)
	logger.I(lctx, "sending", cfg.SinglePath, "as", name)
	return s.SendFile(cfg.SinglePath, name)
}

func runSync(ctx context.Context, lctx logger.Context, cfg config.Config, reg *metrics.Registry) error {
	if cfg.Nice != 0 {
		if err := sender.RaisePriority(cfg.Nice); err != nil {
			logger.W(lctx, "failed to raise priority, err is", err)
		}
	}

	sessionID := int32(time.Now().Unix())
	s, err := sender.New(sender.Config{
		RootPath:          cfg.RootPath,
		TargetAddr:        cfg.Addr,
		SyncFilePath:      cfg.SyncFilePath,
		Resume:            cfg.Resume,
		RateKbps:          cfg.RateKbps,
		Pause:             cfg.Pause,
		MinFileRedundancy: cfg.MinFileRedundancy,
		OfflineRetention:  cfg.OfflineRetention,
		HeartbeatDelay:    cfg.HeartbeatDelay,
		LoopCount:         cfg.LoopCount,
		SessionID:         sessionID,
		PropagateDeletes:  cfg.Mode == config.ModeStrictSync,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if cfg.HeartbeatDelay > 0 {
		hbAddr, err := net.ResolveUDPAddr("udp", cfg.Addr)
		if err != nil {
			return err
		}
		hbConn, err := net.ListenPacket("udp", ":0")
		if err != nil {
			return err
		}
		defer hbConn.Close()
		go heartbeat.NewSender(hbConn, hbAddr, sessionID, cfg.HeartbeatDelay).Start(ctx, lctx)
	}

	hooks := SyncMetricsHooks(reg)
	return s.RunSync(ctx, lctx, hooks)
}

func runReceive(ctx context.Context, lctx logger.Context, cfg config.Config, reg *metrics.Registry) error {
	onPublished, onIntegrityFailure, onSuperseded, onSkipped, onPublishFailure := reg.ReassemblyHooks()

	r, err := receiver.New(receiver.Config{
		ListenAddr:       cfg.Addr,
		DestRoot:         cfg.DestRoot,
		ScratchDir:       cfg.ScratchDir,
		RcvBufBytes:      cfg.RcvBufBytes,
		HeartbeatTimeout: cfg.HeartbeatTimeout,
	}, receiverHooksFor(onPublished, onIntegrityFailure, onSuperseded, onSkipped, func(name string, err error) {
		logger.E(lctx, "publish failed for", name, "err is", err)
		onPublishFailure(name, err)
	}), receiver.ReceiveHooks{
		OnDecodeError: func(error) { reg.DecodeErrors.Inc() },
		OnHeartbeat: func(lost int32, newSession bool) {
			reg.HeartbeatsObserved.Inc()
			if lost > 0 {
				reg.HeartbeatsLost.Add(float64(lost))
			}
		},
	}, func(elapsed time.Duration, level int) {
		logger.W(lctx, "heartbeat overdue", elapsed, "escalation level", level)
	})
	if err != nil {
		return err
	}
	defer r.Close()

	logger.I(lctx, "receiving on", cfg.Addr, "into", cfg.DestRoot)
	return r.Run(ctx, lctx)
}
