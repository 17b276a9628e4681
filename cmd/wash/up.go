package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/grpclog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wascc/wcc/console"
	"github.com/wascc/wcc/internal/appconfig"
	"github.com/wascc/wcc/internal/logsink"
	"github.com/wascc/wcc/internal/logx"
	"github.com/wascc/wcc/internal/version"
	"github.com/wascc/wcc/lattice"
	"github.com/wascc/wcc/schema"
	"github.com/wascc/wcc/sshserver"
	"pkt.systems/pslog"
)

// Targets for records redirected from other loggers.
const (
	stdlogTarget = "stdlog"
	grpcTarget   = "grpc"
)

type upFlags struct {
	host     string
	port     int
	logLevel string
	hostless bool
	sshAddr  string
	logFile  string
}

func newUpCmd(opts *rootOptions) *cobra.Command {
	var flags upFlags
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start the interactive console with an embedded lattice member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
				return errors.New("wash up requires an interactive terminal")
			}
			cfg, err := appconfig.Load(opts.configPath)
			if err != nil {
				return err
			}
			if err := applyUpFlags(&cfg, cmd, flags); err != nil {
				return err
			}
			return runUp(cmd.Context(), cfg, console.NewTTY(os.Stdin, os.Stdout))
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.host, "host", "", "lattice host")
	f.IntVar(&flags.port, "port", 0, "lattice port")
	f.StringVar(&flags.logLevel, "log-level", "", "capture level: off, error, warn, info, debug or trace")
	f.BoolVar(&flags.hostless, "hostless", false, "do not start an embedded lattice member")
	f.StringVar(&flags.sshAddr, "ssh-addr", "", "also serve the console over SSH on this address")
	f.StringVar(&flags.logFile, "log-file", "", "tee captured records into a rotating log file")
	return cmd
}

// applyUpFlags copies the flags the user set over cfg.
func applyUpFlags(cfg *appconfig.Config, cmd *cobra.Command, flags upFlags) error {
	changed := cmd.Flags().Changed
	if changed("host") {
		cfg.Lattice.Host = flags.host
	}
	if changed("port") {
		cfg.Lattice.Port = flags.port
	}
	if changed("log-level") {
		if _, ok := logsink.ParseLevel(flags.logLevel); !ok {
			return fmt.Errorf("unsupported log level %q", flags.logLevel)
		}
		cfg.Console.LogLevel = flags.logLevel
	}
	if changed("hostless") {
		cfg.Console.Hostless = flags.hostless
	}
	if changed("ssh-addr") {
		cfg.SSH.Addr = flags.sshAddr
	}
	if changed("log-file") {
		cfg.Console.LogFile = flags.logFile
	}
	if _, err := schema.NormalizeEndpoint(cfg.Endpoint()); err != nil {
		return err
	}
	return nil
}

// commandDrainTimeout bounds how long wash up waits at quit for commands
// still in flight.
const commandDrainTimeout = 5 * time.Second

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// newSink builds the capture sink for a console run. The returned closer
// detaches the log file, if any, from the sink and releases it.
func newSink(cfg appconfig.Config) (*logsink.Sink, io.Closer) {
	level, ok := logsink.ParseLevel(cfg.Console.LogLevel)
	if !ok {
		level = logsink.LevelDebug
	}
	opts := logsink.Options{MaxRecords: cfg.Console.LogBufferRecords}
	if cfg.Console.LogFile != "" {
		opts.Tee = &lumberjack.Logger{
			Filename:   cfg.Console.LogFile,
			MaxSize:    cfg.Console.LogFileMaxMB,
			MaxBackups: cfg.Console.LogFileMaxBackups,
		}
	}
	sink := logsink.New(opts)
	sink.SetLevel("", level)
	return sink, closerFunc(func() error {
		if c, ok := sink.DetachTee().(io.Closer); ok {
			return c.Close()
		}
		return nil
	})
}

// redirectLogs sends stdlib log and grpclog output into the sink until the
// returned function is called.
func redirectLogs(sink *logsink.Sink) func() {
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(sink.TargetWriter(stdlogTarget, logsink.LevelInfo))
	log.SetFlags(0)
	grpclog.SetLoggerV2(grpclog.NewLoggerV2(
		sink.TargetWriter(grpcTarget, logsink.LevelInfo),
		sink.TargetWriter(grpcTarget, logsink.LevelWarn),
		sink.TargetWriter(grpcTarget, logsink.LevelError),
	))
	return func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	}
}

func runUp(ctx context.Context, cfg appconfig.Config, term console.Terminal) error {
	sink, closer := newSink(cfg)
	defer func() { _ = closer.Close() }()
	restoreLogs := redirectLogs(sink)
	defer restoreLogs()

	ctx = pslog.ContextWithLogger(ctx, sink.Logger())
	logger := logx.Target(pslog.Ctx(ctx), logx.LogTarget)
	endpoint := cfg.Endpoint()

	background, stop := context.WithCancel(ctx)
	defer stop()

	var member <-chan schema.HostID
	var supervisorDone <-chan struct{}
	if cfg.Console.Hostless {
		logger.Info("Starting without a lattice member")
	} else {
		sup := console.StartSupervisor(background, console.SupervisorOptions{
			Endpoint:    endpoint,
			Labels:      cfg.Console.HostLabels,
			Version:     version.Current(),
			Heartbeat:   time.Duration(cfg.Console.HeartbeatSeconds) * time.Second,
			StopTimeout: time.Duration(cfg.Console.StopTimeoutSeconds) * time.Second,
		})
		member = sup.Member()
		supervisorDone = sup.Done()
	}

	base := console.Options{
		Sink:           sink,
		Dialer:         lattice.NewDialer(),
		Endpoint:       endpoint,
		PollInterval:   time.Duration(cfg.Console.PollIntervalMS) * time.Millisecond,
		OutputMaxLines: cfg.Console.OutputMaxLines,
	}

	sshDone := make(chan struct{})
	if cfg.SSH.Addr != "" {
		srv := &sshserver.Server{
			Addr:               cfg.SSH.Addr,
			HostKeyPath:        cfg.SSH.HostKeyPath,
			AuthorizedKeysPath: cfg.SSH.AuthorizedKeysPath,
			Console:            base,
		}
		go func() {
			defer close(sshDone)
			if err := srv.ListenAndServe(background); err != nil {
				logger.Error("ssh console failed", "err", err)
			}
		}()
	} else {
		close(sshDone)
	}

	local := base
	local.Member = member
	c := console.New(term, local)
	err := c.Run(ctx)

	if !c.Dispatcher().WaitTimeout(commandDrainTimeout) {
		logger.Warn("Commands still running at exit", "pending", c.Dispatcher().Pending())
	}
	stop()
	if supervisorDone != nil {
		<-supervisorDone
	}
	<-sshDone
	var terr *console.TerminalError
	if errors.As(err, &terr) && errors.Is(terr.Err, io.EOF) {
		return nil
	}
	return err
}
