package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/wascc/wcc/internal/appconfig"
	"github.com/wascc/wcc/internal/logsink"
)

type pipeTerminal struct {
	in  *io.PipeReader
	mu  sync.Mutex
	out bytes.Buffer
}

func (p *pipeTerminal) Read(b []byte) (int, error) { return p.in.Read(b) }

func (p *pipeTerminal) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *pipeTerminal) Size() (int, int, error)      { return 100, 30, nil }
func (p *pipeTerminal) Enter() error                 { return nil }
func (p *pipeTerminal) Restore() error               { return nil }
func (p *pipeTerminal) Renderer() *lipgloss.Renderer { return lipgloss.NewRenderer(io.Discard) }

func testConfig(t *testing.T) appconfig.Config {
	t.Helper()
	cfg, err := appconfig.DefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Lattice.Host = "127.0.0.1"
	cfg.Lattice.Port = 1
	return cfg
}

func TestApplyUpFlags(t *testing.T) {
	cfg := testConfig(t)
	cmd := newUpCmd(&rootOptions{})
	if err := cmd.Flags().Parse([]string{"--host", "10.1.2.3", "--log-level", "trace", "--hostless", "--ssh-addr", ":2222"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	flags := upFlags{host: "10.1.2.3", logLevel: "trace", hostless: true, sshAddr: ":2222"}
	if err := applyUpFlags(&cfg, cmd, flags); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Lattice.Host != "10.1.2.3" || cfg.Lattice.Port != 1 {
		t.Fatalf("unexpected lattice config %+v", cfg.Lattice)
	}
	if cfg.Console.LogLevel != "trace" || !cfg.Console.Hostless || cfg.SSH.Addr != ":2222" {
		t.Fatalf("flags not applied: %+v %+v", cfg.Console, cfg.SSH)
	}

	cmd = newUpCmd(&rootOptions{})
	if err := cmd.Flags().Parse([]string{"--log-level", "loud"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if err := applyUpFlags(&cfg, cmd, upFlags{logLevel: "loud"}); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestNewSinkCaptureLevelAndTee(t *testing.T) {
	cfg := testConfig(t)
	cfg.Console.LogLevel = "warn"
	cfg.Console.LogFile = filepath.Join(t.TempDir(), "logs", "wash.log")
	sink, closer := newSink(cfg)

	log := sink.Logger()
	log.Info("hidden", "target", "WASH_LOG")
	log.Warn("shown", "target", "WASH_LOG")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	log.Warn("late", "target", "WASH_LOG")

	records := sink.Records()
	if len(records) != 2 || records[0].Message != "shown" || records[0].Level != logsink.LevelWarn {
		t.Fatalf("unexpected records %+v", records)
	}
	data, err := os.ReadFile(cfg.Console.LogFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "shown") {
		t.Fatalf("expected record in log file, got:\n%s", data)
	}
	if strings.Contains(string(data), "late") {
		t.Fatalf("records after close must not reach the log file:\n%s", data)
	}
}

func TestRunUpQuitsAndStopsSupervisor(t *testing.T) {
	cfg := testConfig(t)
	cfg.Console.LogFile = filepath.Join(t.TempDir(), "wash.log")
	in, feed := io.Pipe()
	term := &pipeTerminal{in: in}
	defer feed.Close()

	go func() { _, _ = feed.Write([]byte("quit\r")) }()
	if err := runUp(context.Background(), cfg, term); err != nil {
		t.Fatalf("runUp: %v", err)
	}

	data, err := os.ReadFile(cfg.Console.LogFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{"console started", "Goodbye", "Error launching host"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected %q in log file:\n%s", want, data)
		}
	}
}

func TestRunUpHostless(t *testing.T) {
	cfg := testConfig(t)
	cfg.Console.Hostless = true
	cfg.Console.LogFile = filepath.Join(t.TempDir(), "wash.log")
	in, feed := io.Pipe()
	term := &pipeTerminal{in: in}

	go func() { _ = feed.Close() }()
	if err := runUp(context.Background(), cfg, term); err != nil {
		t.Fatalf("closed input should end the console cleanly, got %v", err)
	}
	data, err := os.ReadFile(cfg.Console.LogFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "Error launching host") {
		t.Fatalf("hostless console must not start a member:\n%s", data)
	}
	if !strings.Contains(string(data), "Starting without a lattice member") {
		t.Fatalf("expected hostless record:\n%s", data)
	}
}

func TestRunUpWaitsForCommandsInFlight(t *testing.T) {
	cfg := testConfig(t)
	cfg.Console.Hostless = true
	cfg.Console.LogFile = filepath.Join(t.TempDir(), "wash.log")
	in, feed := io.Pipe()
	term := &pipeTerminal{in: in}
	defer feed.Close()

	go func() { _, _ = feed.Write([]byte("get claims\rquit\r")) }()
	if err := runUp(context.Background(), cfg, term); err != nil {
		t.Fatalf("runUp: %v", err)
	}

	data, err := os.ReadFile(cfg.Console.LogFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "Error handling get claims") {
		t.Fatalf("expected the in-flight command result in log file:\n%s", data)
	}
}
