package sshserver

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"golang.org/x/crypto/ssh"

	"github.com/wascc/wcc/console"
	"github.com/wascc/wcc/internal/logsink"
	"github.com/wascc/wcc/internal/logx"
)

func clientSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return signer
}

func TestEnsureHostKeyCreatesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "host")
	first, err := EnsureHostKey(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 host key, got %v", info.Mode().Perm())
	}
	second, err := EnsureHostKey(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(first.PublicKey().Marshal()) != string(second.PublicKey().Marshal()) {
		t.Fatalf("host key changed between loads")
	}
	if _, err := EnsureHostKey(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadAuthorizedKeys(t *testing.T) {
	signer := clientSigner(t)
	path := filepath.Join(t.TempDir(), "authorized_keys")
	content := "# operators\n\n" + string(ssh.MarshalAuthorizedKey(signer.PublicKey()))
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	keys, err := LoadAuthorizedKeys(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(keys) != 1 || string(keys[0].Marshal()) != string(signer.PublicKey().Marshal()) {
		t.Fatalf("unexpected keys %v", keys)
	}
	if err := os.WriteFile(path, []byte("not a key\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadAuthorizedKeys(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestColorProfile(t *testing.T) {
	cases := []struct {
		term    string
		environ []string
		want    termenv.Profile
	}{
		{"xterm-256color", nil, termenv.ANSI256},
		{"xterm", []string{"COLORTERM=truecolor"}, termenv.TrueColor},
		{"dumb", nil, termenv.Ascii},
		{"", nil, termenv.Ascii},
	}
	for _, tc := range cases {
		if got := colorProfile(tc.term, tc.environ); got != tc.want {
			t.Fatalf("colorProfile(%q, %v) = %v, want %v", tc.term, tc.environ, got, tc.want)
		}
	}
}

func TestServerRunsConsolePerSession(t *testing.T) {
	dir := t.TempDir()
	signer := clientSigner(t)
	authorized := filepath.Join(dir, "authorized_keys")
	if err := os.WriteFile(authorized, ssh.MarshalAuthorizedKey(signer.PublicKey()), 0o600); err != nil {
		t.Fatalf("write authorized keys: %v", err)
	}
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	sink := logsink.New(logsink.Options{})
	srv := &Server{
		HostKeyPath:        filepath.Join(dir, "host_key"),
		AuthorizedKeysPath: authorized,
		Listener:           lis,
		Console:            console.Options{Sink: sink, PollInterval: 10 * time.Millisecond},
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.ListenAndServe(ctx) }()
	defer func() {
		cancel()
		<-served
	}()

	rejected := &ssh.ClientConfig{
		User:            "operator",
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(clientSigner(t))},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	}
	if conn, err := ssh.Dial("tcp", lis.Addr().String(), rejected); err == nil {
		_ = conn.Close()
		t.Fatalf("unknown key should be rejected")
	}

	client, err := ssh.Dial("tcp", lis.Addr().String(), &ssh.ClientConfig{
		User:            "operator",
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	sess, err := client.NewSession()
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	defer sess.Close()
	sess.Stdout = io.Discard
	stdin, err := sess.StdinPipe()
	if err != nil {
		t.Fatalf("stdin: %v", err)
	}
	if err := sess.RequestPty("xterm-256color", 30, 100, ssh.TerminalModes{}); err != nil {
		t.Fatalf("pty: %v", err)
	}
	if err := sess.Shell(); err != nil {
		t.Fatalf("shell: %v", err)
	}
	if _, err := io.WriteString(stdin, "quit\r"); err != nil {
		t.Fatalf("write: %v", err)
	}
	waited := make(chan error, 1)
	go func() { waited <- sess.Wait() }()
	select {
	case err := <-waited:
		var exit *ssh.ExitError
		if err != nil && !errors.As(err, &exit) {
			t.Fatalf("wait: %v", err)
		}
		if exit != nil {
			t.Fatalf("unexpected exit status %d", exit.ExitStatus())
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("session did not end after quit")
	}

	var goodbye bool
	for _, rec := range sink.Records() {
		if rec.Target == logx.CommandTarget && rec.Message == "Goodbye" && rec.Session != "" {
			goodbye = true
		}
	}
	if !goodbye {
		t.Fatalf("expected a session-tagged Goodbye record")
	}
}
