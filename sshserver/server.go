// Package sshserver serves the wash console to SSH clients. Every session
// gets its own console over the shared log sink.
package sshserver

import (
	"context"
	"errors"
	"io"
	"net"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"github.com/wascc/wcc/console"
	"github.com/wascc/wcc/internal/logx"
	"github.com/wascc/wcc/schema"
	"pkt.systems/pslog"
)

// Server exposes the console over SSH.
type Server struct {
	Addr               string
	HostKeyPath        string
	AuthorizedKeysPath string
	Listener           net.Listener
	// Console is the template for per-session consoles. SessionID and
	// Member are set per session.
	Console console.Options
	logger  pslog.Logger
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Console.Sink != nil {
		ctx = pslog.ContextWithLogger(ctx, s.Console.Sink.Logger())
	}
	if s.logger == nil {
		s.logger = logx.Target(pslog.Ctx(ctx), logx.LogTarget)
	}

	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}
	if s.AuthorizedKeysPath == "" {
		return errors.New("authorized keys path is required for SSH")
	}

	server := &gliderssh.Server{
		Addr:             s.Addr,
		Handler:          func(sess gliderssh.Session) { s.handleSession(ctx, sess) },
		PublicKeyHandler: s.handlePublicKey,
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()
	s.logger.Info("ssh console listening", "addr", s.addr())

	select {
	case <-ctx.Done():
		_ = server.Close()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) addr() string {
	if s.Listener != nil {
		return s.Listener.Addr().String()
	}
	return s.Addr
}

func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	log := s.logger.With("user", ctx.User(), "remote", remoteAddr(ctx), "fingerprint", ssh.FingerprintSHA256(key))
	keys, err := LoadAuthorizedKeys(s.AuthorizedKeysPath)
	if err != nil {
		log.Warn("ssh pubkey rejected", "err", err)
		return false
	}
	for _, allowed := range keys {
		if gliderssh.KeysEqual(key, allowed) {
			log.Info("ssh pubkey accepted")
			return true
		}
	}
	log.Warn("ssh pubkey rejected", "reason", "no matching key")
	return false
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(ctx context.Context, sess gliderssh.Session) {
	log := s.logger.With("user", sess.User(), "remote", sess.RemoteAddr().String())
	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		_ = sess.Exit(1)
		return
	}

	opts := s.Console
	opts.SessionID = schema.SessionID(sess.Context().SessionID())
	opts.Member = nil
	log = log.With(logx.SessionKey, opts.SessionID)
	log.Info("ssh session opened", "term", pty.Term, "width", pty.Window.Width, "height", pty.Window.Height)

	term := newSessionTerminal(sess, pty, winCh)
	err := console.New(term, opts).Run(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		log.Warn("ssh session ended", "err", err)
		_ = sess.Exit(1)
		return
	}
	log.Info("ssh session closed")
	_ = sess.Exit(0)
}
