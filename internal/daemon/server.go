package daemon

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/webnis/webnis/internal/lineproto"
	"github.com/webnis/webnis/internal/logger"
)

// ErrServerRequestedShutdown is returned by Serve after a clean Shutdown,
// mirroring the lifecycle contract of the teacher's Unix-socket server.
var ErrServerRequestedShutdown = errors.New("daemon: server requested shutdown")

// PeerPolicy names the non-root access restrictions spec.md §4.E defines
// for GETPWUID/GETGRGID.
type PeerPolicy struct {
	RestrictGetPwUid bool
	RestrictGetGrGid bool
}

// Server is the binding daemon's Unix-domain line-protocol listener: one
// goroutine per connection, FIFO command processing within a connection,
// peer-credential capture at accept time.
type Server struct {
	addr       string
	policy     PeerPolicy
	translator *Translator
	log        logger.Logger

	mu       sync.Mutex
	listener *net.UnixListener
	shutdown bool
}

// NewServer builds a Server bound to addr (a Unix socket path). The socket
// file is removed first if a stale one is present.
func NewServer(addr string, policy PeerPolicy, translator *Translator, log logger.Logger) (*Server, error) {
	_ = os.Remove(addr)
	return &Server{addr: addr, policy: policy, translator: translator, log: log}, nil
}

// Serve listens and accepts connections until Shutdown is called. listening
// receives the result of the initial bind (nil on success) exactly once;
// Serve does not close it.
func (s *Server) Serve(listening chan error) error {
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: s.addr, Net: "unix"})
	if err != nil {
		listening <- err
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	listening <- nil

	var wg sync.WaitGroup
	for {
		conn, err := ln.AcceptUnix()
		if err != nil {
			wg.Wait()
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()
			if shutdown {
				return ErrServerRequestedShutdown
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Shutdown stops accepting new connections. In-flight connections are left
// to finish on their own. Upstream calls run under context.Background(), so
// a client disconnect does not cancel a request already sent to a backend;
// the connection's goroutine ends when its next reply write or read fails.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConn(conn *net.UnixConn) {
	defer conn.Close()

	peer, err := peerCredentials(conn)
	if err != nil && s.log != nil {
		s.log.Warnf("daemon: %v", err)
	}

	session := newSession()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		reply := s.dispatch(conn, peer, session, line)
		if _, err := conn.Write([]byte(reply)); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(conn *net.UnixConn, peer Peer, session *Session, line string) string {
	cmd, err := lineproto.ParseCommand(line)
	if err != nil {
		return lineproto.Reply(400, err.Error())
	}

	switch cmd.Verb {
	case lineproto.VerbSet:
		session.Set(cmd.Key, cmd.Value)
		return lineproto.Reply(200, "OK")

	case lineproto.VerbPam:
		session.setPAM(cmd.Arg)
		return lineproto.Reply(200, "OK")

	case lineproto.VerbGetPwUid:
		if denied := checkPeerPolicy(s.policy, peer, cmd.Verb, cmd.Arg); denied {
			return lineproto.Reply(403, "forbidden")
		}
		code, payload := s.translator.Identity(context.Background(), cmd.Verb, cmd.Arg)
		return lineproto.Reply(code, payload)

	case lineproto.VerbGetGrGid:
		if denied := checkPeerPolicy(s.policy, peer, cmd.Verb, cmd.Arg); denied {
			return lineproto.Reply(403, "forbidden")
		}
		code, payload := s.translator.Identity(context.Background(), cmd.Verb, cmd.Arg)
		return lineproto.Reply(code, payload)

	case lineproto.VerbGetPwNam, lineproto.VerbGetGrNam, lineproto.VerbGetGidList:
		code, payload := s.translator.Identity(context.Background(), cmd.Verb, cmd.Arg)
		return lineproto.Reply(code, payload)

	case lineproto.VerbAuth:
		service := cmd.Service
		if service == "" {
			service, _ = session.Get("service")
		}
		remote := cmd.Remote
		if remote == "" {
			remote, _ = session.Get("remotehost")
		}
		code, payload := s.translator.Auth(context.Background(), cmd.Arg, cmd.Password, service, remote)
		return lineproto.Reply(code, payload)

	default:
		return lineproto.Reply(400, "unsupported command")
	}
}

// checkPeerPolicy implements spec.md §4.E's peer policy, evaluated before
// any upstream request is issued.
func checkPeerPolicy(policy PeerPolicy, peer Peer, verb lineproto.Verb, arg string) bool {
	if peer.UID == 0 {
		return false // root is never restricted
	}
	switch verb {
	case lineproto.VerbGetPwUid:
		if !policy.RestrictGetPwUid {
			return false
		}
		id, err := strconv.ParseUint(arg, 10, 32)
		return err != nil || uint32(id) != peer.UID
	case lineproto.VerbGetGrGid:
		if !policy.RestrictGetGrGid {
			return false
		}
		id, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return true
		}
		if uint32(id) < 1000 {
			return false
		}
		return uint32(id) != peer.GID
	default:
		return false
	}
}
