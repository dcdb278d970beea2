//go:build linux

package daemon

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// peerCredentials captures the connecting process's UID/GID via
// SO_PEERCRED, the socket-level credential facility spec.md §4.E relies
// on. Must be called immediately after Accept(), before any data is read.
func peerCredentials(conn *net.UnixConn) (Peer, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return Peer{}, fmt.Errorf("daemon: peer credentials: %w", err)
	}

	var ucred *unix.Ucred
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return Peer{}, fmt.Errorf("daemon: peer credentials: %w", err)
	}
	if sockErr != nil {
		return Peer{}, fmt.Errorf("daemon: peer credentials: %w", sockErr)
	}
	return Peer{UID: ucred.Uid, GID: ucred.Gid}, nil
}
