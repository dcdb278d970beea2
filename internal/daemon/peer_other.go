//go:build !linux

package daemon

import (
	"fmt"
	"net"
)

// peerCredentials is unsupported outside Linux: SO_PEERCRED is a
// Linux-specific socket option. Darwin's LOCAL_PEERCRED returns a
// different struct layout (xucred) and is not wired in.
func peerCredentials(conn *net.UnixConn) (Peer, error) {
	return Peer{}, fmt.Errorf("daemon: peer credential capture is not supported on this platform")
}
