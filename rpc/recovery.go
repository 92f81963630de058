package rpc

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"syscall"
	"time"
)

// probeTimeout bounds the throwaway connection used to test whether a
// peer is live at a conflicting socket path.
const probeTimeout = 2 * time.Second

// ErrLivePeer is returned when a bind conflict turns out to be a live
// server already owning the socket. The socket file is left untouched.
var ErrLivePeer = errors.New("socket owned by a live peer")

// isAddrInUse reports whether err is a bind-time "address already in use"
// failure.
func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

// recoverSocket resolves a bind conflict on socketPath. It opens a probe
// connection to discriminate "someone is using it" from "nobody is using
// it but the file still exists":
//
//   - probe connects: a live server owns the path. Close the probe and
//     return ErrLivePeer without touching the file.
//   - probe is refused: the path is a stale artifact of a crashed prior
//     instance. Remove it so the caller can rebind.
//   - anything else: unresolved, fatal for this attempt.
func recoverSocket(socketPath string, log *slog.Logger) error {
	conn, err := net.DialTimeout("unix", socketPath, probeTimeout)
	if err == nil {
		conn.Close()
		log.Info("bind conflict: live peer detected, leaving socket in place", "socketPath", socketPath)
		return ErrLivePeer
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		log.Info("bind conflict: stale socket detected, removing", "socketPath", socketPath)
		if rmErr := os.Remove(socketPath); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("failed to remove stale socket %s: %w", socketPath, rmErr)
		}
		return nil
	}

	log.Warn("bind conflict: probe failed for an unexpected reason", "socketPath", socketPath, "error", err)
	return fmt.Errorf("probe of %s failed: %w", socketPath, err)
}
