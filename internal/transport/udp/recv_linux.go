//go:build linux

package udp

import (
	"errors"

	"golang.org/x/sys/unix"
)

var errTruncated = errors.New("datagram truncated")

// recvDatagram peeks at the pending datagram's real length first, so an
// oversized datagram is discarded without touching buf.
func recvDatagram(fd int, buf []byte) (n, size int, err error) {
	size, _, err = unix.Recvfrom(fd, nil, unix.MSG_DONTWAIT|unix.MSG_PEEK|unix.MSG_TRUNC)
	if err != nil {
		return 0, 0, err
	}
	if size > len(buf) {
		// UDP never delivers a partial datagram; drop it so the next call
		// does not see it again.
		_, _, _ = unix.Recvfrom(fd, nil, unix.MSG_DONTWAIT)
		return 0, size, errTruncated
	}

	n, _, err = unix.Recvfrom(fd, buf, unix.MSG_DONTWAIT)
	return n, n, err
}
