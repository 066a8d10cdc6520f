//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package udp

import (
	"errors"

	"golang.org/x/sys/unix"
)

var errTruncated = errors.New("datagram truncated")

// recvDatagram reads one datagram and detects truncation from the recvmsg
// flags. The BSDs cannot report the real length of an oversized datagram,
// and the prefix that fit has already been written to buf.
func recvDatagram(fd int, buf []byte) (n, size int, err error) {
	n, _, flags, _, err := unix.Recvmsg(fd, buf, nil, unix.MSG_DONTWAIT)
	if err != nil {
		return 0, 0, err
	}
	if flags&unix.MSG_TRUNC != 0 {
		return 0, -1, errTruncated
	}
	return n, n, nil
}
