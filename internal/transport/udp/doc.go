// Package udp implements transport.Socket over a native non-blocking UDP
// socket.
//
// Every send and receive first asks the kernel for readiness with a
// zero-timeout poll and only then performs the transfer, so a congested or
// idle channel costs one poll(2) call instead of a failed syscall and an
// error value. The socket is driven synchronously from the caller's
// goroutine; it never parks in the Go runtime netpoller.
//
// The package is available on Linux and the BSDs, including macOS.
package udp
