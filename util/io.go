package util

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
)

// DefaultBufSize is the standard buffer size for transport I/O (32 KiB).
const DefaultBufSize = 32 * 1024

// Pipe shuffles data between a transport connection and a local
// reader/writer pair (typically stdin/stdout) until the remote side
// closes or the context is cancelled.
func Pipe(ctx context.Context, conn net.Conn, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	// remote → writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		errCh <- copyPooled(w, conn)
		cancel()
	}()

	// reader → remote
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := copyPooled(conn, r)
		// Half-close so the peer sees EOF while we keep draining its
		// side through the goroutine above.
		if tc, ok := conn.(interface{ CloseWrite() error }); ok {
			tc.CloseWrite() //nolint:errcheck
		}
		errCh <- err
		if err != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	conn.Close() // unblock any pending reads/writes
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil && !isHarmless(err) {
			return err
		}
	}
	return nil
}

// Drain copies everything the remote side sends into w until EOF or
// cancellation, then closes conn.  It returns the number of bytes
// received.
func Drain(ctx context.Context, conn net.Conn, w io.Writer) (int64, error) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	buf := GetBuf()
	defer PutBuf(buf)

	n, err := io.CopyBuffer(w, conn, *buf)
	if isHarmless(err) {
		err = nil
	}
	return n, err
}

func copyPooled(dst io.Writer, src io.Reader) error {
	buf := GetBuf()
	defer PutBuf(buf)
	_, err := io.CopyBuffer(dst, src, *buf)
	return err
}

// isHarmless returns true for errors that are expected during shutdown.
func isHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
