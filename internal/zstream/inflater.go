// Package zstream maintains the persistent, per-connection zlib streams
// used to carry tick deltas: a Deflater on the server side, an Inflater on
// the client side. Neither is ever reset for the lifetime of a connection —
// the compressor and decompressor share one continuous stream chunked
// across tick boundaries.
//
// klauspost/compress/zlib is used instead of the standard library's
// compress/zlib: it's a drop-in API but with a faster deflate
// implementation, and it's already part of this module's dependency graph.
package zstream

import (
	"errors"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ErrNoProgress is returned when the inflater cannot make forward progress
// on a non-empty input — compress/flate's own stall guard tripped, meaning
// the stream is corrupt or desynchronised.
var ErrNoProgress = errors.New("zstream: inflater made no forward progress")

// probingReader wraps the pipe the inflate goroutine reads from. Every time
// the flate decoder asks it for more compressed bytes, it signals on probe
// before blocking on the real read. Feed uses that signal to know when the
// decoder has drained everything derivable from what it has been given so
// far and is now waiting on the next tick's bytes.
type probingReader struct {
	r     io.Reader
	probe chan struct{}
}

func (p *probingReader) Read(b []byte) (int, error) {
	p.probe <- struct{}{}
	return p.r.Read(b)
}

// Inflater is a persistent zlib decompression session. compress/flate's
// Reader latches the first error it sees permanently (it cannot be fed a
// "no more input yet, come back next tick" signal and recover), so a naive
// Read-until-EOF-or-error loop across Feed calls would wedge the decoder
// after the first tick. Instead a single background goroutine owns the
// flate Reader for the lifetime of the connection, reading through an
// io.Pipe that Feed writes into; the probe channel lets Feed observe
// exactly when that goroutine has converted everything it was given into
// output and is blocked wanting more, without ever closing or resetting
// the underlying stream.
type Inflater struct {
	pw     *io.PipeWriter
	probe  chan struct{}
	chunks chan []byte
	failed chan error
	done   chan struct{}
}

// NewInflater starts the background decode goroutine and returns an
// Inflater ready to receive the stream's first compressed bytes (including
// the 2-byte zlib header) via Feed.
func NewInflater() *Inflater {
	pr, pw := io.Pipe()
	inf := &Inflater{
		pw:     pw,
		probe:  make(chan struct{}),
		chunks: make(chan []byte),
		failed: make(chan error, 1),
		done:   make(chan struct{}),
	}
	go inf.run(&probingReader{r: pr, probe: inf.probe})
	return inf
}

func (inf *Inflater) run(r io.Reader) {
	defer close(inf.done)

	zr, err := zlib.NewReader(r)
	if err != nil {
		inf.failed <- err
		return
	}
	defer zr.Close()

	buf := make([]byte, 4096)
	for {
		n, err := zr.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			inf.chunks <- chunk
		}
		if err != nil {
			switch err {
			case io.EOF:
				return
			case io.ErrNoProgress:
				inf.failed <- ErrNoProgress
			default:
				inf.failed <- err
			}
			return
		}
	}
}

// Feed decompresses one tick's worth of compressed bytes and returns all
// output that stream produces before the decoder next blocks waiting for
// more input. payload must be the compressed bytes from a single frame;
// an empty payload (an empty compressed frame, a tick boundary with no
// commands) is a no-op.
func (inf *Inflater) Feed(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	writeErrCh := make(chan error, 1)
	go func() {
		_, err := inf.pw.Write(payload)
		writeErrCh <- err
	}()

	var out []byte
	wrote := false
	for {
		select {
		case chunk := <-inf.chunks:
			out = append(out, chunk...)
		case err := <-inf.failed:
			return out, err
		case werr := <-writeErrCh:
			if werr != nil {
				return out, werr
			}
			wrote = true
			writeErrCh = nil
		case <-inf.probe:
			// Before our own write completes, a probe just means the
			// decoder's prior request is now finally being serviced by
			// it (or, for the very first Feed call, this is the read
			// for the zlib header); swallow it and keep going. Once our
			// write has completed, a probe means everything derivable
			// from it has been produced.
			if wrote {
				return out, nil
			}
		}
	}
}

// Close tears down the background goroutine and the underlying pipe. Any
// bytes in flight are discarded; Close is for connection teardown, not for
// flushing a final tick.
func (inf *Inflater) Close() error {
	err := inf.pw.CloseWithError(io.ErrClosedPipe)
	for {
		select {
		case <-inf.done:
			return err
		case <-inf.probe:
		case <-inf.chunks:
		case <-inf.failed:
		}
	}
}
