package zstream

import (
	"bytes"

	"github.com/klauspost/compress/zlib"
)

// Deflater is a persistent zlib compression session, one per connection,
// never reset while the connection is alive. Compress requests a sync
// flush after each tick's bytes so the output is self-delimiting at the
// frame boundary, matching what Inflater expects to receive per Feed call.
type Deflater struct {
	buf *bytes.Buffer
	zw  *zlib.Writer
}

// NewDeflater starts a fresh compression session.
func NewDeflater() *Deflater {
	buf := &bytes.Buffer{}
	return &Deflater{buf: buf, zw: zlib.NewWriter(buf)}
}

// Compress feeds tick's bytes into the ongoing deflate stream and flushes
// to a byte boundary, returning the compressed bytes produced for this
// call only. The session's internal state (and therefore its dictionary)
// carries forward to the next call.
func (d *Deflater) Compress(tick []byte) ([]byte, error) {
	d.buf.Reset()
	if len(tick) > 0 {
		if _, err := d.zw.Write(tick); err != nil {
			return nil, err
		}
	}
	if err := d.zw.Flush(); err != nil {
		return nil, err
	}
	out := make([]byte, d.buf.Len())
	copy(out, d.buf.Bytes())
	return out, nil
}

// Close ends the stream, writing the final deflate block.
func (d *Deflater) Close() error {
	return d.zw.Close()
}
