package mergestat

import (
	"bytes"
	"errors"
)

var errOutputLimit = errors.New("output limit exceeded")

// cappedBuffer collects subprocess output up to limit bytes. Once the limit
// is crossed every write fails, which makes os/exec close the pipe.
type cappedBuffer struct {
	buf      bytes.Buffer
	limit    int
	exceeded bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.exceeded {
		return 0, errOutputLimit
	}
	if room := b.limit - b.buf.Len(); len(p) > room {
		b.buf.Write(p[:room])
		b.exceeded = true
		return room, errOutputLimit
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}

func (b *cappedBuffer) Exceeded() bool {
	return b.exceeded
}
