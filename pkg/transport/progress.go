package transport

import (
	"io"
	"sync"
)

type progressReader struct {
	r           io.Reader
	fn          ProgressFunc
	total       int64
	transferred int64
}

func newProgressReader(r io.Reader, total int64, fn ProgressFunc) *progressReader {
	return &progressReader{r: r, fn: fn, total: total}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.transferred += int64(n)
		p.fn(p.transferred, p.total)
	}
	return n, err
}

// progressBody reports reads of a response body and runs onClose once.
type progressBody struct {
	io.Reader
	closer  io.Closer
	once    sync.Once
	onClose func()
}

func (b *progressBody) Close() error {
	err := b.closer.Close()
	b.once.Do(func() {
		if b.onClose != nil {
			b.onClose()
		}
	})
	return err
}
