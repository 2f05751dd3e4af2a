package compressor

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

// GzipCompressor 基于 github.com/klauspost/compress/gzip 的压缩实现，Minecraft 的 .dat 文件使用这种格式。
//
// 内部通过 sync.Pool 复用 gzip.Writer / gzip.Reader，可以并发使用。
type GzipCompressor struct {
	level   int
	limit   int64
	writers sync.Pool
	readers sync.Pool
}

// 编译期断言：确保 GzipCompressor 实现了 Compressor 接口。
var _ Compressor = (*GzipCompressor)(nil)

// NewGzipCompressor 创建一个 GzipCompressor，level 为 0 时使用 gzip.DefaultCompression。
func NewGzipCompressor(level int, opts ...Option) (*GzipCompressor, error) {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	// 提前校验级别，避免在池中延迟暴露错误。
	if _, err := gzip.NewWriterLevel(io.Discard, level); err != nil {
		return nil, merr.WrapErrCompression(string(Gzip), err)
	}
	return &GzipCompressor{level: level, limit: buildSettings(opts).maxDecompressedSize}, nil
}

func (c *GzipCompressor) Kind() Kind {
	return Gzip
}

func (c *GzipCompressor) getWriter(w io.Writer) *gzip.Writer {
	if zw, ok := c.writers.Get().(*gzip.Writer); ok {
		zw.Reset(w)
		return zw
	}
	zw, _ := gzip.NewWriterLevel(w, c.level)
	return zw
}

func (c *GzipCompressor) putWriter(zw *gzip.Writer) {
	zw.Reset(io.Discard)
	c.writers.Put(zw)
}

// Compress 实现 Compressor 接口。
func (c *GzipCompressor) Compress(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst[:0])
	zw := c.getWriter(buf)
	defer c.putWriter(zw)

	if _, err := zw.Write(src); err != nil {
		return nil, merr.WrapErrCompression(string(Gzip), err)
	}
	if err := zw.Close(); err != nil {
		return nil, merr.WrapErrCompression(string(Gzip), err)
	}
	return buf.Bytes(), nil
}

// Decompress 实现 Compressor 接口。
func (c *GzipCompressor) Decompress(dst, src []byte) ([]byte, error) {
	var (
		zr  *gzip.Reader
		err error
	)
	if pooled, ok := c.readers.Get().(*gzip.Reader); ok {
		zr, err = pooled, pooled.Reset(bytes.NewReader(src))
	} else {
		zr, err = gzip.NewReader(bytes.NewReader(src))
	}
	if err != nil {
		return nil, merr.WrapErrCompression(string(Gzip), err)
	}
	defer c.readers.Put(zr)

	buf := bytes.NewBuffer(dst[:0])
	if err := copyLimited(buf, zr, c.limit, Gzip); err != nil {
		return nil, err
	}
	if err := zr.Close(); err != nil {
		return nil, merr.WrapErrCompression(string(Gzip), err)
	}
	return buf.Bytes(), nil
}
