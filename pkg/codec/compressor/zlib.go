package compressor

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"

	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

// ZlibCompressor 基于 github.com/klauspost/compress/zlib 的压缩实现，区块（chunk）数据与网络负载常用这种格式。
type ZlibCompressor struct {
	level   int
	limit   int64
	writers sync.Pool
	readers sync.Pool
}

// 编译期断言：确保 ZlibCompressor 实现了 Compressor 接口。
var _ Compressor = (*ZlibCompressor)(nil)

// NewZlibCompressor 创建一个 ZlibCompressor，level 为 0 时使用 zlib.DefaultCompression。
func NewZlibCompressor(level int, opts ...Option) (*ZlibCompressor, error) {
	if level == 0 {
		level = zlib.DefaultCompression
	}
	if _, err := zlib.NewWriterLevel(io.Discard, level); err != nil {
		return nil, merr.WrapErrCompression(string(Zlib), err)
	}
	return &ZlibCompressor{level: level, limit: buildSettings(opts).maxDecompressedSize}, nil
}

func (c *ZlibCompressor) Kind() Kind {
	return Zlib
}

// Compress 实现 Compressor 接口。
func (c *ZlibCompressor) Compress(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst[:0])
	zw, ok := c.writers.Get().(*zlib.Writer)
	if ok {
		zw.Reset(buf)
	} else {
		zw, _ = zlib.NewWriterLevel(buf, c.level)
	}
	defer func() {
		zw.Reset(io.Discard)
		c.writers.Put(zw)
	}()

	if _, err := zw.Write(src); err != nil {
		return nil, merr.WrapErrCompression(string(Zlib), err)
	}
	if err := zw.Close(); err != nil {
		return nil, merr.WrapErrCompression(string(Zlib), err)
	}
	return buf.Bytes(), nil
}

// Decompress 实现 Compressor 接口。
func (c *ZlibCompressor) Decompress(dst, src []byte) ([]byte, error) {
	var (
		zr  io.ReadCloser
		err error
	)
	if pooled, ok := c.readers.Get().(io.ReadCloser); ok {
		zr, err = pooled, pooled.(zlib.Resetter).Reset(bytes.NewReader(src), nil)
	} else {
		zr, err = zlib.NewReader(bytes.NewReader(src))
	}
	if err != nil {
		return nil, merr.WrapErrCompression(string(Zlib), err)
	}
	defer c.readers.Put(zr)

	buf := bytes.NewBuffer(dst[:0])
	if err := copyLimited(buf, zr, c.limit, Zlib); err != nil {
		return nil, err
	}
	if err := zr.Close(); err != nil {
		return nil, merr.WrapErrCompression(string(Zlib), err)
	}
	return buf.Bytes(), nil
}
