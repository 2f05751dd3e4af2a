package compressor

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

// Compressor 抽象了“单次压缩/解压”能力。
//
// NBT 文件在磁盘与网络上通常整体套一层 gzip 或 zlib，文档本身并不区分。
// 不做全局单例，调用方按需创建具体实现的实例；实现可以被多个 goroutine 并发使用。
type Compressor interface {
	// Compress 将 src 压缩并追加到 dst[:0]。
	//
	// dst 一般可以传入一个可复用的缓冲区（长度可为 0），实现可选择复用其底层容量；
	// 返回值 packet 为压缩后的完整数据。
	Compress(dst, src []byte) (packet []byte, err error)

	// Decompress 将压缩数据 src 解压并追加到 dst[:0]。
	//
	// 行为约定与 Compress 对称：src 必须是 Compress 的输出。
	Decompress(dst, src []byte) (plain []byte, err error)

	// Kind 返回压缩算法。
	Kind() Kind
}

// Kind 标识 NBT 负载外层的压缩格式。
type Kind string

const (
	None Kind = "none"
	Gzip Kind = "gzip"
	Zlib Kind = "zlib"
)

// ParseKind 解析配置中的压缩格式名称，空串视为 None。
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", None:
		return None, nil
	case Gzip, Zlib:
		return k, nil
	default:
		return None, merr.WrapErrInvalidArgument(fmt.Sprintf("unknown compression %q", s))
	}
}

// DefaultMaxDecompressedSize 是解压结果的默认上限。
const DefaultMaxDecompressedSize int64 = 64 << 20

type settings struct {
	maxDecompressedSize int64
}

// Option 为压缩器的可选配置。
type Option func(*settings)

// WithMaxDecompressedSize 限制单次解压的输出字节数，n <= 0 时使用 DefaultMaxDecompressedSize。
func WithMaxDecompressedSize(n int64) Option {
	return func(s *settings) {
		if n <= 0 {
			n = DefaultMaxDecompressedSize
		}
		s.maxDecompressedSize = n
	}
}

func buildSettings(opts []Option) settings {
	s := settings{maxDecompressedSize: DefaultMaxDecompressedSize}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// copyLimited 将 r 的全部内容读入 buf，超过 limit 字节时返回 ErrCompression。
func copyLimited(buf *bytes.Buffer, r io.Reader, limit int64, kind Kind) error {
	n, err := io.Copy(buf, io.LimitReader(r, limit+1))
	if err != nil {
		return merr.WrapErrCompression(string(kind), err)
	}
	if n > limit {
		return merr.WrapErrCompression(string(kind), errors.Newf("decompressed size exceeds %d bytes", limit))
	}
	return nil
}

// New 按 kind 创建压缩器。level 为 0 时使用默认压缩级别。
func New(kind Kind, level int, opts ...Option) (Compressor, error) {
	switch kind {
	case None, "":
		return NopCompressor{}, nil
	case Gzip:
		return NewGzipCompressor(level, opts...)
	case Zlib:
		return NewZlibCompressor(level, opts...)
	default:
		return nil, merr.WrapErrInvalidArgument(fmt.Sprintf("unknown compression %q", kind))
	}
}

// Detect 根据数据头部判断外层压缩格式。
//
// gzip 以魔数 1F 8B 开头；zlib 的 CMF 低 4 位为 8（deflate），且 CMF*256+FLG 是 31 的倍数。
// 其余情况（包括以 Compound tag 0A 开头的裸文档）视为 None。
func Detect(data []byte) Kind {
	if len(data) >= 2 {
		if data[0] == 0x1F && data[1] == 0x8B {
			return Gzip
		}
		cmf, flg := uint16(data[0]), uint16(data[1])
		if cmf&0x0F == 8 && cmf>>4 <= 7 && (cmf<<8|flg)%31 == 0 {
			return Zlib
		}
	}
	return None
}

// NopCompressor 是一个空实现：不做任何压缩/解压，直接返回输入内容。
type NopCompressor struct{}

func (NopCompressor) Compress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Decompress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Kind() Kind {
	return None
}

// 编译期断言：确保 NopCompressor 实现了 Compressor 接口。
var _ Compressor = NopCompressor{}
