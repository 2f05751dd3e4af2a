// Package wire 实现 NBT 线格式的定长大端数值、tag id 与字符串的读写。
//
// 语义与 Java 的 DataInputStream/DataOutputStream 保持一致。
package wire

import (
	"encoding/binary"
	"math"

	"github.com/lk2023060901/nbt-go/pkg/nbt/mutf8"
	"github.com/lk2023060901/nbt-go/pkg/nbt/tag"
	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

// Reader 是只读字节切片上的游标。
//
// 所有读取在字节不足时返回 ErrUnexpectedEOF，并且不会移动游标。
type Reader struct {
	buf []byte
	off int
}

// NewReader 创建一个从 buf 起始位置读取的 Reader，buf 不会被修改。
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset 返回下一个待读字节的偏移量。
func (r *Reader) Offset() int {
	return r.off
}

// Remaining 返回尚未读取的字节数。
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// next 返回接下来的 n 个字节并推进游标。
func (r *Reader) next(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, merr.WrapErrUnexpectedEOF(r.off, n, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadInt8() (int8, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (r *Reader) ReadInt16() (int16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// ReadKind 读取一个 tag id 字节，未知 id 返回 ErrUnknownTagID。
func (r *Reader) ReadKind() (tag.Kind, error) {
	start := r.off
	b, err := r.next(1)
	if err != nil {
		return tag.End, err
	}
	k := tag.Kind(b[0])
	if !k.Valid() {
		r.off = start
		return tag.End, merr.WrapErrUnknownTagID(start, b[0])
	}
	return k, nil
}

// ReadString 读取 2 字节无符号长度前缀加 modified UTF-8 内容。
func (r *Reader) ReadString() (string, error) {
	start := r.off
	n, err := r.ReadUint16()
	if err != nil {
		return "", err
	}
	b, err := r.next(int(n))
	if err != nil {
		r.off = start
		return "", err
	}
	s, err := mutf8.DecodeAt(b, start+2)
	if err != nil {
		r.off = start
		return "", err
	}
	return s, nil
}

// SkipString 跳过一个字符串，同时校验其编码。
func (r *Reader) SkipString() error {
	start := r.off
	n, err := r.ReadUint16()
	if err != nil {
		return err
	}
	b, err := r.next(int(n))
	if err != nil {
		r.off = start
		return err
	}
	if _, err := mutf8.DecodeAt(b, start+2); err != nil {
		r.off = start
		return err
	}
	return nil
}

// ReadLength 读取 List 或数组的 4 字节有符号元素个数，elem 为元素种类。
//
// 负数返回 ErrInvalidLength；当剩余输入按 elem 的最小 body 大小计算
// 不可能容纳声明的元素个数时返回 ErrUnexpectedEOF，从而在分配内存之前拒绝恶意长度。
func (r *Reader) ReadLength(elem tag.Kind) (int, error) {
	start := r.off
	n, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		r.off = start
		return 0, merr.WrapErrInvalidLength(start, int64(n), "negative length")
	}
	if elem == tag.End {
		if n > 0 {
			r.off = start
			return 0, merr.WrapErrInvalidLength(start, int64(n), "non-empty list of End")
		}
		return 0, nil
	}
	need := int64(n) * int64(elem.MinBodySize())
	if need > int64(r.Remaining()) {
		remaining := r.Remaining()
		r.off = start
		return 0, merr.WrapErrUnexpectedEOF(start+4, int(need), remaining, "declared length exceeds remaining input")
	}
	return int(n), nil
}

// Skip 跳过 n 个字节。
func (r *Reader) Skip(n int) error {
	_, err := r.next(n)
	return err
}

// ReadRaw 返回接下来的 n 个字节，返回的切片与底层缓冲区共享内存。
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	return r.next(n)
}
