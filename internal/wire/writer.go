package wire

import (
	"encoding/binary"
	"math"

	"github.com/lk2023060901/nbt-go/internal/pool/bytebuffer"
	"github.com/lk2023060901/nbt-go/pkg/nbt/mutf8"
	"github.com/lk2023060901/nbt-go/pkg/nbt/tag"
	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

// MaxStringLen 是字符串编码后允许的最大字节数（2 字节无符号长度前缀）。
const MaxStringLen = math.MaxUint16

// MaxArrayLen 是 List 与数组允许的最大元素个数（4 字节有符号长度前缀）。
const MaxArrayLen = math.MaxInt32

// Writer 将定长数值与字符串按大端序追加到缓冲区。
// 数值写入不会失败；只有字符串可能因为长度或编码无法表示而失败。
type Writer struct {
	buf *bytebuffer.ByteBuffer
}

// NewWriter 创建一个写入 buf 的 Writer。
func NewWriter(buf *bytebuffer.ByteBuffer) *Writer {
	return &Writer{buf: buf}
}

// Buffer 返回底层缓冲区。
func (w *Writer) Buffer() *bytebuffer.ByteBuffer {
	return w.buf
}

// Reset 将 Writer 切换到新的缓冲区。
func (w *Writer) Reset(buf *bytebuffer.ByteBuffer) {
	w.buf = buf
}

func (w *Writer) WriteKind(k tag.Kind) {
	w.buf.B = append(w.buf.B, k.ID())
}

func (w *Writer) WriteInt8(v int8) {
	w.buf.B = append(w.buf.B, byte(v))
}

func (w *Writer) WriteInt16(v int16) {
	w.buf.B = binary.BigEndian.AppendUint16(w.buf.B, uint16(v))
}

func (w *Writer) WriteUint16(v uint16) {
	w.buf.B = binary.BigEndian.AppendUint16(w.buf.B, v)
}

func (w *Writer) WriteInt32(v int32) {
	w.buf.B = binary.BigEndian.AppendUint32(w.buf.B, uint32(v))
}

func (w *Writer) WriteInt64(v int64) {
	w.buf.B = binary.BigEndian.AppendUint64(w.buf.B, uint64(v))
}

func (w *Writer) WriteFloat32(v float32) {
	w.buf.B = binary.BigEndian.AppendUint32(w.buf.B, math.Float32bits(v))
}

func (w *Writer) WriteFloat64(v float64) {
	w.buf.B = binary.BigEndian.AppendUint64(w.buf.B, math.Float64bits(v))
}

// WriteLength 写入 List 或数组的元素个数，超出 int32 范围时返回错误。
func (w *Writer) WriteLength(n int) error {
	if n < 0 || n > MaxArrayLen {
		return merr.WrapErrUnrepresentableReason("length does not fit a signed 32-bit count")
	}
	w.WriteInt32(int32(n))
	return nil
}

// WriteString 写入长度前缀的 modified UTF-8 字符串。
// 编码后超过 65535 字节时返回 ErrUnrepresentableValue，不做截断。
func (w *Writer) WriteString(s string) error {
	n, err := mutf8.EncodedLen(s)
	if err != nil {
		return err
	}
	if n > MaxStringLen {
		return merr.WrapErrUnrepresentableReason("string exceeds 65535 encoded bytes")
	}
	w.WriteUint16(uint16(n))
	w.buf.B, err = mutf8.Encode(w.buf.B, s)
	return err
}

// WriteByteArray 写入长度前缀的 int8 数组。
func (w *Writer) WriteByteArray(v []int8) error {
	if err := w.WriteLength(len(v)); err != nil {
		return err
	}
	for _, x := range v {
		w.buf.B = append(w.buf.B, byte(x))
	}
	return nil
}

// WriteRawBytes 写入长度前缀的原始字节数组（ByteArray 的 []byte 形式）。
func (w *Writer) WriteRawBytes(v []byte) error {
	if err := w.WriteLength(len(v)); err != nil {
		return err
	}
	w.buf.B = append(w.buf.B, v...)
	return nil
}

// WriteIntArray 写入长度前缀的 int32 数组。
func (w *Writer) WriteIntArray(v []int32) error {
	if err := w.WriteLength(len(v)); err != nil {
		return err
	}
	for _, x := range v {
		w.WriteInt32(x)
	}
	return nil
}

// WriteLongArray 写入长度前缀的 int64 数组。
func (w *Writer) WriteLongArray(v []int64) error {
	if err := w.WriteLength(len(v)); err != nil {
		return err
	}
	for _, x := range v {
		w.WriteInt64(x)
	}
	return nil
}

// WriteRaw 原样追加已编码的字节。
func (w *Writer) WriteRaw(b []byte) {
	w.buf.B = append(w.buf.B, b...)
}
