package nbt

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/nbt-go/internal/pool/bytebuffer"
	"github.com/lk2023060901/nbt-go/internal/wire"
	"github.com/lk2023060901/nbt-go/pkg/nbt/tag"
	"github.com/lk2023060901/nbt-go/pkg/util/merr"
	"github.com/lk2023060901/nbt-go/pkg/util/typeutil"
)

type frameKind uint8

const (
	compoundFrame frameKind = iota
	listFrame
)

type frame struct {
	kind frameKind
	// out 接收本帧子节点的 body。Compound 帧与父帧共用同一个 out，List 帧持有自己的缓冲区。
	out *wire.Writer
	// seg 为本帧在父容器中的位置，cur 为当前正在写入的子节点位置。
	seg    pathSeg
	cur    pathSeg
	hasCur bool

	key    string
	hasKey bool
	keys   typeutil.Set[string]

	buf    *bytebuffer.ByteBuffer
	parent *wire.Writer
	elem   Kind
	count  int
}

// Writer 是按结构逐步驱动的 NBT 文档编码器。
//
// 调用顺序与值的嵌套结构一致：
//
//	w := nbt.NewWriter("")
//	w.Key("a")
//	w.Int(42)
//	w.Key("b")
//	w.BeginList()
//	w.Short(1)
//	w.Short(2)
//	w.EndList()
//	w.Close()
//
// Compound 以 End 结尾，可以直接流式写出；List 需要前置元素种类与个数，
// 因此元素 body 先写入临时缓冲区，EndList 时再连同长度一起写回父容器。
// List 的元素种类由第一个元素决定，之后种类不同的元素返回 ErrUnrepresentableValue；
// 空列表的元素种类为 End。
//
// 错误是粘滞的：第一次出错后所有方法都返回同一个错误，Bytes 返回 nil。
// Writer 不能并发使用。
type Writer struct {
	opts   *options
	root   *bytebuffer.ByteBuffer
	frames []*frame
	err    error
	closed bool
}

// NewWriter 创建一个写入根名为 rootName 的文档的 Writer，根 Compound 已经处于打开状态。
func NewWriter(rootName string, opts ...Option) *Writer {
	return newWriter(rootName, buildOptions(opts))
}

func newWriter(rootName string, o *options) *Writer {
	w := &Writer{opts: o, root: bytebuffer.Get()}
	out := wire.NewWriter(w.root)
	out.WriteKind(tag.Compound)
	if err := out.WriteString(rootName); err != nil {
		w.err = errors.Wrap(err, "nbt: root name")
	}
	w.frames = append(w.frames, &frame{kind: compoundFrame, out: out})
	return w
}

func (w *Writer) top() *frame {
	return w.frames[len(w.frames)-1]
}

func (w *Writer) path() fieldPath {
	p := make(fieldPath, 0, len(w.frames))
	for _, f := range w.frames[1:] {
		p = append(p, f.seg)
	}
	if top := w.top(); top.hasCur {
		p = append(p, top.cur)
	}
	return p
}

// nextPath 返回下一个将要写入的值的路径。
func (w *Writer) nextPath() fieldPath {
	p := make(fieldPath, 0, len(w.frames))
	for _, f := range w.frames[1:] {
		p = append(p, f.seg)
	}
	switch top := w.top(); {
	case top.kind == listFrame:
		p = append(p, indexSeg(top.count))
	case top.hasKey:
		p = append(p, keySeg(top.key))
	}
	return p
}

func (w *Writer) fail(err error) error {
	if w.err == nil {
		w.err = err
	}
	return w.err
}

// Err 返回第一次出现的错误。
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) usable() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return w.fail(merr.WrapErrInvalidArgument("writer is closed"))
	}
	return nil
}

// Key 设置当前 Compound 中下一个值的键。
func (w *Writer) Key(name string) error {
	if err := w.usable(); err != nil {
		return err
	}
	f := w.top()
	if f.kind != compoundFrame {
		return w.fail(merr.WrapErrInvalidArgument("key written inside a list", w.path().String()))
	}
	if f.hasKey {
		return w.fail(merr.WrapErrInvalidArgument(fmt.Sprintf("key %q has no value", f.key), w.path().String()))
	}
	if f.keys == nil {
		f.keys = make(typeutil.Set[string])
	}
	if !f.keys.TryInsert(name) {
		f.cur, f.hasCur = keySeg(name), true
		return w.fail(merr.WrapErrDuplicateKey(w.path().String(), name))
	}
	f.key, f.hasKey = name, true
	f.cur, f.hasCur = keySeg(name), true
	return nil
}

// begin 为即将写入的种类为 k 的值输出所在容器要求的前缀，并返回写 body 的 wire.Writer。
func (w *Writer) begin(k Kind) (*wire.Writer, error) {
	if err := w.usable(); err != nil {
		return nil, err
	}
	f := w.top()
	switch f.kind {
	case compoundFrame:
		if !f.hasKey {
			return nil, w.fail(merr.WrapErrInvalidArgument("value written without a key", w.path().String()))
		}
		f.hasKey = false
		f.out.WriteKind(k)
		if err := f.out.WriteString(f.key); err != nil {
			return nil, w.fail(w.wrapPath(err))
		}
	case listFrame:
		f.cur, f.hasCur = indexSeg(f.count), true
		if f.count == 0 && f.elem == tag.End {
			f.elem = k
		} else if k != f.elem {
			return nil, w.fail(merr.WrapErrUnrepresentableValue(w.path().String(),
				fmt.Sprintf("list element kind %s differs from %s", k, f.elem)))
		}
		f.count++
	}
	return f.out, nil
}

func (w *Writer) wrapPath(err error) error {
	return errors.Wrapf(err, "nbt: encoding %s", pathOrRoot(w.path().String()))
}

func (w *Writer) checkDepth() error {
	if len(w.frames)+1 > w.opts.maxDepth {
		return w.fail(merr.WrapErrNestingTooDeep(w.path().String(), w.opts.maxDepth))
	}
	return nil
}

// BeginCompound 打开一个嵌套的 Compound。
func (w *Writer) BeginCompound() error {
	if err := w.usable(); err != nil {
		return err
	}
	if err := w.checkDepth(); err != nil {
		return err
	}
	out, err := w.begin(tag.Compound)
	if err != nil {
		return err
	}
	parent := w.top()
	w.frames = append(w.frames, &frame{kind: compoundFrame, out: out, seg: parent.cur})
	return nil
}

// EndCompound 关闭最近一次 BeginCompound 打开的 Compound。
func (w *Writer) EndCompound() error {
	if err := w.usable(); err != nil {
		return err
	}
	f := w.top()
	if len(w.frames) == 1 || f.kind != compoundFrame {
		return w.fail(merr.WrapErrInvalidArgument("EndCompound without matching BeginCompound"))
	}
	if f.hasKey {
		return w.fail(merr.WrapErrInvalidArgument(fmt.Sprintf("key %q has no value", f.key), w.path().String()))
	}
	f.out.WriteKind(tag.End)
	w.frames = w.frames[:len(w.frames)-1]
	return nil
}

// BeginList 打开一个嵌套的 List，元素种类由第一个元素决定。
func (w *Writer) BeginList() error {
	if err := w.usable(); err != nil {
		return err
	}
	if err := w.checkDepth(); err != nil {
		return err
	}
	out, err := w.begin(tag.List)
	if err != nil {
		return err
	}
	parent := w.top()
	buf := bytebuffer.Get()
	w.frames = append(w.frames, &frame{
		kind:   listFrame,
		out:    wire.NewWriter(buf),
		seg:    parent.cur,
		buf:    buf,
		parent: out,
		elem:   tag.End,
	})
	return nil
}

// EndList 关闭最近一次 BeginList 打开的 List，写出元素种类、个数与缓存的元素 body。
func (w *Writer) EndList() error {
	if err := w.usable(); err != nil {
		return err
	}
	f := w.top()
	if f.kind != listFrame {
		return w.fail(merr.WrapErrInvalidArgument("EndList without matching BeginList"))
	}
	f.parent.WriteKind(f.elem)
	if err := f.parent.WriteLength(f.count); err != nil {
		return w.fail(w.wrapPath(err))
	}
	f.parent.WriteRaw(f.buf.B)
	bytebuffer.Put(f.buf)
	f.buf = nil
	w.frames = w.frames[:len(w.frames)-1]
	return nil
}

func (w *Writer) Byte(v int8) error {
	out, err := w.begin(tag.Byte)
	if err != nil {
		return err
	}
	out.WriteInt8(v)
	return nil
}

func (w *Writer) Short(v int16) error {
	out, err := w.begin(tag.Short)
	if err != nil {
		return err
	}
	out.WriteInt16(v)
	return nil
}

func (w *Writer) Int(v int32) error {
	out, err := w.begin(tag.Int)
	if err != nil {
		return err
	}
	out.WriteInt32(v)
	return nil
}

func (w *Writer) Long(v int64) error {
	out, err := w.begin(tag.Long)
	if err != nil {
		return err
	}
	out.WriteInt64(v)
	return nil
}

func (w *Writer) Float(v float32) error {
	out, err := w.begin(tag.Float)
	if err != nil {
		return err
	}
	out.WriteFloat32(v)
	return nil
}

func (w *Writer) Double(v float64) error {
	out, err := w.begin(tag.Double)
	if err != nil {
		return err
	}
	out.WriteFloat64(v)
	return nil
}

func (w *Writer) String(v string) error {
	out, err := w.begin(tag.String)
	if err != nil {
		return err
	}
	if err := out.WriteString(v); err != nil {
		return w.fail(w.wrapPath(err))
	}
	return nil
}

func (w *Writer) ByteArray(v []int8) error {
	out, err := w.begin(tag.ByteArray)
	if err != nil {
		return err
	}
	if err := out.WriteByteArray(v); err != nil {
		return w.fail(w.wrapPath(err))
	}
	return nil
}

// RawByteArray 以 ByteArray 写出原始字节。
func (w *Writer) RawByteArray(v []byte) error {
	out, err := w.begin(tag.ByteArray)
	if err != nil {
		return err
	}
	if err := out.WriteRawBytes(v); err != nil {
		return w.fail(w.wrapPath(err))
	}
	return nil
}

func (w *Writer) IntArray(v []int32) error {
	out, err := w.begin(tag.IntArray)
	if err != nil {
		return err
	}
	if err := out.WriteIntArray(v); err != nil {
		return w.fail(w.wrapPath(err))
	}
	return nil
}

func (w *Writer) LongArray(v []int64) error {
	out, err := w.begin(tag.LongArray)
	if err != nil {
		return err
	}
	if err := out.WriteLongArray(v); err != nil {
		return w.fail(w.wrapPath(err))
	}
	return nil
}

// Value 写出一整棵值树。
func (w *Writer) Value(v Value) error {
	if err := w.usable(); err != nil {
		return err
	}
	if v == nil {
		return w.fail(merr.WrapErrUnrepresentableValue(w.path().String(), "nil value"))
	}
	out, err := w.begin(v.Kind())
	if err != nil {
		return err
	}
	if err := writeTree(out, v, len(w.frames)+1, w.opts.maxDepth, w.path()); err != nil {
		return w.fail(err)
	}
	return nil
}

// Entries 将 c 的所有键值对写入当前 Compound。
func (w *Writer) Entries(c *Compound) error {
	var err error
	c.Range(func(key string, v Value) bool {
		if err = w.Key(key); err != nil {
			return false
		}
		err = w.Value(v)
		return err == nil
	})
	return err
}

// Close 结束根 Compound。所有嵌套的 Compound 与 List 必须已经关闭。
func (w *Writer) Close() error {
	if err := w.usable(); err != nil {
		return err
	}
	if len(w.frames) != 1 {
		return w.fail(merr.WrapErrInvalidArgument("unclosed compound or list", w.path().String()))
	}
	f := w.top()
	if f.hasKey {
		return w.fail(merr.WrapErrInvalidArgument(fmt.Sprintf("key %q has no value", f.key)))
	}
	f.out.WriteKind(tag.End)
	w.closed = true
	return nil
}

// Bytes 返回编码结果。只有成功 Close 之后才返回非 nil；结果在 Release 之前有效。
func (w *Writer) Bytes() []byte {
	if w.err != nil || !w.closed || w.root == nil {
		return nil
	}
	return w.root.Bytes()
}

// WriteTo 将编码结果写入 dst，实现 io.WriterTo。
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	if w.err != nil {
		return 0, w.err
	}
	if !w.closed {
		return 0, merr.WrapErrInvalidArgument("writer is not closed")
	}
	n, err := dst.Write(w.root.Bytes())
	if err != nil {
		return int64(n), merr.WrapErrIoFailed("write", err)
	}
	return int64(n), nil
}

// Release 将内部缓冲区归还到池中，之后不得再使用 Writer 或 Bytes 的返回值。
func (w *Writer) Release() {
	for _, f := range w.frames {
		if f.buf != nil {
			bytebuffer.Put(f.buf)
			f.buf = nil
		}
	}
	if w.root != nil {
		bytebuffer.Put(w.root)
		w.root = nil
	}
	if w.err == nil && !w.closed {
		w.err = merr.WrapErrInvalidArgument("writer is released")
	}
}

// writeTree 写出 v 的 body。depth 为 v 自身所在的嵌套深度。
func writeTree(out *wire.Writer, v Value, depth, maxDepth int, p fieldPath) error {
	wrap := func(err error) error {
		return errors.Wrapf(err, "nbt: encoding %s", pathOrRoot(p.String()))
	}
	switch v := v.(type) {
	case Byte:
		out.WriteInt8(int8(v))
	case Short:
		out.WriteInt16(int16(v))
	case Int:
		out.WriteInt32(int32(v))
	case Long:
		out.WriteInt64(int64(v))
	case Float:
		out.WriteFloat32(float32(v))
	case Double:
		out.WriteFloat64(float64(v))
	case String:
		if err := out.WriteString(string(v)); err != nil {
			return wrap(err)
		}
	case ByteArray:
		if err := out.WriteByteArray(v); err != nil {
			return wrap(err)
		}
	case IntArray:
		if err := out.WriteIntArray(v); err != nil {
			return wrap(err)
		}
	case LongArray:
		if err := out.WriteLongArray(v); err != nil {
			return wrap(err)
		}
	case *List:
		if depth > maxDepth {
			return merr.WrapErrNestingTooDeep(p.String(), maxDepth)
		}
		if v == nil {
			return merr.WrapErrUnrepresentableValue(p.String(), "nil list")
		}
		out.WriteKind(v.elem)
		if err := out.WriteLength(len(v.values)); err != nil {
			return wrap(err)
		}
		for i, x := range v.values {
			cp := append(p, indexSeg(i))
			if x == nil || x.Kind() != v.elem {
				return merr.WrapErrUnrepresentableValue(cp.String(), "list element does not match the list kind")
			}
			if err := writeTree(out, x, depth+1, maxDepth, cp); err != nil {
				return err
			}
		}
	case *Compound:
		if depth > maxDepth {
			return merr.WrapErrNestingTooDeep(p.String(), maxDepth)
		}
		if v == nil {
			return merr.WrapErrUnrepresentableValue(p.String(), "nil compound")
		}
		for _, k := range v.keys {
			x := v.entries[k]
			cp := append(p, keySeg(k))
			if x == nil {
				return merr.WrapErrUnrepresentableValue(cp.String(), "nil value")
			}
			out.WriteKind(x.Kind())
			if err := out.WriteString(k); err != nil {
				return wrap(err)
			}
			if err := writeTree(out, x, depth+1, maxDepth, cp); err != nil {
				return err
			}
		}
		out.WriteKind(tag.End)
	default:
		return merr.WrapErrUnrepresentableValue(p.String(), fmt.Sprintf("unsupported value type %T", v))
	}
	return nil
}
