package nbt

import (
	"github.com/lk2023060901/nbt-go/internal/wire"
	"github.com/lk2023060901/nbt-go/pkg/nbt/tag"
	"github.com/lk2023060901/nbt-go/pkg/util/merr"
	"github.com/lk2023060901/nbt-go/pkg/util/typeutil"
)

// ReadDocument 将 data 完整解析为一个文档。
//
// data 必须恰好包含一个文档：根 tag id 必须是 Compound，文档之后多余的字节返回 ErrTrailingData。
// 任何错误都会中止解析，不返回部分结果。
func ReadDocument(data []byte, opts ...Option) (*Document, error) {
	d := newDecoder(data, buildOptions(opts))
	doc, err := d.document()
	if err != nil {
		return nil, err
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return doc, nil
}

type decoder struct {
	r    *wire.Reader
	opts *options
}

func newDecoder(data []byte, o *options) *decoder {
	return &decoder{r: wire.NewReader(data), opts: o}
}

// finish 确认输入已经完全消耗。
func (d *decoder) finish() error {
	if n := d.r.Remaining(); n > 0 {
		return merr.WrapErrTrailingData(d.r.Offset(), n)
	}
	return nil
}

// header 读取根 tag id 与根名。empty 为 true 表示允许的空文档（空输入或单个 End 字节）。
func (d *decoder) header() (name string, empty bool, err error) {
	if d.r.Remaining() == 0 && d.opts.allowEmpty {
		return "", true, nil
	}
	k, err := d.r.ReadKind()
	if err != nil {
		return "", false, err
	}
	switch k {
	case tag.Compound:
	case tag.End:
		if d.opts.allowEmpty {
			return "", true, nil
		}
		return "", false, merr.WrapErrTypeMismatch("", tag.Compound, k, "empty document")
	default:
		return "", false, merr.WrapErrTypeMismatch("", tag.Compound, k, "root must be a compound")
	}
	name, err = d.r.ReadString()
	if err != nil {
		return "", false, err
	}
	return name, false, nil
}

func (d *decoder) document() (*Document, error) {
	name, empty, err := d.header()
	if err != nil {
		return nil, err
	}
	if empty {
		return NewDocument("", nil), nil
	}
	root, err := d.readCompound(1)
	if err != nil {
		return nil, err
	}
	return &Document{Name: name, Root: root}, nil
}

func (d *decoder) checkDepth(depth int) error {
	if depth > d.opts.maxDepth {
		return merr.WrapErrNestingTooDeepAt(d.r.Offset(), d.opts.maxDepth)
	}
	return nil
}

// readBody 读取种类为 k 的 body。depth 为该值所在的嵌套深度，根 Compound 为 1。
func (d *decoder) readBody(k Kind, depth int) (Value, error) {
	switch k {
	case tag.Byte:
		v, err := d.r.ReadInt8()
		return Byte(v), err
	case tag.Short:
		v, err := d.r.ReadInt16()
		return Short(v), err
	case tag.Int:
		v, err := d.r.ReadInt32()
		return Int(v), err
	case tag.Long:
		v, err := d.r.ReadInt64()
		return Long(v), err
	case tag.Float:
		v, err := d.r.ReadFloat32()
		return Float(v), err
	case tag.Double:
		v, err := d.r.ReadFloat64()
		return Double(v), err
	case tag.String:
		v, err := d.r.ReadString()
		return String(v), err
	case tag.ByteArray:
		return d.readByteArray()
	case tag.IntArray:
		return d.readIntArray()
	case tag.LongArray:
		return d.readLongArray()
	case tag.List:
		return d.readList(depth)
	case tag.Compound:
		return d.readCompound(depth)
	default:
		return nil, merr.WrapErrUnknownTagID(d.r.Offset(), k.ID())
	}
}

func (d *decoder) readByteArray() (ByteArray, error) {
	n, err := d.r.ReadLength(tag.Byte)
	if err != nil {
		return nil, err
	}
	raw, err := d.r.ReadRaw(n)
	if err != nil {
		return nil, err
	}
	out := make(ByteArray, n)
	for i, b := range raw {
		out[i] = int8(b)
	}
	return out, nil
}

func (d *decoder) readIntArray() (IntArray, error) {
	n, err := d.r.ReadLength(tag.Int)
	if err != nil {
		return nil, err
	}
	out := make(IntArray, n)
	for i := range out {
		if out[i], err = d.r.ReadInt32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) readLongArray() (LongArray, error) {
	n, err := d.r.ReadLength(tag.Long)
	if err != nil {
		return nil, err
	}
	out := make(LongArray, n)
	for i := range out {
		if out[i], err = d.r.ReadInt64(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) readList(depth int) (*List, error) {
	if err := d.checkDepth(depth); err != nil {
		return nil, err
	}
	elem, err := d.r.ReadKind()
	if err != nil {
		return nil, err
	}
	n, err := d.r.ReadLength(elem)
	if err != nil {
		return nil, err
	}
	l := &List{elem: elem, values: make([]Value, n)}
	for i := range l.values {
		if l.values[i], err = d.readBody(elem, depth+1); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (d *decoder) readCompound(depth int) (*Compound, error) {
	if err := d.checkDepth(depth); err != nil {
		return nil, err
	}
	c := NewCompound()
	for {
		start := d.r.Offset()
		k, err := d.r.ReadKind()
		if err != nil {
			return nil, err
		}
		if k == tag.End {
			return c, nil
		}
		key, err := d.r.ReadString()
		if err != nil {
			return nil, err
		}
		if d.opts.strictKeys && c.Has(key) {
			return nil, merr.WrapErrDuplicateKeyAt(start, key)
		}
		v, err := d.readBody(k, depth+1)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
	}
}

// skipBody 跳过种类为 k 的 body，不分配值，但做与 readBody 相同的校验。
func (d *decoder) skipBody(k Kind, depth int) error {
	switch k {
	case tag.String:
		return d.r.SkipString()
	case tag.ByteArray, tag.IntArray, tag.LongArray:
		elem := arrayElem(k)
		n, err := d.r.ReadLength(elem)
		if err != nil {
			return err
		}
		return d.r.Skip(n * elem.MinBodySize())
	case tag.List:
		if err := d.checkDepth(depth); err != nil {
			return err
		}
		elem, err := d.r.ReadKind()
		if err != nil {
			return err
		}
		n, err := d.r.ReadLength(elem)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := d.skipBody(elem, depth+1); err != nil {
				return err
			}
		}
		return nil
	case tag.Compound:
		if err := d.checkDepth(depth); err != nil {
			return err
		}
		var seen typeutil.Set[string]
		if d.opts.strictKeys {
			seen = typeutil.NewSet[string]()
		}
		for {
			start := d.r.Offset()
			ek, err := d.r.ReadKind()
			if err != nil {
				return err
			}
			if ek == tag.End {
				return nil
			}
			if seen == nil {
				if err := d.r.SkipString(); err != nil {
					return err
				}
			} else {
				key, err := d.r.ReadString()
				if err != nil {
					return err
				}
				if !seen.TryInsert(key) {
					return merr.WrapErrDuplicateKeyAt(start, key)
				}
			}
			if err := d.skipBody(ek, depth+1); err != nil {
				return err
			}
		}
	default:
		if k == tag.End || !k.Valid() {
			return merr.WrapErrUnknownTagID(d.r.Offset(), k.ID())
		}
		return d.r.Skip(k.MinBodySize())
	}
}

// arrayElem 返回数组种类的元素种类。
func arrayElem(k Kind) Kind {
	switch k {
	case tag.ByteArray:
		return tag.Byte
	case tag.IntArray:
		return tag.Int
	case tag.LongArray:
		return tag.Long
	default:
		return tag.End
	}
}
