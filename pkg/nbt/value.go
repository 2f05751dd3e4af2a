package nbt

import "github.com/lk2023060901/nbt-go/pkg/nbt/tag"

// Value 是一个 NBT 值树节点。
//
// 可选实现是封闭的：Byte、Short、Int、Long、Float、Double、ByteArray、String、
// *List、*Compound、IntArray、LongArray。每个节点由其父容器独占，树中没有回指。
type Value interface {
	Kind() Kind
	isValue()
}

type (
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	String    string
	ByteArray []int8
	IntArray  []int32
	LongArray []int64
)

func (Byte) Kind() Kind      { return tag.Byte }
func (Short) Kind() Kind     { return tag.Short }
func (Int) Kind() Kind       { return tag.Int }
func (Long) Kind() Kind      { return tag.Long }
func (Float) Kind() Kind     { return tag.Float }
func (Double) Kind() Kind    { return tag.Double }
func (String) Kind() Kind    { return tag.String }
func (ByteArray) Kind() Kind { return tag.ByteArray }
func (IntArray) Kind() Kind  { return tag.IntArray }
func (LongArray) Kind() Kind { return tag.LongArray }

func (Byte) isValue()      {}
func (Short) isValue()     {}
func (Int) isValue()       {}
func (Long) isValue()      {}
func (Float) isValue()     {}
func (Double) isValue()    {}
func (String) isValue()    {}
func (ByteArray) isValue() {}
func (IntArray) isValue()  {}
func (LongArray) isValue() {}

// Bool 返回布尔值对应的 Byte（true 为 1）。
func Bool(b bool) Byte {
	if b {
		return 1
	}
	return 0
}

// Document 是一个完整的 NBT 文档：具名的根 Compound。
type Document struct {
	Name string
	Root *Compound
}

// NewDocument 创建一个根名为 name 的文档，root 为 nil 时使用空 Compound。
func NewDocument(name string, root *Compound) *Document {
	if root == nil {
		root = NewCompound()
	}
	return &Document{Name: name, Root: root}
}

// Equal 判断两个文档是否结构相等（根名也参与比较）。
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Name == other.Name && Equal(d.Root, other.Root)
}

// Clone 深拷贝一个值。
func Clone(v Value) Value {
	switch v := v.(type) {
	case ByteArray:
		return append(ByteArray(nil), v...)
	case IntArray:
		return append(IntArray(nil), v...)
	case LongArray:
		return append(LongArray(nil), v...)
	case *List:
		if v == nil {
			return v
		}
		out := &List{elem: v.elem, values: make([]Value, len(v.values))}
		for i, x := range v.values {
			out.values[i] = Clone(x)
		}
		return out
	case *Compound:
		if v == nil {
			return v
		}
		out := newCompoundCap(v.Len())
		for _, k := range v.keys {
			out.Set(k, Clone(v.entries[k]))
		}
		return out
	default:
		return v
	}
}
