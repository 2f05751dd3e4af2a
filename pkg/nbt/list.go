package nbt

import (
	"fmt"

	"github.com/lk2023060901/nbt-go/pkg/nbt/tag"
	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

// List 是同构列表：所有元素的种类相同。空列表的元素种类可以是任意值，默认 End。
type List struct {
	elem   Kind
	values []Value
}

// NewList 用给定元素创建列表，元素种类不一致时返回 ErrUnrepresentableValue。
func NewList(values ...Value) (*List, error) {
	l := &List{elem: tag.End, values: make([]Value, 0, len(values))}
	for _, v := range values {
		if err := l.Append(v); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// MustList 与 NewList 相同，出错时 panic，主要用于测试与常量构造。
func MustList(values ...Value) *List {
	l, err := NewList(values...)
	if err != nil {
		panic(err)
	}
	return l
}

// EmptyList 创建一个元素种类为 elem 的空列表。
func EmptyList(elem Kind) *List {
	return &List{elem: elem}
}

func (*List) Kind() Kind { return tag.List }
func (*List) isValue()   {}

// ElemKind 返回元素种类。
func (l *List) ElemKind() Kind {
	return l.elem
}

// Len 返回元素个数。
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.values)
}

// At 返回第 i 个元素。
func (l *List) At(i int) Value {
	return l.values[i]
}

// Values 返回元素切片，调用方不得修改。
func (l *List) Values() []Value {
	return l.values
}

// Append 追加一个元素。第一个元素决定空 End 列表的元素种类，之后的元素必须与之相同。
func (l *List) Append(v Value) error {
	if v == nil {
		return merr.WrapErrUnrepresentableValue(fmt.Sprintf("[%d]", len(l.values)), "nil list element")
	}
	k := v.Kind()
	switch {
	case len(l.values) == 0 && l.elem == tag.End:
		l.elem = k
	case k != l.elem:
		return merr.WrapErrUnrepresentableValue(fmt.Sprintf("[%d]", len(l.values)),
			fmt.Sprintf("list element kind %s differs from %s", k, l.elem))
	}
	l.values = append(l.values, v)
	return nil
}
