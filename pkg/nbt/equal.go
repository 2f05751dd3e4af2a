package nbt

import (
	"math"
	"slices"
)

// Equal 判断两个值是否结构相等。
//
// Compound 比较时忽略键的顺序，List 与数组按顺序比较；
// 浮点数按位比较，因此相同载荷的 NaN 视为相等，+0 与 -0 不相等。
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case Float:
		return math.Float32bits(float32(a)) == math.Float32bits(float32(b.(Float)))
	case Double:
		return math.Float64bits(float64(a)) == math.Float64bits(float64(b.(Double)))
	case ByteArray:
		return slices.Equal(a, b.(ByteArray))
	case IntArray:
		return slices.Equal(a, b.(IntArray))
	case LongArray:
		return slices.Equal(a, b.(LongArray))
	case *List:
		return listEqual(a, b.(*List))
	case *Compound:
		return compoundEqual(a, b.(*Compound))
	default:
		return a == b
	}
}

func listEqual(a, b *List) bool {
	if a.Len() != b.Len() {
		return false
	}
	// 空列表的元素种类在线格式之外没有意义，不参与比较。
	if a.Len() > 0 && a.elem != b.elem {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if !Equal(a.values[i], b.values[i]) {
			return false
		}
	}
	return true
}

func compoundEqual(a, b *Compound) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, k := range a.Keys() {
		bv, ok := b.Get(k)
		if !ok {
			return false
		}
		av, _ := a.Get(k)
		if !Equal(av, bv) {
			return false
		}
	}
	return true
}
