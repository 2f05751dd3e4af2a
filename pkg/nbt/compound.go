package nbt

import (
	"github.com/samber/lo"

	"github.com/lk2023060901/nbt-go/pkg/nbt/tag"
)

// Compound 是以字符串为键的有序映射。
//
// 键唯一；迭代顺序为首次插入的顺序，保证重复编码得到相同字节。
// 相等性比较不关心顺序，见 Equal。
type Compound struct {
	keys    []string
	entries map[string]Value
}

// NewCompound 创建一个空 Compound。
func NewCompound() *Compound {
	return newCompoundCap(0)
}

func newCompoundCap(n int) *Compound {
	return &Compound{
		keys:    make([]string, 0, n),
		entries: make(map[string]Value, n),
	}
}

// CompoundOf 依次 Set 给定的键值对。
func CompoundOf(entries ...lo.Entry[string, Value]) *Compound {
	c := newCompoundCap(len(entries))
	for _, e := range entries {
		c.Set(e.Key, e.Value)
	}
	return c
}

// Entry 构造一个 CompoundOf 使用的键值对。
func Entry(key string, v Value) lo.Entry[string, Value] {
	return lo.Entry[string, Value]{Key: key, Value: v}
}

func (*Compound) Kind() Kind { return tag.Compound }
func (*Compound) isValue()   {}

// Len 返回键的个数。
func (c *Compound) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Set 设置 key 对应的值。已存在的键保留原位置，只替换值（后写覆盖）。
// 返回值表示 key 此前是否存在。
func (c *Compound) Set(key string, v Value) bool {
	if c.entries == nil {
		c.entries = make(map[string]Value)
	}
	if _, ok := c.entries[key]; ok {
		c.entries[key] = v
		return true
	}
	c.keys = append(c.keys, key)
	c.entries[key] = v
	return false
}

// Get 返回 key 对应的值。
func (c *Compound) Get(key string) (Value, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.entries[key]
	return v, ok
}

// Has 判断 key 是否存在。
func (c *Compound) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete 删除 key，返回其是否存在。
func (c *Compound) Delete(key string) bool {
	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	c.keys = lo.Without(c.keys, key)
	return true
}

// Keys 按插入顺序返回所有键的副本。
func (c *Compound) Keys() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.keys...)
}

// Range 按插入顺序遍历，fn 返回 false 时停止。
func (c *Compound) Range(fn func(key string, v Value) bool) {
	if c == nil {
		return
	}
	for _, k := range c.keys {
		if !fn(k, c.entries[k]) {
			return
		}
	}
}

// Get 返回 key 对应且类型为 T 的值，键不存在或类型不符时 ok 为 false。
//
//	n, ok := nbt.Get[nbt.Int](root, "DataVersion")
func Get[T Value](c *Compound, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
