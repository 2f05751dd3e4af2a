// Package tag 定义 NBT 的标签种类及其在线格式中的数值 id。
package tag

import (
	"fmt"

	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

// Kind 表示一个 NBT 标签种类，取值即线格式中的 tag id。
type Kind uint8

const (
	End       Kind = 0  // 仅作为 Compound 结束标记，或空 List 的元素种类
	Byte      Kind = 1  // int8
	Short     Kind = 2  // int16
	Int       Kind = 3  // int32
	Long      Kind = 4  // int64
	Float     Kind = 5  // float32
	Double    Kind = 6  // float64
	ByteArray Kind = 7  // 长度前缀的 int8 数组
	String    Kind = 8  // 长度前缀的 modified UTF-8 字符串
	List      Kind = 9  // 同构列表
	Compound  Kind = 10 // 以 End 结尾的具名字段集合
	IntArray  Kind = 11 // 长度前缀的 int32 数组
	LongArray Kind = 12 // 长度前缀的 int64 数组

	maxKind = LongArray
)

var kindNames = [...]string{
	End:       "End",
	Byte:      "Byte",
	Short:     "Short",
	Int:       "Int",
	Long:      "Long",
	Float:     "Float",
	Double:    "Double",
	ByteArray: "ByteArray",
	String:    "String",
	List:      "List",
	Compound:  "Compound",
	IntArray:  "IntArray",
	LongArray: "LongArray",
}

// minBodySizes 为各种类 body 在线格式中的最小字节数。
// 读取 List/数组长度时据此判断剩余输入是否可能容纳声明的元素数。
var minBodySizes = [...]int{
	End:       0,
	Byte:      1,
	Short:     2,
	Int:       4,
	Long:      8,
	Float:     4,
	Double:    8,
	ByteArray: 4,
	String:    2,
	List:      5,
	Compound:  1,
	IntArray:  4,
	LongArray: 4,
}

// ID 返回该种类在线格式中的 tag id。
func (k Kind) ID() byte {
	return byte(k)
}

// Valid 判断 k 是否为已定义的种类。
func (k Kind) Valid() bool {
	return k <= maxKind
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// MinBodySize 返回该种类 body 的最小字节数，未知种类返回 0。
func (k Kind) MinBodySize() int {
	if !k.Valid() {
		return 0
	}
	return minBodySizes[k]
}

// IsContainer 判断该种类是否会增加嵌套深度。
func (k Kind) IsContainer() bool {
	return k == List || k == Compound
}

// FromID 将线格式中的 tag id 转换为 Kind，未知 id 返回 ErrUnknownTagID。
func FromID(id byte) (Kind, error) {
	k := Kind(id)
	if !k.Valid() {
		return End, merr.WrapErrUnknownTagIDValue(id)
	}
	return k, nil
}
