// Package nbt 实现 Minecraft Named Binary Tag（NBT）二进制格式的编解码。
//
// 包内提供三层能力：
//   - 值树：Value 及其具体类型（Byte、Int、*List、*Compound 等），可脱离用户类型独立使用；
//   - 文档读写：ReadDocument / WriteDocument 以及增量式的 Writer；
//   - 数据模型适配：Marshal / Unmarshal 通过反射把任意 Go 值映射到 NBT 标签。
//
// Go 类型与标签的对应关系：
//
//	bool                      Byte（0/1，解码时非 0 即 true）
//	int8/int16/int32/int64    Byte/Short/Int/Long
//	int                       Int（超出 int32 范围报错）
//	uint8/16/32/64, uint      按 UnsignedPolicy 映射到同宽度的有符号标签
//	float32/float64           Float/Double
//	string, TextMarshaler     String
//	[]byte                    ByteArray
//	ByteArray/IntArray/LongArray 对应的数组标签
//	[]T, [N]T                 List（字段标签 bytearray/intarray/longarray 改为数组标签）
//	struct, map[string]T      Compound
//	*T                        T；结构体字段为 nil 指针时省略
//	any, Value                值的动态种类
//
// 结构体字段通过 `nbt:"name,omitempty,intarray"` 形式的标签控制名称与映射，`nbt:"-"` 表示忽略。
//
// 所有入口都是同步、无全局可变状态的，可以在多个 goroutine 中并发调用。
package nbt
