package nbt

import "github.com/lk2023060901/nbt-go/pkg/nbt/tag"

// Kind 是 tag.Kind 的别名，方便调用方只引入 nbt 包。
type Kind = tag.Kind

const (
	KindEnd       = tag.End
	KindByte      = tag.Byte
	KindShort     = tag.Short
	KindInt       = tag.Int
	KindLong      = tag.Long
	KindFloat     = tag.Float
	KindDouble    = tag.Double
	KindByteArray = tag.ByteArray
	KindString    = tag.String
	KindList      = tag.List
	KindCompound  = tag.Compound
	KindIntArray  = tag.IntArray
	KindLongArray = tag.LongArray
)
