package nbt

import (
	"strconv"
	"strings"
)

// pathSeg 是值在其父容器中的位置：Compound 中的键，或 List 中的下标。
type pathSeg struct {
	key   string
	index int
}

func keySeg(key string) pathSeg {
	return pathSeg{key: key, index: -1}
}

func indexSeg(i int) pathSeg {
	return pathSeg{index: i}
}

// fieldPath 只在出错时才格式化成字符串，正常路径上不产生分配。
type fieldPath []pathSeg

func (p fieldPath) String() string {
	var sb strings.Builder
	for _, seg := range p {
		if seg.index >= 0 {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(seg.index))
			sb.WriteByte(']')
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(seg.key)
	}
	return sb.String()
}
