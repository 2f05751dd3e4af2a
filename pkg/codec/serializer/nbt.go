package serializer

import (
	"bytes"

	"github.com/lk2023060901/nbt-go/pkg/nbt"
)

// NBTSerializer 使用 pkg/nbt 的数据模型适配层实现 NBT 二进制编解码。
//
// Marshal 的对象必须映射为 Compound（结构体、map[string]T、*nbt.Compound 等），
// 输出是带根名 RootName 的完整文档。
type NBTSerializer struct {
	RootName string
	Options  []nbt.Option
}

// 编译期断言：确保 NBTSerializer 实现了 Serializer 接口。
var _ Serializer = (*NBTSerializer)(nil)

// NewNBTSerializer 创建一个使用给定根名与选项的 NBTSerializer。
func NewNBTSerializer(rootName string, opts ...nbt.Option) *NBTSerializer {
	return &NBTSerializer{RootName: rootName, Options: opts}
}

func (s *NBTSerializer) Marshal(v any) ([]byte, error) {
	if doc, ok := v.(*nbt.Document); ok {
		var buf bytes.Buffer
		if err := nbt.WriteDocument(&buf, doc, s.Options...); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nbt.MarshalNamed(s.RootName, v, s.Options...)
}

// Unmarshal 解码 data 到 v；v 为 *nbt.Document 时保留根名。
func (s *NBTSerializer) Unmarshal(data []byte, v any) error {
	return nbt.Unmarshal(data, v, s.Options...)
}
