package log

import (
	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldCompression 返回压缩格式字段。
func FieldCompression(kind string) zap.Field {
	return zap.String("compression", kind)
}

// FieldBytes 返回负载字节数字段。
func FieldBytes(n int) zap.Field {
	return zap.Int("bytes", n)
}

// FieldRootName 返回根名字段。
func FieldRootName(name string) zap.Field {
	return zap.String("rootName", name)
}

// FieldIndex 返回批处理序号字段。
func FieldIndex(i int) zap.Field {
	return zap.Int("index", i)
}
