package serializer

// Serializer 抽象了“对象 <-> 字节流”的序列化能力。
//
// 调用方通过接口注入具体实现，codec 只关心字节，不关心具体格式。
type Serializer interface {
	// Marshal 将任意对象编码为字节序列。
	Marshal(v any) ([]byte, error)

	// Unmarshal 将字节序列解码到目标对象。
	//
	// v 通常为指针类型，用于接收解码结果。
	Unmarshal(data []byte, v any) error
}
