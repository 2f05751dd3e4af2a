// Package bytebuffer 提供可复用的字节缓冲区池，降低编码过程中频繁 make 带来的分配与 GC 压力。
package bytebuffer

import (
	"github.com/valyala/bytebufferpool"
)

// maxPooledSize 以上的缓冲区不放回池中，避免个别超大文档长期占用内存。
const maxPooledSize = 1 << 20

// ByteBuffer 是一个只追加的字节缓冲区，B 可以直接 append。
type ByteBuffer = bytebufferpool.ByteBuffer

var pool bytebufferpool.Pool

// Get 从池中取出一个已清空的缓冲区。
func Get() *ByteBuffer {
	return pool.Get()
}

// Put 将缓冲区归还到池中，归还后调用方不得再使用 b。
func Put(b *ByteBuffer) {
	if b == nil || cap(b.B) > maxPooledSize {
		return
	}
	pool.Put(b)
}

// Clone 返回 b 内容的独立副本，便于在 Put 之后继续持有结果。
func Clone(b *ByteBuffer) []byte {
	out := make([]byte, len(b.B))
	copy(out, b.B)
	return out
}
