package nbt

import (
	"fmt"

	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

// DefaultMaxDepth 是默认允许的最大嵌套深度，与 Minecraft 自身的限制一致。
const DefaultMaxDepth = 512

// UnsignedPolicy 决定无符号整数如何映射到 NBT 的有符号标签。
type UnsignedPolicy int

const (
	// UnsignedChecked 要求值落在同宽度有符号类型的范围内，否则编码报错；
	// 解码时负数无法放入无符号目标，同样报错。
	UnsignedChecked UnsignedPolicy = iota
	// UnsignedReinterpret 按二进制补码原样重解释，编码与解码互为逆操作。
	UnsignedReinterpret
)

func (p UnsignedPolicy) String() string {
	switch p {
	case UnsignedChecked:
		return "checked"
	case UnsignedReinterpret:
		return "reinterpret"
	default:
		return fmt.Sprintf("UnsignedPolicy(%d)", int(p))
	}
}

// ParseUnsignedPolicy 解析配置中的策略名称。
func ParseUnsignedPolicy(s string) (UnsignedPolicy, error) {
	switch s {
	case "", "checked":
		return UnsignedChecked, nil
	case "reinterpret":
		return UnsignedReinterpret, nil
	default:
		return UnsignedChecked, merr.WrapErrInvalidArgument(fmt.Sprintf("unknown unsigned policy %q", s))
	}
}

type options struct {
	maxDepth       int
	strictKeys     bool
	allowEmpty     bool
	unsignedPolicy UnsignedPolicy
}

// Option 用于调整编解码行为的选项函数。
type Option func(opt *options)

func defaultOptions() *options {
	return &options{
		maxDepth:       DefaultMaxDepth,
		unsignedPolicy: UnsignedChecked,
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithMaxDepth 设置最大嵌套深度，n <= 0 时使用 DefaultMaxDepth。
func WithMaxDepth(n int) Option {
	return func(opt *options) {
		if n <= 0 {
			n = DefaultMaxDepth
		}
		opt.maxDepth = n
	}
}

// WithStrictDuplicateKeys 为 true 时，解码遇到重复的 Compound 键返回 ErrDuplicateKey，
// 默认行为是后写覆盖。
func WithStrictDuplicateKeys(v bool) Option {
	return func(opt *options) {
		opt.strictKeys = v
	}
}

// WithAllowEmptyDocument 为 true 时，空输入或仅有一个 End 字节的输入解码为空文档。
func WithAllowEmptyDocument(v bool) Option {
	return func(opt *options) {
		opt.allowEmpty = v
	}
}

// WithUnsignedPolicy 设置无符号整数的映射策略。
func WithUnsignedPolicy(p UnsignedPolicy) Option {
	return func(opt *options) {
		opt.unsignedPolicy = p
	}
}
