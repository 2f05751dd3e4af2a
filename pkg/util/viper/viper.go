package viper

import (
	"io"
	"path/filepath"
	"strings"

	spfviper "github.com/spf13/viper"
)

// Config 封装 spf13/viper 实例，提供 YAML/JSON 配置加载、默认值与环境变量覆盖。
type Config struct {
	v *spfviper.Viper
}

// Option 为 Config 的构造选项。
type Option func(v *spfviper.Viper)

// WithEnvPrefix 开启环境变量覆盖：键 a.b-c 对应环境变量 PREFIX_A_B_C。
func WithEnvPrefix(prefix string) Option {
	return func(v *spfviper.Viper) {
		v.SetEnvPrefix(prefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()
	}
}

// WithDefaults 批量设置默认值，键不区分大小写。
func WithDefaults(defaults map[string]any) Option {
	return func(v *spfviper.Viper) {
		for key, value := range defaults {
			v.SetDefault(key, value)
		}
	}
}

// New 创建一个 Config。未加载文件时，Unmarshal 只反映默认值与环境变量。
func New(opts ...Option) *Config {
	v := spfviper.New()
	for _, opt := range opts {
		opt(v)
	}
	return &Config{v: v}
}

// LoadFile 将 YAML 或 JSON 配置文件加载到 Config 中。
// 文件类型通过扩展名（.yaml/.yml/.json）推断。
func (c *Config) LoadFile(path string) error {
	c.v.SetConfigFile(path)

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		c.v.SetConfigType("yaml")
	case ".json":
		c.v.SetConfigType("json")
	default:
		// 让 viper 自行推断类型，或在读取时返回清晰的错误信息。
	}

	return c.v.ReadInConfig()
}

// Load 从 r 读取 configType（yaml/json）格式的配置。
func (c *Config) Load(r io.Reader, configType string) error {
	c.v.SetConfigType(configType)
	return c.v.ReadConfig(r)
}

// SetDefault 设置单个键的默认值。
func (c *Config) SetDefault(key string, value any) {
	c.v.SetDefault(key, value)
}

// Set 覆盖单个键的值，优先级高于文件与环境变量。
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// GetString 返回键对应的字符串值。
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// IsSet 判断键是否在任一来源中被设置。
func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

// Unmarshal 将完整配置反序列化到 dst。
// dst 应为结构体或 map 的指针。
func (c *Config) Unmarshal(dst any) error {
	return c.v.Unmarshal(dst)
}

// UnmarshalKey 将指定 key 对应的子配置反序列化到 dst。
// dst 应为结构体或 map 的指针。
func (c *Config) UnmarshalKey(key string, dst any) error {
	return c.v.UnmarshalKey(key, dst)
}
