package codec

import (
	"fmt"

	"github.com/lk2023060901/nbt-go/pkg/codec/compressor"
	"github.com/lk2023060901/nbt-go/pkg/log"
	"github.com/lk2023060901/nbt-go/pkg/nbt"
	"github.com/lk2023060901/nbt-go/pkg/util/merr"
	"github.com/lk2023060901/nbt-go/pkg/util/viper"
)

// EnvPrefix 为环境变量覆盖的前缀，例如 NBT_MAX_DEPTH、NBT_LOG_LEVEL。
const EnvPrefix = "NBT"

// Config 为 Codec 的配置，可由 YAML/JSON 文件与环境变量加载。
type Config struct {
	// Compression 为编码输出的外层压缩格式：none、gzip 或 zlib。解码总是自动识别。
	Compression string `mapstructure:"compression"`
	// CompressionLevel 为压缩级别，0 表示默认级别。
	CompressionLevel int `mapstructure:"compression-level"`
	// RootName 为编码时写入的根名。
	RootName string `mapstructure:"root-name"`
	// MaxDepth 为最大嵌套深度。
	MaxDepth int `mapstructure:"max-depth"`
	// StrictKeys 为 true 时拒绝重复的 Compound 键。
	StrictKeys bool `mapstructure:"strict-keys"`
	// UnsignedPolicy 为无符号整数策略：checked 或 reinterpret。
	UnsignedPolicy string `mapstructure:"unsigned-policy"`
	// AllowEmpty 为 true 时接受空文档。
	AllowEmpty bool `mapstructure:"allow-empty"`
	// BatchConcurrency 为 DecodeBatch 的并发度，<= 0 时取 GOMAXPROCS。
	BatchConcurrency int `mapstructure:"batch-concurrency"`
	// MaxPayloadSize 为解压后负载的字节上限，0 表示 compressor.DefaultMaxDecompressedSize。
	MaxPayloadSize int64 `mapstructure:"max-payload-size"`

	Log log.Config `mapstructure:"log"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		Compression:    string(compressor.None),
		MaxDepth:       nbt.DefaultMaxDepth,
		UnsignedPolicy: nbt.UnsignedChecked.String(),
		MaxPayloadSize: compressor.DefaultMaxDecompressedSize,
		Log: log.Config{
			Level:  "info",
			Stdout: true,
		},
	}
}

func defaultSettings() map[string]any {
	def := DefaultConfig()
	return map[string]any{
		"compression":       def.Compression,
		"compression-level": def.CompressionLevel,
		"root-name":         def.RootName,
		"max-depth":         def.MaxDepth,
		"strict-keys":       def.StrictKeys,
		"unsigned-policy":   def.UnsignedPolicy,
		"allow-empty":       def.AllowEmpty,
		"batch-concurrency": def.BatchConcurrency,
		"max-payload-size":  def.MaxPayloadSize,
		"log.level":         def.Log.Level,
		"log.format":        def.Log.Format,
		"log.stdout":        def.Log.Stdout,
	}
}

// LoadConfig 从 path 加载配置，并应用 NBT_ 前缀的环境变量覆盖。path 为空时只使用默认值与环境变量。
func LoadConfig(path string) (Config, error) {
	v := viper.New(viper.WithEnvPrefix(EnvPrefix), viper.WithDefaults(defaultSettings()))
	if path != "" {
		if err := v.LoadFile(path); err != nil {
			return Config{}, merr.WrapErrInvalidArgument(fmt.Sprintf("load config %s: %v", path, err))
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, merr.WrapErrInvalidArgument(fmt.Sprintf("decode config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 检查配置取值是否合法。
func (c *Config) Validate() error {
	if _, err := compressor.ParseKind(c.Compression); err != nil {
		return err
	}
	if _, err := nbt.ParseUnsignedPolicy(c.UnsignedPolicy); err != nil {
		return err
	}
	if c.MaxPayloadSize < 0 {
		return merr.WrapErrInvalidArgument(fmt.Sprintf("max-payload-size must not be negative, got %d", c.MaxPayloadSize))
	}
	if c.MaxDepth < 0 {
		return merr.WrapErrInvalidArgument(fmt.Sprintf("max-depth must not be negative, got %d", c.MaxDepth))
	}
	return nil
}

// Options 将配置转换为 nbt 编解码选项。
func (c *Config) Options() []nbt.Option {
	policy, _ := nbt.ParseUnsignedPolicy(c.UnsignedPolicy)
	return []nbt.Option{
		nbt.WithMaxDepth(c.MaxDepth),
		nbt.WithStrictDuplicateKeys(c.StrictKeys),
		nbt.WithAllowEmptyDocument(c.AllowEmpty),
		nbt.WithUnsignedPolicy(policy),
	}
}

// InitLogger 按 Log 配置初始化并替换全局 Logger。
func (c *Config) InitLogger() error {
	lg, props, err := log.InitLogger(&c.Log)
	if err != nil {
		return err
	}
	log.ReplaceGlobals(lg, props)
	return nil
}
