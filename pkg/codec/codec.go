package codec

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/nbt-go/pkg/codec/compressor"
	"github.com/lk2023060901/nbt-go/pkg/codec/serializer"
	"github.com/lk2023060901/nbt-go/pkg/log"
	"github.com/lk2023060901/nbt-go/pkg/metrics"
	"github.com/lk2023060901/nbt-go/pkg/nbt"
	"github.com/lk2023060901/nbt-go/pkg/util/conc"
	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

// Codec 串联“对象 <-> NBT 文档 <-> 压缩负载”的完整流程。
//
// Pipeline（Encode）：
//
//	value --> serializer --> [compress?] --> io.Writer
//
// Pipeline（Decode）：
//
//	payload --> Detect --> [decompress?] --> serializer --> value
//
// Codec 可以被多个 goroutine 并发使用。
type Codec struct {
	log.Binder

	cfg        Config
	serializer *serializer.NBTSerializer
	compressor compressor.Compressor
	gzip       compressor.Compressor
	zlib       compressor.Compressor
	pool       *conc.Pool[*nbt.Document]
}

// New 按配置创建 Codec。使用完毕后调用 Close 释放批量解码的协程池。
func New(cfg Config) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kind, _ := compressor.ParseKind(cfg.Compression)

	c := &Codec{
		cfg:        cfg,
		serializer: serializer.NewNBTSerializer(cfg.RootName, cfg.Options()...),
	}

	var err error
	limit := compressor.WithMaxDecompressedSize(cfg.MaxPayloadSize)
	if c.gzip, err = compressor.New(compressor.Gzip, levelFor(kind, compressor.Gzip, cfg.CompressionLevel), limit); err != nil {
		return nil, err
	}
	if c.zlib, err = compressor.New(compressor.Zlib, levelFor(kind, compressor.Zlib, cfg.CompressionLevel), limit); err != nil {
		return nil, err
	}
	c.compressor = c.byKind(kind)
	c.pool = conc.NewPool[*nbt.Document](cfg.BatchConcurrency, conc.WithConcealPanic(true))
	c.SetLogger(log.With(log.FieldComponent("codec"), log.FieldCompression(string(kind))))
	return c, nil
}

func levelFor(configured, kind compressor.Kind, level int) int {
	if configured == kind {
		return level
	}
	return 0
}

func (c *Codec) byKind(kind compressor.Kind) compressor.Compressor {
	switch kind {
	case compressor.Gzip:
		return c.gzip
	case compressor.Zlib:
		return c.zlib
	default:
		return compressor.NopCompressor{}
	}
}

// Config 返回创建 Codec 时使用的配置。
func (c *Codec) Config() Config {
	return c.cfg
}

// Close 释放内部协程池。
func (c *Codec) Close() {
	c.pool.Release()
}

// Marshal 将 v 编码为（可能经过压缩的）NBT 负载。
// v 为 *nbt.Document 时原样写出，否则按 RootName 生成文档。
func (c *Codec) Marshal(v any) ([]byte, error) {
	start := time.Now()
	data, err := c.marshal(v)
	c.observe(metrics.EncodeLabel, c.compressor.Kind(), start, len(data), err)
	return data, err
}

func (c *Codec) marshal(v any) ([]byte, error) {
	body, err := c.serializer.Marshal(v)
	if err != nil {
		return nil, err
	}
	return c.compressor.Compress(nil, body)
}

// Encode 将 v 编码后写入 w，编码失败时不会向 w 写入任何字节。
func (c *Codec) Encode(w io.Writer, v any) error {
	if w == nil {
		return merr.WrapErrInvalidArgument("writer is nil")
	}
	data, err := c.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		err = merr.WrapErrIoFailed("write", err)
		c.logFailure(metrics.EncodeLabel, err, len(data))
		return err
	}
	return nil
}

// Decode 将负载解码到 v，外层的 gzip/zlib 自动识别。
func (c *Codec) Decode(data []byte, v any) error {
	start := time.Now()
	kind := compressor.Detect(data)
	err := c.decode(kind, data, v)
	c.observe(metrics.DecodeLabel, kind, start, len(data), err)
	return err
}

func (c *Codec) decode(kind compressor.Kind, data []byte, v any) error {
	plain, err := c.byKind(kind).Decompress(nil, data)
	if err != nil {
		return err
	}
	return c.serializer.Unmarshal(plain, v)
}

// DecodeReader 读取 r 的全部内容并解码到 v。
func (c *Codec) DecodeReader(r io.Reader, v any) error {
	if r == nil {
		return merr.WrapErrInvalidArgument("reader is nil")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		err = merr.WrapErrIoFailed("read", err)
		c.logFailure(metrics.DecodeLabel, err, len(data))
		return err
	}
	return c.Decode(data, v)
}

// DecodeDocument 将负载解码为文档树。
func (c *Codec) DecodeDocument(data []byte) (*nbt.Document, error) {
	doc := &nbt.Document{}
	if err := c.Decode(data, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DecodeBatch 在协程池上并发解码多个相互独立的负载，结果与输入一一对应。
//
// 单个负载失败不影响其它负载，失败位置的结果为 nil，所有错误经 merr.Combine 合并返回。
// ctx 取消后，尚未开始的负载直接以 ctx.Err() 失败。
func (c *Codec) DecodeBatch(ctx context.Context, payloads [][]byte) ([]*nbt.Document, error) {
	futures := make([]*conc.Future[*nbt.Document], len(payloads))
	for i, data := range payloads {
		futures[i] = c.pool.Submit(func() (*nbt.Document, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return c.DecodeDocument(data)
		})
	}

	docs := make([]*nbt.Document, len(payloads))
	errs := make([]error, 0)
	for i, future := range futures {
		doc, err := future.Await()
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "payload %d", i))
			continue
		}
		docs[i] = doc
	}
	if len(errs) > 0 {
		log.Ctx(ctx).Debug("batch decode finished with failures",
			log.FieldComponent("codec"), zap.Int("total", len(payloads)), zap.Int("failed", len(errs)))
	}
	return docs, merr.Combine(errs...)
}

func (c *Codec) observe(op string, kind compressor.Kind, start time.Time, size int, err error) {
	metrics.Latency.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.DocumentsTotal.WithLabelValues(op, metrics.FailLabel).Inc()
		c.logFailure(op, err, size)
		return
	}
	metrics.DocumentsTotal.WithLabelValues(op, metrics.SuccessLabel).Inc()
	metrics.PayloadBytes.WithLabelValues(op, string(kind)).Observe(float64(size))
}

func (c *Codec) logFailure(op string, err error, size int) {
	code := merr.Code(err)
	metrics.ErrorsTotal.WithLabelValues(op, metrics.CodeLabel(code)).Inc()
	fields := []zap.Field{zap.String("op", op), zap.Int32("code", code), log.FieldBytes(size), zap.Error(err)}
	if merr.GetErrorType(err) == merr.InputError {
		c.Logger().Debug("nbt codec rejected payload", fields...)
		return
	}
	c.Logger().Warn("nbt codec failed", fields...)
}
