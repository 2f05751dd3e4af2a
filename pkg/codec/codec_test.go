package codec

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/nbt-go/pkg/codec/compressor"
	"github.com/lk2023060901/nbt-go/pkg/log"
	"github.com/lk2023060901/nbt-go/pkg/metrics"
	"github.com/lk2023060901/nbt-go/pkg/nbt"
	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

type level struct {
	Name   string  `nbt:"LevelName"`
	Seed   int64   `nbt:"RandomSeed"`
	Spawn  []int32 `nbt:"Spawn,intarray"`
	Hardly bool    `nbt:"hardcore"`
}

type CodecSuite struct {
	suite.Suite

	restore func()
}

func (s *CodecSuite) SetupSuite() {
	prev, prevProps := log.L(), log.Props()
	lg, props, err := log.InitTestLogger(s.T(), &log.Config{Level: "debug"})
	s.Require().NoError(err)
	log.ReplaceGlobals(lg, props)
	s.restore = func() {
		log.ReplaceGlobals(prev, prevProps)
	}
}

func (s *CodecSuite) TearDownSuite() {
	s.restore()
}

func TestCodec(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func (s *CodecSuite) newCodec(mutate func(cfg *Config)) *Codec {
	cfg := DefaultConfig()
	cfg.RootName = "Data"
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg)
	s.Require().NoError(err)
	s.T().Cleanup(c.Close)
	return c
}

func (s *CodecSuite) TestRoundTripPerCompression() {
	in := level{Name: "world", Seed: -42, Spawn: []int32{0, 64, 0}, Hardly: true}
	for _, kind := range []compressor.Kind{compressor.None, compressor.Gzip, compressor.Zlib} {
		c := s.newCodec(func(cfg *Config) { cfg.Compression = string(kind) })

		data, err := c.Marshal(in)
		s.Require().NoError(err)
		s.Equal(kind, compressor.Detect(data), kind)

		var out level
		s.Require().NoError(c.Decode(data, &out))
		s.Equal(in, out)

		doc, err := c.DecodeDocument(data)
		s.Require().NoError(err)
		s.Equal("Data", doc.Name)
	}
}

func (s *CodecSuite) TestDecodeDetectsCompression() {
	in := level{Name: "detect", Spawn: []int32{8, 70, -8}}
	gz := s.newCodec(func(cfg *Config) { cfg.Compression = "gzip"; cfg.CompressionLevel = 9 })
	zl := s.newCodec(func(cfg *Config) { cfg.Compression = "zlib" })
	plain := s.newCodec(nil)

	for _, enc := range []*Codec{gz, zl, plain} {
		data, err := enc.Marshal(in)
		s.Require().NoError(err)

		var out level
		s.Require().NoError(plain.Decode(data, &out))
		s.Equal(in, out)

		out = level{}
		s.Require().NoError(plain.DecodeReader(bytes.NewReader(data), &out))
		s.Equal(in, out)
	}
}

func (s *CodecSuite) TestEncode() {
	c := s.newCodec(nil)

	var buf bytes.Buffer
	s.Require().NoError(c.Encode(&buf, map[string]int32{"x": 1}))
	s.Equal([]byte{
		0x0A, 0x00, 0x04, 'D', 'a', 't', 'a',
		0x03, 0x00, 0x01, 'x', 0x00, 0x00, 0x00, 0x01,
		0x00,
	}, buf.Bytes())

	buf.Reset()
	err := c.Encode(&buf, map[string]any{"bad": make(chan int)})
	s.ErrorIs(err, merr.ErrUnrepresentableValue)
	s.Zero(buf.Len())

	s.ErrorIs(c.Encode(nil, level{}), merr.ErrInvalidArgument)
	s.ErrorIs(c.Encode(failingWriter{}, level{}), merr.ErrIoFailed)
	s.ErrorIs(c.DecodeReader(nil, &level{}), merr.ErrInvalidArgument)
	s.ErrorIs(c.DecodeReader(failingReader{}, &level{}), merr.ErrIoFailed)
}

func (s *CodecSuite) TestOptionsFromConfig() {
	// 两个同名键 "a"。
	dup := []byte{
		0x0A, 0x00, 0x00,
		0x01, 0x00, 0x01, 'a', 0x01,
		0x01, 0x00, 0x01, 'a', 0x02,
		0x00,
	}
	lenient := s.newCodec(nil)
	doc, err := lenient.DecodeDocument(dup)
	s.Require().NoError(err)
	v, ok := nbt.Get[nbt.Byte](doc.Root, "a")
	s.True(ok)
	s.Equal(nbt.Byte(2), v)

	strict := s.newCodec(func(cfg *Config) { cfg.StrictKeys = true })
	_, err = strict.DecodeDocument(dup)
	s.ErrorIs(err, merr.ErrDuplicateKey)

	empty := s.newCodec(func(cfg *Config) { cfg.AllowEmpty = true })
	doc, err = empty.DecodeDocument(nil)
	s.Require().NoError(err)
	s.Zero(doc.Root.Len())
	_, err = lenient.DecodeDocument(nil)
	s.Error(err)

	reinterpret := s.newCodec(func(cfg *Config) { cfg.UnsignedPolicy = "reinterpret" })
	_, err = reinterpret.Marshal(map[string]uint32{"u": 1 << 31})
	s.NoError(err)
	_, err = lenient.Marshal(map[string]uint32{"u": 1 << 31})
	s.ErrorIs(err, merr.ErrUnrepresentableValue)

	shallow := s.newCodec(func(cfg *Config) { cfg.MaxDepth = 2 })
	_, err = shallow.Marshal(map[string]any{"a": map[string]any{"b": map[string]any{}}})
	s.ErrorIs(err, merr.ErrNestingTooDeep)
}

func (s *CodecSuite) TestMaxPayloadSize() {
	in := level{Name: strings.Repeat("w", 256), Spawn: []int32{0, 64, 0}}
	enc := s.newCodec(func(cfg *Config) { cfg.Compression = "gzip" })
	data, err := enc.Marshal(in)
	s.Require().NoError(err)

	small := s.newCodec(func(cfg *Config) { cfg.MaxPayloadSize = 64 })
	var out level
	s.ErrorIs(small.Decode(data, &out), merr.ErrCompression)

	s.Require().NoError(enc.Decode(data, &out))
	s.Equal(in, out)

	cfg := DefaultConfig()
	cfg.MaxPayloadSize = -1
	_, err = New(cfg)
	s.ErrorIs(err, merr.ErrInvalidArgument)
}

func (s *CodecSuite) TestNewRejectsInvalidConfig() {
	cfg := DefaultConfig()
	cfg.Compression = "lz4"
	_, err := New(cfg)
	s.ErrorIs(err, merr.ErrInvalidArgument)

	cfg = DefaultConfig()
	cfg.UnsignedPolicy = "wrap"
	_, err = New(cfg)
	s.ErrorIs(err, merr.ErrInvalidArgument)

	cfg = DefaultConfig()
	cfg.Compression = "gzip"
	cfg.CompressionLevel = 42
	_, err = New(cfg)
	s.ErrorIs(err, merr.ErrCompression)
}

func (s *CodecSuite) TestDecodeBatch() {
	c := s.newCodec(func(cfg *Config) { cfg.BatchConcurrency = 3; cfg.Compression = "zlib" })

	payloads := make([][]byte, 0, 10)
	for i := 0; i < 10; i++ {
		data, err := c.Marshal(level{Seed: int64(i)})
		s.Require().NoError(err)
		payloads = append(payloads, data)
	}
	payloads[4] = payloads[4][:len(payloads[4])/2]
	payloads[7] = []byte{0x0A, 0x00}

	docs, err := c.DecodeBatch(context.Background(), payloads)
	s.Require().Error(err)
	s.ErrorIs(err, merr.ErrUnexpectedEOF)
	s.Contains(err.Error(), "payload 7")
	s.Len(docs, 10)
	s.Nil(docs[7])
	for i, doc := range docs {
		if i == 4 || i == 7 {
			continue
		}
		s.Require().NotNil(doc, i)
		seed, _ := nbt.Get[nbt.Long](doc.Root, "RandomSeed")
		s.Equal(nbt.Long(i), seed)
	}

	docs, err = c.DecodeBatch(context.Background(), nil)
	s.NoError(err)
	s.Empty(docs)
}

func (s *CodecSuite) TestDecodeBatchCancelled() {
	c := s.newCodec(nil)
	data, err := c.Marshal(level{})
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	docs, err := c.DecodeBatch(ctx, [][]byte{data, data})
	s.ErrorIs(err, context.Canceled)
	s.Equal([]*nbt.Document{nil, nil}, docs)
}

func (s *CodecSuite) TestMetrics() {
	c := s.newCodec(nil)
	ok := metrics.DocumentsTotal.WithLabelValues(metrics.DecodeLabel, metrics.SuccessLabel)
	fail := metrics.ErrorsTotal.WithLabelValues(metrics.DecodeLabel, metrics.CodeLabel(merr.Code(merr.ErrUnknownTagID)))
	okBefore, failBefore := testutil.ToFloat64(ok), testutil.ToFloat64(fail)

	data, err := c.Marshal(level{})
	s.Require().NoError(err)
	s.Require().NoError(c.Decode(data, &level{}))
	s.Error(c.Decode([]byte{0x0A, 0x00, 0x00, 0x0D}, &level{}))

	s.Equal(okBefore+1, testutil.ToFloat64(ok))
	s.Equal(failBefore+1, testutil.ToFloat64(fail))
}

func (s *CodecSuite) TestLoadConfig() {
	cfg, err := LoadConfig("")
	s.Require().NoError(err)
	s.Equal(DefaultConfig(), cfg)

	dir := s.T().TempDir()
	path := filepath.Join(dir, "nbt.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(
		"compression: gzip\nroot-name: Data\nstrict-keys: true\nbatch-concurrency: 2\nlog:\n  level: warn\n"), 0o600))

	s.T().Setenv("NBT_MAX_DEPTH", "64")
	s.T().Setenv("NBT_UNSIGNED_POLICY", "reinterpret")
	s.T().Setenv("NBT_MAX_PAYLOAD_SIZE", "1024")
	cfg, err = LoadConfig(path)
	s.Require().NoError(err)
	s.Equal("gzip", cfg.Compression)
	s.Equal("Data", cfg.RootName)
	s.True(cfg.StrictKeys)
	s.Equal(2, cfg.BatchConcurrency)
	s.Equal(64, cfg.MaxDepth)
	s.Equal(int64(1024), cfg.MaxPayloadSize)
	s.Equal("reinterpret", cfg.UnsignedPolicy)
	s.Equal("warn", cfg.Log.Level)
	s.True(cfg.Log.Stdout)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	s.ErrorIs(err, merr.ErrInvalidArgument)

	s.T().Setenv("NBT_COMPRESSION", "brotli")
	_, err = LoadConfig(path)
	s.ErrorIs(err, merr.ErrInvalidArgument)
}

func (s *CodecSuite) TestInitLogger() {
	cfg := DefaultConfig()
	cfg.Log.Level = "loud"
	s.Error(cfg.InitLogger())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }
