package log

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type bufferSyncer struct {
	bytes.Buffer
}

func (b *bufferSyncer) Sync() error { return nil }

func TestInitLoggerWithWriteSyncer(t *testing.T) {
	var buf bufferSyncer
	lg, props, err := InitLoggerWithWriteSyncer(&Config{Level: "warn", Format: "json", DisableTimestamp: true}, &buf)
	require.NoError(t, err)

	lg.Info("hidden")
	lg.Warn("shown", FieldCompression("gzip"), FieldBytes(12))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"compression":"gzip"`)
	assert.Contains(t, buf.String(), `"bytes":12`)
	assert.NotContains(t, buf.String(), `"ts"`)

	props.Level.SetLevel(zapcore.DebugLevel)
	lg.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestParseLevel(t *testing.T) {
	l, err := parseLevel("trace")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, l)

	l, err = parseLevel("ERROR")
	require.NoError(t, err)
	assert.Equal(t, zapcore.ErrorLevel, l)

	_, err = parseLevel("loud")
	assert.Error(t, err)

	_, _, err = InitLoggerWithWriteSyncer(&Config{Level: "loud"}, &bufferSyncer{})
	assert.Error(t, err)
}

func TestFileLog(t *testing.T) {
	dir := t.TempDir()
	_, err := initFileLog(&FileLogConfig{RootPath: filepath.Dir(dir), Filename: filepath.Base(dir)})
	assert.Error(t, err)

	cfg := &FileLogConfig{RootPath: dir, Filename: "nbt.log"}
	lj, err := initFileLog(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nbt.log"), lj.Filename)
	assert.Equal(t, defaultLogMaxSize, lj.MaxSize)
	require.NoError(t, lj.Close())
}

func TestGlobalsAndContext(t *testing.T) {
	oldL, oldP := L(), Props()
	defer ReplaceGlobals(oldL, oldP)

	var buf bufferSyncer
	lg, props, err := InitLoggerWithWriteSyncer(&Config{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)
	ReplaceGlobals(lg, props)

	Info("plain")
	ctx := WithModule(context.Background(), "codec")
	Ctx(ctx).Info("with module", zap.Int("n", 1))
	assert.Contains(t, buf.String(), `"msg":"plain"`)
	assert.Contains(t, buf.String(), `"module":"codec"`)

	require.NoError(t, SetLevelText("error"))
	assert.Equal(t, zapcore.ErrorLevel, GetLevel())
	Warn("suppressed")
	assert.NotContains(t, buf.String(), "suppressed")
	assert.Error(t, SetLevelText("nope"))

	Ctx(context.Background()).Error("plain context")
	assert.Contains(t, buf.String(), "plain context")
}

func TestBinder(t *testing.T) {
	var b Binder
	assert.NotNil(t, b.Logger())

	named := With(FieldComponent("decoder")).Named("nbt")
	b.SetLogger(named)
	assert.Same(t, named, b.Logger())
}

func TestInitTestLogger(t *testing.T) {
	lg, _, err := InitTestLogger(t, &Config{Level: "debug"})
	require.NoError(t, err)
	lg.Debug("routed to t.Log")
}
