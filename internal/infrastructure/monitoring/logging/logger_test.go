package logging

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// newTestLogger builds a zap-backed Logger writing to an in-memory buffer so
// tests can inspect the emitted JSON.
func newTestLogger(t *testing.T) (Logger, *zaptest.Buffer) {
	t.Helper()
	buf := &zaptest.Buffer{}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), buf, zapcore.DebugLevel)
	return &zapLogger{z: zap.New(core)}, buf
}

func TestNewLogger_JSONFormat(t *testing.T) {
	cfg := LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
	l, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	cfg := LogConfig{
		Level:       "debug",
		Format:      "console",
		OutputPaths: []string{"stdout"},
	}
	l, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_DefaultsApplied(t *testing.T) {
	// Empty config must still produce a working logger.
	l, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestNopLogger_AllMethodsNoOp(t *testing.T) {
	l := NewNopLogger()
	// Should not panic.
	l.Debug("msg")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg")
	assert.NoError(t, l.Sync())
}

func TestNopLogger_With_ReturnsSelf(t *testing.T) {
	l := NewNopLogger()
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.Named("child"))
}

func TestZapLogger_Levels(t *testing.T) {
	l, buf := newTestLogger(t)

	l.Debug("debug msg")
	l.Info("info msg")
	l.Warn("warn msg")
	l.Error("error msg")

	out := buf.String()
	assert.Contains(t, out, "debug msg")
	assert.Contains(t, out, `"level":"debug"`)
	assert.Contains(t, out, "info msg")
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, "warn msg")
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, "error msg")
	assert.Contains(t, out, `"level":"error"`)
}

func TestZapLogger_With_AddsFields(t *testing.T) {
	l, buf := newTestLogger(t)
	l.With(String("compound", "nitric acid")).Info("classified")
	assert.Contains(t, buf.String(), `"compound":"nitric acid"`)
}

func TestZapLogger_Named(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Named("sorter").Info("run complete")
	assert.Contains(t, buf.String(), `"logger":"sorter"`)
}

func TestZapLogger_FieldTypes(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Info("typed fields",
		String("name", "acetone"),
		Strings("pictograms", []string{"Flammable", "Irritant"}),
		Int("count", 3),
		Int64("cid", 180),
		Float64("boiling_c", 56.05),
		Bool("gas_only", false),
		Duration("elapsed", 150*time.Millisecond),
		Any("extra", map[string]int{"a": 1}),
	)

	out := buf.String()
	assert.Contains(t, out, `"name":"acetone"`)
	assert.Contains(t, out, `"pictograms":["Flammable","Irritant"]`)
	assert.Contains(t, out, `"count":3`)
	assert.Contains(t, out, `"cid":180`)
	assert.Contains(t, out, `"boiling_c":56.05`)
	assert.Contains(t, out, `"gas_only":false`)
	assert.Contains(t, out, `"elapsed"`)
	assert.Contains(t, out, `"extra"`)
}

func TestErrField(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Error("failed", Err(stderrors.New("boom")))
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestErrField_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestNewLoggerFromCore(t *testing.T) {
	buf := &zaptest.Buffer{}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		buf,
		zapcore.InfoLevel,
	)
	l := NewLoggerFromCore(core)
	l.Info("from core")
	assert.Contains(t, buf.String(), "from core")
}

func TestSetDefault_And_Default(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	l := NewNopLogger()
	SetDefault(l)
	assert.Equal(t, l, Default())
}

func TestSetDefault_IgnoresNil(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	SetDefault(nil)
	assert.NotNil(t, Default())
}

//Personal.AI order the ending
