package logger

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultServiceName = "classroom-dashboard"

var ErrInvalidConfig = errors.New("ログ設定が不正です")

// Config は config.yaml の log セクション。空の項目は info / json / stdout。
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, またはファイルパス
}

// Validate は出力先を開かずに設定値だけ確認する（LoadConfig から呼ぶ）
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	_, err := newEncoder(c.Format)
	return err
}

// New は log セクションから zap.Logger を組み立てる。全行に service フィールドが付く。
func New(c Config, serviceName string) (*zap.Logger, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	enc, err := newEncoder(c.Format)
	if err != nil {
		return nil, err
	}

	// プロセス寿命なので close は呼ばない
	sink, _, err := zap.Open(outputPath(c.Output))
	if err != nil {
		return nil, fmt.Errorf("ログ出力先を開けません (%s): %w", c.Output, err)
	}

	core := zapcore.NewCore(enc, sink, level)
	l := zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(sink),
	)
	return l.With(zap.String(FieldService, serviceName)), nil
}

// ParseLevel: 空文字は info。"warning" も warn として受ける
func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return zapcore.InfoLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("%w: level=%q", ErrInvalidConfig, s)
	}
	return lvl, nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return zapcore.NewJSONEncoder(ec), nil
	case "console":
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(ec), nil
	}
	return nil, fmt.Errorf("%w: format=%q", ErrInvalidConfig, format)
}

func outputPath(out string) string {
	if out = strings.TrimSpace(out); out == "" {
		return "stdout"
	}
	return out
}
