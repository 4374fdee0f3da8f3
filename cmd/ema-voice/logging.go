package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/koscakluka/ema-voice/internal/config"
)

// logSink owns the log file shared by the host's slog records and the
// OTel records emitted by the core packages through otelslog.
type logSink struct {
	file     *os.File
	provider *sdklog.LoggerProvider
}

func setupLogging(cfg config.Config) (*logSink, error) {
	if dir := filepath.Dir(cfg.LogFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}

	exporter, err := stdoutlog.New(stdoutlog.WithWriter(file))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("create log exporter: %w", err)
	}
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(minSeverityProcessor{
			Processor: sdklog.NewSimpleProcessor(exporter),
			min:       severityFromLevel(level),
		}),
	)
	global.SetLoggerProvider(provider)

	slog.SetDefault(slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})))

	return &logSink{file: file, provider: provider}, nil
}

// Close flushes pending OTel records before closing the file.
func (s *logSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return errors.Join(s.provider.Shutdown(ctx), s.file.Close())
}

// minSeverityProcessor drops records below the configured level.
type minSeverityProcessor struct {
	sdklog.Processor
	min otellog.Severity
}

func (p minSeverityProcessor) OnEmit(ctx context.Context, record *sdklog.Record) error {
	if record.Severity() < p.min {
		return nil
	}
	return p.Processor.OnEmit(ctx, record)
}

// severityFromLevel follows the otelslog mapping of slog levels.
func severityFromLevel(level slog.Level) otellog.Severity {
	return otellog.Severity(level + 9)
}
