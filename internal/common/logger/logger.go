// Package logger 提供结构化日志功能
package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dumeirei/weekly-report-backend/internal/common/config"
)

var log *zap.Logger

// 日志输出目标
const (
	OutputStdout = "stdout"
	OutputFile   = "file"
	OutputBoth   = "both"
)

// Init 初始化全局日志器
// output 为 file/both 时通过 lumberjack 按大小轮转
func Init(cfg *config.LoggerConfig) error {
	writers, err := buildWriters(cfg)
	if err != nil {
		return err
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.NewMultiWriteSyncer(writers...), getLogLevel(cfg.Level))

	options := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Caller {
		options = append(options, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	log = zap.New(core, options...)
	return nil
}

func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func buildWriters(cfg *config.LoggerConfig) ([]zapcore.WriteSyncer, error) {
	output := cfg.Output
	if output == "" {
		output = OutputStdout
	}

	var writers []zapcore.WriteSyncer
	switch output {
	case OutputStdout, OutputFile, OutputBoth:
	default:
		return nil, fmt.Errorf("unsupported log output: %s", output)
	}
	if output != OutputFile {
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}
	if output != OutputStdout {
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("log output %s requires file_path", output)
		}
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}))
	}
	return writers, nil
}

// getLogLevel 解析日志级别，无法识别时使用 info
func getLogLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// GetLogger 获取全局日志器，未初始化时返回开发模式日志器
func GetLogger() *zap.Logger {
	if log == nil {
		log, _ = zap.NewDevelopment()
	}
	return log
}

// Sync 同步日志
func Sync() error {
	if log != nil {
		return log.Sync()
	}
	return nil
}

// Debug 调试日志
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Info 信息日志
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Warn 警告日志
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error 错误日志
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// With 返回带有字段的日志器
func With(fields ...zap.Field) *zap.Logger {
	return GetLogger().With(fields...)
}

// Named 返回命名日志器
func Named(name string) *zap.Logger {
	return GetLogger().Named(name)
}

// 透传 zap 的字段构造函数，调用方无需再引入 zap
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Any      = zap.Any
	Err      = zap.Error
	Duration = zap.Duration
)

// 报表导入和 HTTP 访问日志使用的固定字段名
func RequestID(id string) zap.Field { return zap.String("request_id", id) }
func OperatorID(id int64) zap.Field { return zap.Int64("operator_id", id) }
func ReportID(id int64) zap.Field { return zap.Int64("report_id", id) }
func WeekStart(date string) zap.Field { return zap.String("week_start", date) }
func FileName(name string) zap.Field { return zap.String("file_name", name) }
func RowIndex(idx int) zap.Field { return zap.Int("row", idx) }
func Module(name string) zap.Field { return zap.String("module", name) }
func Action(name string) zap.Field { return zap.String("action", name) }
func Latency(d time.Duration) zap.Field { return zap.Duration("latency", d) }
func StatusCode(code int) zap.Field { return zap.Int("status_code", code) }
func Method(method string) zap.Field { return zap.String("method", method) }
func Path(path string) zap.Field { return zap.String("path", path) }
func IP(ip string) zap.Field { return zap.String("ip", ip) }
