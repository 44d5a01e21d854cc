// Package tracing 封装 OpenTelemetry，为上传和逐周入库创建 span
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Config 追踪配置，Endpoint 为空时导出到 stdout
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	SampleRate     float64
	Enabled        bool
}

// Tracer 持有 provider，provider 为 nil 表示追踪关闭
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   *Config
}

var defaultTracer *Tracer

func defaultConfig() *Config {
	return &Config{
		ServiceName: "weekly-report-backend",
		Environment: "development",
		SampleRate:  1.0,
		Enabled:     true,
	}
}

// Init 创建全局 TracerProvider 并注册 W3C 传播器
func Init(cfg *Config) (*Tracer, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	if !cfg.Enabled {
		defaultTracer = &Tracer{config: cfg}
		return defaultTracer, nil
	}

	ctx := context.Background()
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	exporter, err := newExporter(ctx, cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRate)),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	defaultTracer = &Tracer{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
		config:   cfg,
	}
	return defaultTracer, nil
}

// newResource 属性不带 schema URL，避免与 SDK 自带的 semconv 版本冲突
func newResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}
	return res, nil
}

func newExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout trace exporter: %w", err)
		}
		return exp, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter %s: %w", endpoint, err)
	}
	return exp, nil
}

// newSampler 上游已采样的请求沿用上游决定
func newSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case rate <= 0:
		return sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

// GetTracer 返回全局追踪器，未初始化时返回关闭状态的追踪器
func GetTracer() *Tracer {
	if defaultTracer != nil {
		return defaultTracer
	}
	return &Tracer{config: &Config{}}
}

// Shutdown 刷新并关闭 provider
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// StartSpan 开始子 span；追踪关闭时沿用上下文中的 span
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// SetError 记录错误并将 span 标记为失败，err 为 nil 时不做任何事
func SetError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent 在当前 span 上记录事件
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// 报表相关属性
var (
	AttrReportID     = attribute.Key("report.id")
	AttrWeekStart    = attribute.Key("week.start")
	AttrFileName     = attribute.Key("file.name")
	AttrUploadFormat = attribute.Key("upload.format")
	AttrRowCount     = attribute.Key("rows.count")
)

func WithReportID(id int64) attribute.KeyValue { return AttrReportID.Int64(id) }
func WithWeekStart(start string) attribute.KeyValue { return AttrWeekStart.String(start) }
func WithFileName(name string) attribute.KeyValue { return AttrFileName.String(name) }
func WithUploadFormat(f string) attribute.KeyValue { return AttrUploadFormat.String(f) }
func WithRowCount(n int) attribute.KeyValue { return AttrRowCount.Int(n) }
