package otel

import (
	"context"

	"github.com/corray333/backend-labs/trade/internal/jaeger"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

type OtelController struct {
	traceProvider *sdktrace.TracerProvider
}

// MustInitOtel installs the global tracer provider. With tracing.enabled off, spans are
// recorded by a provider without exporters.
func MustInitOtel(serviceName string) *OtelController {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	}
	if viper.GetBool("tracing.enabled") {
		opts = append(opts, sdktrace.WithBatcher(jaeger.MustNewJaeger()))
	}
	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &OtelController{
		traceProvider: tp,
	}
}

func (o *OtelController) Shutdown() error {
	if err := o.traceProvider.Shutdown(context.Background()); err != nil {
		return err
	}

	return nil
}
