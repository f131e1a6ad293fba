// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package proofhound

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func (i *Indexer) setupTracing() error {
	ctx := context.Background()
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("proofhound"),
		),
	)
	if err != nil {
		return err
	}
	tracerProviderOpts := []trace.TracerProviderOption{
		trace.WithResource(res),
	}
	// Exporter endpoint and TLS are configured via the OTEL_EXPORTER_OTLP_*
	// env vars
	otlpExporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return err
	}
	tracerProviderOpts = append(
		tracerProviderOpts,
		trace.WithBatcher(
			otlpExporter,
			trace.WithBatchTimeout(time.Second),
		),
	)
	if i.config.tracingStdout {
		stdoutExporter, err := stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return err
		}
		tracerProviderOpts = append(
			tracerProviderOpts,
			trace.WithBatcher(stdoutExporter),
		)
	}
	tracerProvider := trace.NewTracerProvider(tracerProviderOpts...)
	i.shutdownFuncs = append(i.shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)
	return nil
}
