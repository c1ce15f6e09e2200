package service

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"go-tube-auth/pkg/apierror"
)

var tracer = otel.Tracer("go-tube-auth/internal/service")

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apierror.CodeOf(err))
	}
	span.End()
}
