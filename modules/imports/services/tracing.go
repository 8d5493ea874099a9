package services

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/iota-uz/bookkeeper/modules/imports/services")
