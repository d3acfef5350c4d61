package observability

import (
	"go.opentelemetry.io/otel"
)

// Tracer is resolved through the global provider, which stays a no-op unless
// the embedding process installs one.
var Tracer = otel.Tracer("ctxpack")
