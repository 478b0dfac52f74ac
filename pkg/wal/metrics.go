package wal

import (
	intwal "github.com/backbone81/nano-wal/internal/wal"
)

// RegisterMetrics registers all metrics collectors with the given prometheus registerer.
var RegisterMetrics = intwal.RegisterMetrics
