// Package observability turns host dispatch events into metrics and traces:
// prometheus collectors for `serve`, an expvar recorder for process-local
// inspection and a JSON-lines tracer for debugging a single boot.
package observability
