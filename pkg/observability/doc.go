/*
Package observability turns the engine's lifecycle hooks into Prometheus metrics
and structured log lines.

Requests, connection transitions and streamed chunks each produce one hook call;
Metrics.Hooks and LogHooks consume them, and Combine fans one hook set out to several.
*/
package observability
