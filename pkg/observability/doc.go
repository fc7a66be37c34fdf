/*
Package observability provides tools for monitoring the stack tester.

It exposes Prometheus counters for session lifecycles, registry races, store errors
surfaced as stack data and executed instructions. A nil *Metrics is valid and records nothing.
*/
package observability
