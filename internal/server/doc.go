// Package server hosts the Fiber HTTP service for the cache-locality
// registry: the recover/request-ID middleware chain and the AppOptions
// wiring that hands the registry, the heartbeat bus, and the metrics set to
// route constructors. Worker report ingestion and scheduler/monitoring
// queries live under routes/; diagnostics stay under the /-/ prefix so the
// report surface remains narrow. Keep exports minimal and dependencies
// explicit so tests can build an app around fakes.
package server
