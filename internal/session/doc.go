// Package session owns one authenticated, reconnecting connection to the
// inspection service.
//
// Ownership boundary:
// - connection state machine (idle -> connecting -> open -> closing/closed)
// - reconnect policy and close-code classification
// - inbound/outbound event queues and their drains
// - plugin fan-out through plugins.Hub
//
// Every exported method except SendEvent and AddClientLog must run on the
// serialization context passed in Options.Executor. Transport callbacks,
// authorization callbacks and timers hop onto that context themselves.
package session
