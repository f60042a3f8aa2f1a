// Package api implements the HTTP REST API and WebSocket server for Slate Core.
//
// This package provides:
//   - REST endpoints for bootstrap, provisioning state, schedules, and batch device actions
//   - WebSocket hub for real-time schedule and action event broadcasts
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between teacher-facing front ends and the remote
// MDM/directory service. Directory reads and batch actions are proxied
// through the domain packages (provision, schedule, action), and the
// events those packages emit are broadcast to WebSocket clients and
// mirrored to MQTT for classroom wall displays.
//
// # Security
//
// Login proxies teacher credentials to the directory and issues a local
// HS256 JWT; credentials are never stored. WebSocket connections use
// single-use tickets to prevent token leakage in URLs.
//
// # Graceful Degradation
//
// The server operates without MQTT: REST and WebSocket event delivery
// work, only the wall display relay is disabled.
package api
