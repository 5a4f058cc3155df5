// Package api exposes the task engine over HTTP. Handlers translate requests
// into TaskService and NotificationService calls and map their errors onto
// status codes without leaking internal detail to clients.
package api
