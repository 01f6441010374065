// Package http provides HTTP handlers and middleware for the intake tracker API.
//
// The router exposes the following endpoints:
//   - GET /health: liveness probe returning {"status":"ok"}.
//   - GET /medications/search?q=...&limit=...: catalog search over medication
//     name and active principle, exchanging the `medicationDTO` payload defined
//     in medication_handler.go.
//   - GET /user-medications, POST /user-medications, GET /user-medications/{id},
//     PUT /user-medications/{id}, DELETE /user-medications/{id}: schedule
//     management endpoints exchanging the `scheduleDTO` payload defined in
//     medication_handler.go. Removal is a soft delete.
//   - GET /user-medications/day?date=YYYY-MM-DD: the reconciled day sheet for
//     one calendar date.
//   - GET /user-medications/indicators?period=day|week|month&date=YYYY-MM-DD
//     (or explicit start/end bounds): per-day adherence aggregates.
//   - POST /user-medications/{id}/log-taken: confirms one occurrence as taken.
//
// Authentication happens upstream; handlers trust the X-User-ID header placed
// by the gateway and resolve it into the request principal.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
