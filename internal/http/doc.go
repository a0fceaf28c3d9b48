// Package http exposes the booking core over a JSON API built on chi.
//
// Authenticated routes expect the upstream identity provider to set the
// X-User-ID, X-User-Email and X-User-Name headers; requests without an
// X-User-ID are rejected with 401 before reaching a handler.
//
//   - GET /api/meetings/check-availability?room_id&start&end[&meeting_id][&capacity]
//   - GET /api/meetings?start&end, POST /api/meetings
//   - GET /api/meetings/calendar?start&end, every scheduled meeting in the window
//   - GET, PUT, DELETE /api/meetings/{id}
//   - GET /api/rooms, GET /api/rooms/{id}, GET /api/rooms/available?start&end[&capacity]
//   - GET /api/rooms/{id}/schedule?date=YYYY-MM-DD and its .ics variant
//
// The meeting-confirmation routes are public and authorised by the
// invitation token alone:
//
//   - GET /api/meeting-confirmation/respond-info?token
//   - POST /api/meeting-confirmation/respond?token&response=accept|decline
//
// Responses carry RFC 3339 timestamps. Requests may also send a local
// date-time without an offset, read in the organizational timezone. A booking that loses to an overlapping meeting is
// answered with 409 and a body naming the conflict and the free rooms. Any
// problem with an invitation token is answered with 400 and the single
// message "invalid or expired link".
//
// Request/response DTOs live alongside their respective handlers.
package http
