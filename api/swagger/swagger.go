package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Resource Conflict API",
        "description": "Conflict detection and reservation engine for event resources",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Conflicts", "description": "Overlap checks against existing reservations"},
        {"name": "Reservations", "description": "Committing, revising and removing reservations"},
        {"name": "Availability", "description": "Resource calendars"},
        {"name": "Health", "description": "Liveness and store connectivity"}
    ],
    "paths": {
        "/check-conflicts": {
            "post": {
                "tags": ["Conflicts"],
                "summary": "Check resource conflicts",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CheckConflictsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Check result", "schema": {"$ref": "#/definitions/CheckConflictsResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "503": {"description": "Schedule store unavailable", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "504": {"description": "Schedule store timed out", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/resource-availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "List a resource's reservations in a date range",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "resource_id", "type": "integer", "required": true},
                    {"in": "query", "name": "start_date", "type": "string", "required": true, "description": "YYYY-MM-DD or RFC3339"},
                    {"in": "query", "name": "end_date", "type": "string", "required": true, "description": "YYYY-MM-DD (inclusive) or RFC3339"}
                ],
                "responses": {
                    "200": {"description": "Calendar", "schema": {"$ref": "#/definitions/AvailabilityResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "404": {"description": "Unknown resource", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/reservations": {
            "post": {
                "tags": ["Reservations"],
                "summary": "Commit reservations",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "header", "name": "Idempotency-Key", "type": "string", "required": false},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CommitReservationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Committed", "schema": {"$ref": "#/definitions/CommitResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "409": {"description": "Conflicts, nothing written", "schema": {"$ref": "#/definitions/CommitResponse"}},
                    "503": {"description": "Schedule store unavailable", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/reservations/{id}": {
            "put": {
                "tags": ["Reservations"],
                "summary": "Move a reservation to a new interval",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ReviseReservationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Revised", "schema": {"$ref": "#/definitions/CommitResponse"}},
                    "404": {"description": "Unknown reservation", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "409": {"description": "Conflicts, nothing changed", "schema": {"$ref": "#/definitions/CommitResponse"}}
                }
            },
            "delete": {
                "tags": ["Reservations"],
                "summary": "Remove a reservation",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true}
                ],
                "responses": {
                    "204": {"description": "Removed"},
                    "404": {"description": "Unknown reservation", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CheckConflictsRequest": {
            "type": "object",
            "required": ["resource_ids", "start_time", "end_time"],
            "properties": {
                "resource_ids": {"type": "array", "items": {"type": "integer"}},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "exclude_schedule_id": {"type": "integer"}
            }
        },
        "Conflict": {
            "type": "object",
            "properties": {
                "resource_id": {"type": "integer"},
                "resource_name": {"type": "string"},
                "conflicting_schedule_id": {"type": "integer"},
                "conflicting_event_id": {"type": "integer"},
                "conflicting_event_name": {"type": "string"},
                "conflicting_task_id": {"type": "integer"},
                "conflicting_task_title": {"type": "string"},
                "existing_start_time": {"type": "string", "format": "date-time"},
                "existing_end_time": {"type": "string", "format": "date-time"},
                "requested_start_time": {"type": "string", "format": "date-time"},
                "requested_end_time": {"type": "string", "format": "date-time"},
                "message": {"type": "string"}
            }
        },
        "CheckConflictsResponse": {
            "type": "object",
            "properties": {
                "has_conflicts": {"type": "boolean"},
                "conflicts": {"type": "array", "items": {"$ref": "#/definitions/Conflict"}}
            }
        },
        "CommitReservationRequest": {
            "type": "object",
            "required": ["resource_ids", "start_time", "end_time", "event_id"],
            "properties": {
                "resource_ids": {"type": "array", "items": {"type": "integer"}},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "event_id": {"type": "integer"},
                "task_id": {"type": "integer"},
                "force": {"type": "boolean"},
                "notes": {"type": "string"}
            }
        },
        "ReviseReservationRequest": {
            "type": "object",
            "required": ["start_time", "end_time"],
            "properties": {
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "force": {"type": "boolean"}
            }
        },
        "Reservation": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "resource_id": {"type": "integer"},
                "event_id": {"type": "integer"},
                "task_id": {"type": "integer"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "notes": {"type": "string"},
                "is_override": {"type": "boolean"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "CommitResponse": {
            "type": "object",
            "properties": {
                "committed": {"type": "boolean"},
                "reservations": {"type": "array", "items": {"$ref": "#/definitions/Reservation"}},
                "conflicts": {"type": "array", "items": {"$ref": "#/definitions/Conflict"}}
            }
        },
        "AvailabilityEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "event_id": {"type": "integer"},
                "event_name": {"type": "string"},
                "task_id": {"type": "integer"},
                "task_title": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "notes": {"type": "string"},
                "is_override": {"type": "boolean"}
            }
        },
        "AvailabilityResponse": {
            "type": "object",
            "properties": {
                "resource_id": {"type": "integer"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "entries": {"type": "array", "items": {"$ref": "#/definitions/AvailabilityEntry"}}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "ErrorEnvelope": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/APIError"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
