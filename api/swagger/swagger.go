package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Slot API",
        "description": "Campus time slots and their day-by-day availability",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Slots", "description": "Slot registry and allocatable listings"},
        {"name": "Exports", "description": "CSV, PDF and iCalendar renditions"}
    ],
    "paths": {
        "/slots": {
            "get": {
                "tags": ["Slots"],
                "summary": "List valid slots ordered by campus and start time",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Store failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Slots"],
                "summary": "Create slot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSlotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot already exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/campuses/{campusId}/allocatable-slots": {
            "get": {
                "tags": ["Slots"],
                "summary": "List slots allocatable on the reference date",
                "parameters": [
                    {"name": "campusId", "in": "path", "required": true, "type": "integer"},
                    {"name": "from", "in": "query", "type": "string", "description": "Only slots ending after this time (HH:MM:SS)"},
                    {"name": "date", "in": "query", "type": "string", "description": "Reference date (YYYY-MM-DD), defaults to today"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No allocatable slots", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/campuses/{campusId}/slots/{startTime}": {
            "get": {
                "tags": ["Slots"],
                "summary": "Get slot and its availability",
                "parameters": [
                    {"name": "campusId", "in": "path", "required": true, "type": "integer"},
                    {"name": "startTime", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Slots"],
                "summary": "Update slot attributes",
                "parameters": [
                    {"name": "campusId", "in": "path", "required": true, "type": "integer"},
                    {"name": "startTime", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Slots"],
                "summary": "Delete slot",
                "parameters": [
                    {"name": "campusId", "in": "path", "required": true, "type": "integer"},
                    {"name": "startTime", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/campuses/{campusId}/slots/{startTime}/rekey": {
            "put": {
                "tags": ["Slots"],
                "summary": "Move slot to a new start time",
                "parameters": [
                    {"name": "campusId", "in": "path", "required": true, "type": "integer"},
                    {"name": "startTime", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RekeySlotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Target start time taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/campuses/{campusId}/allocatable-slots/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export allocatable slots",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "campusId", "in": "path", "required": true, "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/campuses/{campusId}/calendar.ics": {
            "get": {
                "tags": ["Exports"],
                "summary": "Campus slot calendar for a day",
                "produces": ["text/calendar"],
                "parameters": [
                    {"name": "campusId", "in": "path", "required": true, "type": "integer"},
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "iCalendar document", "schema": {"type": "file"}}
                }
            }
        }
    },
    "definitions": {
        "Slot": {
            "type": "object",
            "properties": {
                "campus_id": {"type": "integer"},
                "start_time": {"type": "string", "example": "08:00:00"},
                "end_time": {"type": "string", "example": "09:00:00"},
                "status": {"type": "string", "enum": ["V", "I"]},
                "suspended_from": {"type": "string", "format": "date"},
                "suspended_until": {"type": "string", "format": "date"}
            }
        },
        "CreateSlotRequest": {
            "type": "object",
            "required": ["campus_id", "start_time", "end_time"],
            "properties": {
                "campus_id": {"type": "integer"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "status": {"type": "string", "enum": ["V", "I"]},
                "suspended_from": {"type": "string", "format": "date"},
                "suspended_until": {"type": "string", "format": "date"}
            }
        },
        "UpdateSlotRequest": {
            "type": "object",
            "required": ["end_time"],
            "properties": {
                "end_time": {"type": "string"},
                "status": {"type": "string", "enum": ["V", "I"]},
                "suspended_from": {"type": "string", "format": "date"},
                "suspended_until": {"type": "string", "format": "date"}
            }
        },
        "RekeySlotRequest": {
            "type": "object",
            "required": ["new_start_time", "end_time"],
            "properties": {
                "new_start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "status": {"type": "string", "enum": ["V", "I"]},
                "suspended_from": {"type": "string", "format": "date"},
                "suspended_until": {"type": "string", "format": "date"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "message": {"type": "string"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
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
