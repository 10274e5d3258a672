package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Kintai API",
        "description": "Attendance tracking with correction request workflow",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "Attendance", "description": "Daily clock-in/out and breaks"},
        {"name": "Corrections", "description": "Employee correction requests"},
        {"name": "Admin", "description": "Reviewer operations"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and receive a token pair",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the current session",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Change the current user's password",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List own attendance with corrections applied",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/today": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Get today's record",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not clocked in"}
                }
            }
        },
        "/attendance/clock-in": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Clock in for today",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Already clocked in"}
                }
            }
        },
        "/attendance/clock-out": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Clock out for today",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Open break or already clocked out"}
                }
            }
        },
        "/attendance/breaks/start": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Start a break",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Break already in progress"}
                }
            }
        },
        "/attendance/breaks/end": {
            "post": {
                "tags": ["Attendance"],
                "summary": "End the current break",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "No break in progress"}
                }
            }
        },
        "/corrections": {
            "get": {
                "tags": ["Corrections"],
                "summary": "List own correction requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Corrections"],
                "summary": "Submit a correction request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCorrectionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation error"},
                    "404": {"description": "Attendance record not found"}
                }
            }
        },
        "/corrections/{id}": {
            "get": {
                "tags": ["Corrections"],
                "summary": "Get one correction request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Corrections"],
                "summary": "Update a pending correction request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Only pending requests can be updated"}
                }
            },
            "delete": {
                "tags": ["Corrections"],
                "summary": "Cancel a pending correction request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Only pending requests can be cancelled"}
                }
            }
        },
        "/admin/corrections": {
            "get": {
                "tags": ["Admin"],
                "summary": "List correction requests across all users",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "user_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "per_page", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/corrections/{id}/approve": {
            "post": {
                "tags": ["Admin"],
                "summary": "Approve a pending correction request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecisionPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Cannot approve own request"},
                    "409": {"description": "Snapshot changed or already processed"}
                }
            }
        },
        "/admin/corrections/{id}/reject": {
            "post": {
                "tags": ["Admin"],
                "summary": "Reject a pending correction request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecisionPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Already processed"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RefreshTokenRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "CreateCorrectionRequest": {
            "type": "object",
            "required": ["date", "reason"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "clock_in_time": {"type": "string", "format": "date-time"},
                "clock_out_time": {"type": "string", "format": "date-time"},
                "breaks": {"type": "array", "items": {"$ref": "#/definitions/BreakItem"}},
                "reason": {"type": "string", "maxLength": 500}
            }
        },
        "BreakItem": {
            "type": "object",
            "required": ["break_start_time"],
            "properties": {
                "break_start_time": {"type": "string", "format": "date-time"},
                "break_end_time": {"type": "string", "format": "date-time"}
            }
        },
        "DecisionPayload": {
            "type": "object",
            "required": ["comment"],
            "properties": {
                "comment": {"type": "string", "maxLength": 500}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
