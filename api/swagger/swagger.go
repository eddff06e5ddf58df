package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Reading Log",
        "description": "Student reading log views and the self-hosted record script endpoint",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Script", "description": "Drop-in replacement for the spreadsheet script"},
        {"name": "Ops", "description": "Liveness, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Ops"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Ops"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/exec": {
            "get": {
                "tags": ["Script"],
                "summary": "Query the record backend",
                "parameters": [
                    {"name": "action", "in": "query", "type": "string", "required": true, "enum": ["getDashboard"]}
                ],
                "responses": {
                    "200": {"description": "Envelope with every student's total", "schema": {"$ref": "#/definitions/DashboardResponse"}}
                }
            },
            "post": {
                "tags": ["Script"],
                "summary": "Run a record backend action",
                "consumes": ["text/plain", "application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScriptRequest"}}
                ],
                "responses": {
                    "200": {"description": "Envelope; branch on success", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "Student": {
            "type": "object",
            "properties": {
                "number": {"type": "string"},
                "name": {"type": "string"},
                "totalPageCount": {"type": "integer"}
            }
        },
        "BookEntry": {
            "type": "object",
            "properties": {
                "no": {"type": "integer"},
                "date": {"type": "string", "example": "2024-03-09"},
                "title": {"type": "string"},
                "publisher": {"type": "string"},
                "impression": {"type": "string"},
                "pages": {"type": "integer"},
                "cumulativePages": {"type": "integer"}
            }
        },
        "NewBookEntry": {
            "type": "object",
            "required": ["date", "title", "publisher", "impression", "pages"],
            "properties": {
                "date": {"type": "string", "example": "2024-03-09"},
                "title": {"type": "string"},
                "publisher": {"type": "string"},
                "impression": {"type": "string"},
                "pages": {"type": "integer", "minimum": 1}
            }
        },
        "ScriptRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["login", "addEntry", "getDashboard"]},
                "number": {"type": "string"},
                "name": {"type": "string"},
                "password": {"type": "string"},
                "student": {"$ref": "#/definitions/Student"},
                "entry": {"$ref": "#/definitions/NewBookEntry"}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {"type": "object"}
            }
        },
        "DashboardResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/Student"}}
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
