package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Enrollment Workflow API",
        "description": "Enlistment, approval and fee reconciliation service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and session management"},
        {"name": "Enlistments", "description": "Enlistment workflow transitions"},
        {"name": "Payments", "description": "Fee amounts and payment reconciliation"},
        {"name": "Catalog", "description": "Reference data"},
        {"name": "History", "description": "Append-only audit trail"},
        {"name": "Window", "description": "Enrollment window"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
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
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Change password",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enlistments": {
            "get": {
                "tags": ["Enlistments"],
                "summary": "List enlistments",
                "parameters": [
                    {"name": "school_year", "in": "query", "type": "string"},
                    {"name": "semester", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enlistments"],
                "summary": "Submit enlistment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitEnlistmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Window closed or duplicate term"}
                }
            }
        },
        "/enlistments/{id}": {
            "get": {
                "tags": ["Enlistments"],
                "summary": "Get enlistment snapshot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/enlistments/{id}/preapprove": {
            "post": {
                "tags": ["Enlistments"],
                "summary": "Adviser pre-approval",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Invalid state"}
                }
            }
        },
        "/enlistments/{id}/return": {
            "post": {
                "tags": ["Enlistments"],
                "summary": "Return for revision",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Invalid state"}
                }
            }
        },
        "/enlistments/{id}/review": {
            "post": {
                "tags": ["Enlistments"],
                "summary": "Finance review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Invalid state"}
                }
            }
        },
        "/enlistments/{id}/final-approve": {
            "post": {
                "tags": ["Enlistments"],
                "summary": "Final approval with subjects",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FinalApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Invalid state"}
                }
            }
        },
        "/enlistments/{id}/payment/amounts": {
            "put": {
                "tags": ["Payments"],
                "summary": "Set fee amounts",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/enlistments/{id}/payment/submit": {
            "post": {
                "tags": ["Payments"],
                "summary": "Submit payment claim",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Validation failure"}
                }
            }
        },
        "/enlistments/{id}/payment/record": {
            "post": {
                "tags": ["Payments"],
                "summary": "Record payment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Invalid state"}
                }
            }
        },
        "/enlistments/{id}/payment/receipt": {
            "get": {
                "tags": ["Payments"],
                "summary": "Download payment receipt",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF"}
                }
            }
        },
        "/enlistments/{id}/history": {
            "get": {
                "tags": ["History"],
                "summary": "Enlistment history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/history": {
            "get": {
                "tags": ["History"],
                "summary": "Recent history",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/history/export": {
            "get": {
                "tags": ["History"],
                "summary": "Export history as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV"}
                }
            }
        },
        "/window": {
            "get": {
                "tags": ["Window"],
                "summary": "Get enrollment window",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "put": {
                "tags": ["Window"],
                "summary": "Update enrollment window",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/catalog/subjects": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List subjects",
                "responses": {
                    "200": {"description": "OK"}
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
        "SubmitEnlistmentRequest": {
            "type": "object",
            "required": ["school_year", "semester"],
            "properties": {
                "school_year": {"type": "string"},
                "semester": {"type": "string"},
                "category_id": {"type": "string"},
                "program_id": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "FinalApproveRequest": {
            "type": "object",
            "required": ["subject_ids"],
            "properties": {
                "subject_ids": {"type": "array", "items": {"type": "string"}}
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
