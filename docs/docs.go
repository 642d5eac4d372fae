// Package docs registers the OpenAPI document of the HTTP API with swag
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/r/{id}": {
            "get": {
                "description": "Redirect to the destination of an active code, or render a not found page",
                "produces": ["text/html"],
                "tags": ["Redirect"],
                "summary": "Resolve QR Code",
                "parameters": [
                    {"type": "string", "description": "QR code ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "Redirect to destination"},
                    "404": {"description": "Unknown or disabled code"}
                }
            }
        },
        "/api/v1/auth/captcha": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "Get Captcha",
                "responses": {
                    "200": {"description": "Challenge issued", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "503": {"description": "Captcha disabled", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/auth/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "User Registration",
                "parameters": [
                    {"description": "User registration data", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Account created", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "409": {"description": "User already exists", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "User Login",
                "parameters": [
                    {"description": "Login credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Login successful", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Invalid credentials or inactive account", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/auth/refresh": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "Refresh Session",
                "parameters": [
                    {"description": "Refresh token", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "Session refreshed", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Refresh token rejected", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/auth/session": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "Current Session",
                "responses": {
                    "200": {"description": "Session retrieved", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "No active session", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Authentication"],
                "summary": "Logout",
                "responses": {
                    "200": {"description": "Logged out", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "No active session", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Profile"],
                "summary": "Get profile",
                "responses": {
                    "200": {"description": "Profile retrieved successfully", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/qr-codes": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["QR Codes"],
                "summary": "List QR Codes",
                "responses": {
                    "200": {"description": "QR codes retrieved", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["QR Codes"],
                "summary": "Create QR Code",
                "parameters": [
                    {"description": "QR code data", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateQRCodeRequest"}}
                ],
                "responses": {
                    "201": {"description": "QR code created", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/qr-codes/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["QR Codes"],
                "summary": "Get QR Code",
                "parameters": [
                    {"type": "string", "description": "QR code ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "QR code retrieved", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "QR code not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["QR Codes"],
                "summary": "Delete QR Code",
                "parameters": [
                    {"type": "string", "description": "QR code ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "QR code deleted", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "QR code not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/qr-codes/{id}/destination": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["QR Codes"],
                "summary": "Update QR Destination",
                "parameters": [
                    {"type": "string", "description": "QR code ID", "name": "id", "in": "path", "required": true},
                    {"description": "New destination", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UpdateQRDestinationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Destination updated", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "QR code not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "409": {"description": "QR code is static", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/qr-codes/{id}/active": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["QR Codes"],
                "summary": "Activate or Deactivate QR Code",
                "parameters": [
                    {"type": "string", "description": "QR code ID", "name": "id", "in": "path", "required": true},
                    {"description": "Active flag", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.SetQRActiveRequest"}}
                ],
                "responses": {
                    "200": {"description": "QR code updated", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "QR code not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/qr-codes/{id}/image": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["image/png", "application/json"],
                "tags": ["QR Codes"],
                "summary": "Render QR Code Image",
                "parameters": [
                    {"type": "string", "description": "QR code ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Edge length in pixels", "name": "size", "in": "query"},
                    {"type": "boolean", "description": "Draw the code name under the image", "name": "label", "in": "query"},
                    {"type": "string", "description": "png (default) or data_uri", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "PNG image", "schema": {"type": "file"}},
                    "404": {"description": "QR code not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/qr-codes/{id}/scans": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["QR Codes"],
                "summary": "List QR Scans",
                "parameters": [
                    {"type": "string", "description": "QR code ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Maximum scans to return", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Scans retrieved", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "QR code not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/qr-codes/{id}/scans/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/octet-stream"],
                "tags": ["QR Codes"],
                "summary": "Export QR Scans",
                "parameters": [
                    {"type": "string", "description": "QR code ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "csv (default) or xlsx", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Scan export", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "QR code not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {},
                "error": {}
            }
        },
        "dto.SignupRequest": {
            "type": "object",
            "required": ["full_name", "email", "password", "confirm_password"],
            "properties": {
                "full_name": {"type": "string", "example": "Maria Souza"},
                "email": {"type": "string", "example": "maria@example.com"},
                "password": {"type": "string", "example": "SecurePass123!"},
                "confirm_password": {"type": "string", "example": "SecurePass123!"},
                "captcha_id": {"type": "string"},
                "captcha_angle": {"type": "number"}
            }
        },
        "dto.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string", "example": "maria@example.com"},
                "password": {"type": "string", "example": "SecurePass123!"}
            }
        },
        "dto.RefreshRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "dto.CreateQRCodeRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "Restaurant menu"},
                "destination_url": {"type": "string", "example": "https://example.com/menu"},
                "is_dynamic": {"type": "boolean", "example": true}
            }
        },
        "dto.UpdateQRDestinationRequest": {
            "type": "object",
            "properties": {
                "destination_url": {"type": "string", "example": "https://example.com/new-menu"}
            }
        },
        "dto.SetQRActiveRequest": {
            "type": "object",
            "required": ["is_active"],
            "properties": {
                "is_active": {"type": "boolean", "example": false}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Magic QR Flows API",
	Description:      "Dynamic QR codes with owner-scoped management, scan analytics and session events.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
