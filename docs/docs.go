// Package docs registers the avatargo OpenAPI document with swag.
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
        "/api/v1/avatar": {
            "get": {
                "description": "Streams avatar-{state}.mp4. Honors a single bytes= Range header for seeking.",
                "produces": ["video/mp4", "application/json"],
                "summary": "Stream an avatar video",
                "parameters": [
                    {
                        "enum": ["nodding", "speaking"],
                        "type": "string",
                        "name": "state",
                        "in": "query",
                        "required": true
                    },
                    {
                        "enum": [100, 200, 300, 400, 500, 600, 700, 800, 900, 1024],
                        "type": "integer",
                        "description": "read granularity in KB, default 200",
                        "name": "chunk_size",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "single range, e.g. bytes=0-1023",
                        "name": "Range",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {"description": "whole file", "schema": {"type": "file"}},
                    "206": {"description": "requested byte range", "schema": {"type": "file"}},
                    "400": {"description": "invalid state or malformed Range", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "video file not found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "416": {"description": "range not satisfiable", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "avatargo API",
	Description:      "Range-aware streaming of avatar videos.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
