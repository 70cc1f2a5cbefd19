// Package docs registers the OpenAPI document served at /swagger.
// Regenerate with `go generate ./cmd/chronicle`.
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
        "/healthz": {"get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}},
        "/readyz": {"get": {"tags": ["health"], "summary": "Readiness check", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/webhooks/{source}": {
            "get": {"tags": ["webhooks"], "summary": "Webhook endpoint status",
                "parameters": [{"type": "string", "name": "source", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "post": {"tags": ["webhooks"], "summary": "Receive a webhook delivery", "consumes": ["application/json"],
                "parameters": [{"type": "string", "description": "github|gitlab|ansible|prometheus|watchtower", "name": "source", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "429": {"description": "Too Many Requests"}, "500": {"description": "Internal Server Error"}}}
        },
        "/api/events": {
            "get": {"tags": ["events"], "summary": "List events",
                "parameters": [
                    {"type": "string", "name": "category", "in": "query"},
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "integer", "default": 100, "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["events"], "summary": "Create an event", "consumes": ["application/json"],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}
        },
        "/api/events/stream": {"get": {"tags": ["events"], "summary": "Websocket feed of created events", "responses": {"101": {"description": "Switching Protocols"}}}},
        "/api/events/{id}": {
            "get": {"tags": ["events"], "summary": "Get an event", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["events"], "summary": "Update an event", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["events"], "summary": "Delete an event", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/events/{id}/related": {"get": {"tags": ["events"], "summary": "Linked and suggested related events", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/events/{id}/versions": {
            "get": {"tags": ["versions"], "summary": "Version history of an event", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["versions"], "summary": "Restore an event to a previous version", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/events/{id}/links": {
            "get": {"tags": ["links"], "summary": "Links of an event", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["links"], "summary": "Link two events", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["links"], "summary": "Remove a link", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "linkId", "in": "query", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/search": {"get": {"tags": ["search"], "summary": "Search events with facets",
            "parameters": [
                {"type": "string", "name": "q", "in": "query"},
                {"type": "string", "name": "category", "in": "query"},
                {"type": "string", "name": "source", "in": "query"},
                {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "name": "tag", "in": "query"},
                {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "name": "service", "in": "query"},
                {"type": "string", "name": "node", "in": "query"},
                {"type": "string", "name": "startDate", "in": "query"},
                {"type": "string", "name": "endDate", "in": "query"},
                {"type": "integer", "default": 50, "name": "limit", "in": "query"},
                {"type": "integer", "name": "offset", "in": "query"}],
            "responses": {"200": {"description": "OK"}}}},
        "/api/stats": {"get": {"tags": ["stats"], "summary": "Timeline statistics", "parameters": [{"type": "string", "default": "all", "name": "period", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/api/on-this-day": {"get": {"tags": ["stats"], "summary": "Events on this calendar day in earlier years", "parameters": [{"type": "string", "name": "date", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/api/export": {"get": {"tags": ["export"], "summary": "Export events", "produces": ["application/json", "text/markdown", "text/csv"],
            "parameters": [{"type": "string", "default": "json", "name": "format", "in": "query"}, {"type": "string", "name": "category", "in": "query"}, {"type": "string", "name": "startDate", "in": "query"}, {"type": "string", "name": "endDate", "in": "query"}],
            "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}}},
        "/api/report": {"get": {"tags": ["export"], "summary": "Period report", "produces": ["text/html", "text/markdown", "application/json"],
            "parameters": [{"type": "string", "default": "html", "name": "format", "in": "query"}, {"type": "string", "default": "month", "name": "period", "in": "query"}, {"type": "string", "name": "startDate", "in": "query"}, {"type": "string", "name": "endDate", "in": "query"}, {"type": "string", "name": "category", "in": "query"}, {"type": "boolean", "name": "includeStats", "in": "query"}],
            "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}}},
        "/api/import": {"post": {"security": [{"BearerAuth": []}], "tags": ["import"], "summary": "Import events from a JSON export", "consumes": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/api/import/changelog": {"post": {"security": [{"BearerAuth": []}], "tags": ["import"], "summary": "Import a CHANGELOG.md document", "consumes": ["text/plain"], "responses": {"200": {"description": "OK"}}}},
        "/api/import/gitlog": {"post": {"security": [{"BearerAuth": []}], "tags": ["import"], "summary": "Import git log output", "consumes": ["text/plain"], "responses": {"200": {"description": "OK"}}}},
        "/api/sync/github": {
            "get": {"tags": ["sync"], "summary": "Last GitHub sync attempt", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["sync"], "summary": "Poll GitHub for new commits now", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/webhooks/logs": {"get": {"tags": ["webhooks"], "summary": "List webhook deliveries",
            "parameters": [{"type": "string", "name": "source", "in": "query"}, {"type": "boolean", "name": "processed", "in": "query"}, {"type": "integer", "default": 50, "name": "limit", "in": "query"}, {"type": "integer", "name": "offset", "in": "query"}],
            "responses": {"200": {"description": "OK"}}}},
        "/api/templates": {
            "get": {"tags": ["templates"], "summary": "List event templates", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["templates"], "summary": "Create an event template", "consumes": ["application/json"], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}
        },
        "/api/templates/{id}": {
            "get": {"tags": ["templates"], "summary": "Get an event template", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["templates"], "summary": "Update an event template", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["templates"], "summary": "Delete an event template", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/api/backup": {
            "get": {"tags": ["backup"], "summary": "List backups", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["backup"], "summary": "Write a backup file", "responses": {"201": {"description": "Created"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["backup"], "summary": "Restore a recorded backup", "consumes": ["application/json"], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/api/backup/export": {"get": {"tags": ["backup"], "summary": "Download a fresh snapshot", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}}},
        "/api/backup/restore": {"post": {"security": [{"BearerAuth": []}], "tags": ["backup"], "summary": "Restore from an uploaded snapshot", "consumes": ["application/json"],
            "parameters": [{"type": "boolean", "name": "restoreEvents", "in": "query"}, {"type": "boolean", "name": "restoreTemplates", "in": "query"}, {"type": "boolean", "name": "restoreWebhookLogs", "in": "query"}, {"type": "boolean", "name": "clearExisting", "in": "query"}],
            "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/api/backup/{id}/download": {"get": {"tags": ["backup"], "summary": "Download a recorded backup file", "produces": ["application/json"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK", "schema": {"type": "file"}}, "404": {"description": "Not Found"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Homelab Chronicle API",
	Description:      "Timeline of homelab changes: webhook ingestion, events, search, statistics and exports.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
