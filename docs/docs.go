package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Technician Codes Backend",
    "description": "Derives technician codes, dispatch messages and chat links from field-service ticket sheets",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/healthz": {
      "get": {"tags": ["health"], "summary": "Store health", "responses": {"200": {"description": "ok"}}}
    },
    "/api/import": {
      "post": {
        "tags": ["import"],
        "summary": "Import a ticket sheet",
        "consumes": ["multipart/form-data"],
        "parameters": [{"name": "file", "in": "formData", "type": "file", "required": true}],
        "responses": {"200": {"description": "import summary"}, "400": {"description": "invalid file"}, "422": {"description": "missing columns or unparseable start time"}}
      }
    },
    "/api/batch": {
      "get": {"tags": ["batch"], "summary": "Current batch", "responses": {"200": {"description": "batch summary"}, "404": {"description": "no batch"}}}
    },
    "/api/tickets": {
      "get": {
        "tags": ["tickets"],
        "summary": "List tickets",
        "parameters": [
          {"name": "show_sent", "in": "query", "type": "boolean"},
          {"name": "category", "in": "query", "type": "string"}
        ],
        "responses": {"200": {"description": "records in sequencing order"}}
      }
    },
    "/api/tickets/{code}": {
      "get": {
        "tags": ["tickets"],
        "summary": "Ticket details",
        "parameters": [{"name": "code", "in": "path", "type": "string", "required": true}],
        "responses": {"200": {"description": "record"}, "404": {"description": "not found"}, "409": {"description": "ambiguous code"}}
      }
    },
    "/api/tickets/{code}/message": {
      "post": {
        "tags": ["tickets"],
        "summary": "Render a message with a token",
        "parameters": [{"name": "code", "in": "path", "type": "string", "required": true}],
        "responses": {"200": {"description": "message and link"}}
      }
    },
    "/api/tickets/{code}/sent": {
      "post": {
        "tags": ["tickets"],
        "summary": "Toggle the sent flag",
        "parameters": [{"name": "code", "in": "path", "type": "string", "required": true}],
        "responses": {"200": {"description": "record"}}
      }
    },
    "/api/export": {
      "get": {
        "tags": ["export"],
        "summary": "Export the consolidated sheet",
        "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["xlsx", "csv"]}],
        "responses": {"200": {"description": "file"}}
      }
    }
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
