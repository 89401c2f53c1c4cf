package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func registerSwaggerRoutes(r chi.Router) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	r.Get("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	})

	r.Get("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Tenmo Ledger API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Tenmo Ledger API",
    "version": "1.0.0"
  },
  "security": [{"BasicAuth": []}],
  "paths": {
    "/health": {
      "get": {
        "summary": "Liveness and store reachability",
        "security": [],
        "responses": {
          "200": {"description": "Up"},
          "503": {"description": "Store unreachable"}
        }
      }
    },
    "/balance": {
      "get": {
        "summary": "Caller's account and balance",
        "responses": {
          "200": {"description": "Balance fetched", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/AccountEnvelope"}}}},
          "401": {"description": "Unauthorized"},
          "404": {"description": "Caller has no account"}
        }
      }
    },
    "/accounts": {
      "get": {
        "summary": "List accounts",
        "responses": {
          "200": {"description": "Accounts fetched"},
          "401": {"description": "Unauthorized"}
        }
      }
    },
    "/accounts/users/{userId}": {
      "get": {
        "summary": "Account owned by a user",
        "parameters": [{"$ref": "#/components/parameters/UserID"}],
        "responses": {
          "200": {"description": "Account fetched", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/AccountEnvelope"}}}},
          "400": {"description": "Invalid id"},
          "404": {"description": "Not found"}
        }
      }
    },
    "/users": {
      "get": {
        "summary": "List users",
        "responses": {
          "200": {"description": "Users fetched"},
          "401": {"description": "Unauthorized"}
        }
      }
    },
    "/users/{id}": {
      "get": {
        "summary": "Get user",
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "integer", "format": "int64"}}],
        "responses": {
          "200": {"description": "User fetched"},
          "404": {"description": "Not found"}
        }
      }
    },
    "/transfers": {
      "post": {
        "summary": "Send funds from the caller's account",
        "parameters": [{"$ref": "#/components/parameters/IdempotencyKey"}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["accountTo", "amount"],
                "properties": {
                  "accountTo": {"type": "integer", "format": "int64"},
                  "amount": {"type": "string", "example": "40.00"}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Transfer recorded as Approved, or Rejected when funds are insufficient", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/TransferEnvelope"}}}},
          "400": {"description": "Validation error"},
          "404": {"description": "Account not found"},
          "409": {"description": "Idempotency-Key in flight"},
          "422": {"description": "Idempotency-Key reused with a different body"},
          "503": {"description": "Ledger unavailable"}
        }
      }
    },
    "/transfers/requests": {
      "post": {
        "summary": "Request funds into the caller's account",
        "parameters": [{"$ref": "#/components/parameters/IdempotencyKey"}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["accountFrom", "amount"],
                "properties": {
                  "accountFrom": {"type": "integer", "format": "int64"},
                  "amount": {"type": "string", "example": "25.00"}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Pending request recorded", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/TransferEnvelope"}}}},
          "400": {"description": "Validation error"},
          "404": {"description": "Account not found"}
        }
      }
    },
    "/transfers/pending": {
      "get": {
        "summary": "Pending requests the caller is asked to pay",
        "responses": {
          "200": {"description": "Pending transfers fetched"}
        }
      }
    },
    "/transfers/accounts/{accountId}": {
      "get": {
        "summary": "Transfers involving the caller's account",
        "parameters": [{"name": "accountId", "in": "path", "required": true, "schema": {"type": "integer", "format": "int64"}}],
        "responses": {
          "200": {"description": "Transfers fetched"},
          "403": {"description": "Not the caller's account"}
        }
      }
    },
    "/transfers/{id}": {
      "get": {
        "summary": "Get a transfer the caller takes part in",
        "parameters": [{"$ref": "#/components/parameters/TransferID"}],
        "responses": {
          "200": {"description": "Transfer fetched", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/TransferEnvelope"}}}},
          "403": {"description": "Caller is not a party"},
          "404": {"description": "Not found"}
        }
      },
      "put": {
        "summary": "Approve or reject a pending request",
        "parameters": [{"$ref": "#/components/parameters/TransferID"}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["status"],
                "properties": {
                  "status": {"type": "string", "enum": ["Approved", "Rejected"]}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Request resolved", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/TransferEnvelope"}}}},
          "400": {"description": "Validation error"},
          "403": {"description": "Caller is not the payer"},
          "404": {"description": "Not found"},
          "409": {"description": "Transfer is not a pending request"}
        }
      }
    }
  },
  "components": {
    "securitySchemes": {
      "BasicAuth": {"type": "http", "scheme": "basic"}
    },
    "parameters": {
      "TransferID": {"name": "id", "in": "path", "required": true, "schema": {"type": "integer", "format": "int64"}},
      "UserID": {"name": "userId", "in": "path", "required": true, "schema": {"type": "integer", "format": "int64"}},
      "IdempotencyKey": {"name": "Idempotency-Key", "in": "header", "required": false, "schema": {"type": "string", "maxLength": 128}}
    },
    "schemas": {
      "Transfer": {
        "type": "object",
        "properties": {
          "transferId": {"type": "integer", "format": "int64"},
          "transferType": {"type": "string", "enum": ["Request", "Send"]},
          "transferStatus": {"type": "string", "enum": ["Pending", "Approved", "Rejected"]},
          "accountFrom": {"type": "integer", "format": "int64"},
          "accountTo": {"type": "integer", "format": "int64"},
          "amount": {"type": "string"},
          "createdAt": {"type": "string", "format": "date-time"}
        }
      },
      "TransferEnvelope": {
        "type": "object",
        "properties": {
          "success": {"type": "boolean"},
          "message": {"type": "string"},
          "data": {"$ref": "#/components/schemas/Transfer"},
          "errors": {"type": "array", "items": {"type": "string"}}
        }
      },
      "Account": {
        "type": "object",
        "properties": {
          "accountId": {"type": "integer", "format": "int64"},
          "userId": {"type": "integer", "format": "int64"},
          "balance": {"type": "string"}
        }
      },
      "AccountEnvelope": {
        "type": "object",
        "properties": {
          "success": {"type": "boolean"},
          "message": {"type": "string"},
          "data": {"$ref": "#/components/schemas/Account"},
          "errors": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`
