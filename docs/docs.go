// Package docs registers the OpenAPI document for the broker's admin API.
// It is kept in the layout swag init produces so the annotations on the
// handlers can regenerate it.
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
		"/health": {
			"get": {
				"summary": "Health check",
				"tags": [
					"health"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.healthResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/handlers.healthResponse"
						}
					}
				}
			}
		},
		"/api/auth/login": {
			"post": {
				"summary": "Admin login",
				"tags": [
					"auth"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.loginRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.loginResponse"
						}
					},
					"401": {
						"description": "Invalid credentials",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					},
					"429": {
						"description": "Too many requests",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			}
		},
		"/api/auth/me": {
			"get": {
				"summary": "Current admin",
				"tags": [
					"auth"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			}
		},
		"/api/auth/logout": {
			"post": {
				"summary": "Admin logout",
				"tags": [
					"auth"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			}
		},
		"/api/connections": {
			"get": {
				"summary": "List CRM connections",
				"tags": [
					"connections"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			},
			"post": {
				"summary": "Create CRM connection",
				"tags": [
					"connections"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.crmConnectionRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					},
					"422": {
						"description": "Validation failed",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			}
		},
		"/api/connections/{id}": {
			"get": {
				"summary": "Get CRM connection",
				"tags": [
					"connections"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "Connection id",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					},
					"404": {
						"description": "Not found",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			},
			"put": {
				"summary": "Update CRM connection",
				"tags": [
					"connections"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "Connection id",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.crmConnectionRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					},
					"404": {
						"description": "Not found",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					},
					"422": {
						"description": "Validation failed",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			},
			"delete": {
				"summary": "Delete CRM connection",
				"tags": [
					"connections"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "Connection id",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					},
					"404": {
						"description": "Not found",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			}
		},
		"/api/connections/{id}/test": {
			"post": {
				"summary": "Test CRM connection",
				"tags": [
					"connections"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "Connection id",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			}
		},
		"/api/connections/{id}/status": {
			"get": {
				"summary": "CRM connection status",
				"tags": [
					"connections"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "Connection id",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			}
		},
		"/api/bitrix/oauth/initiate/{id}": {
			"get": {
				"summary": "Start CRM OAuth authorization",
				"tags": [
					"oauth"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "Connection id",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"302": {
						"description": "Found"
					},
					"400": {
						"description": "Connection is not configured for OAuth",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			}
		},
		"/api/bitrix/oauth/callback": {
			"get": {
				"summary": "CRM OAuth callback",
				"tags": [
					"oauth"
				],
				"parameters": [
					{
						"type": "string",
						"name": "code",
						"in": "query"
					},
					{
						"type": "string",
						"name": "state",
						"in": "query"
					},
					{
						"type": "string",
						"name": "domain",
						"in": "query"
					}
				],
				"responses": {
					"302": {
						"description": "Found"
					}
				}
			}
		},
		"/api/ai-connections": {
			"get": {
				"summary": "List AI connections",
				"tags": [
					"ai"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			},
			"post": {
				"summary": "Create AI connection",
				"tags": [
					"ai"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.aiConnectionRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					},
					"422": {
						"description": "Validation failed",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			}
		},
		"/api/ai-connections/{id}": {
			"get": {
				"summary": "Get AI connection",
				"tags": [
					"ai"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "Connection id",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					},
					"404": {
						"description": "Not found",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			},
			"put": {
				"summary": "Update AI connection",
				"tags": [
					"ai"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "Connection id",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.aiConnectionRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					},
					"404": {
						"description": "Not found",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					},
					"422": {
						"description": "Validation failed",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			},
			"delete": {
				"summary": "Delete AI connection",
				"tags": [
					"ai"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "Connection id",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					},
					"404": {
						"description": "Not found",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			}
		},
		"/api/ai-connections/{id}/test": {
			"post": {
				"summary": "Test AI connection",
				"tags": [
					"ai"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "Connection id",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			}
		},
		"/api/ai/chat": {
			"post": {
				"summary": "AI chat with provider fallback",
				"tags": [
					"ai"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.chatRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					},
					"422": {
						"description": "Validation failed",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					},
					"503": {
						"description": "No provider available or all providers failed",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			}
		},
		"/api/dashboard/status": {
			"get": {
				"summary": "Dashboard status",
				"tags": [
					"dashboard"
				],
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.envelope"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"handlers.envelope": {
			"type": "object",
			"properties": {
				"data": {},
				"message": {
					"type": "string"
				},
				"errors": {}
			}
		},
		"handlers.loginRequest": {
			"type": "object",
			"required": [
				"username",
				"password"
			],
			"properties": {
				"username": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			}
		},
		"handlers.loginResponse": {
			"type": "object",
			"properties": {
				"token": {
					"type": "string"
				},
				"username": {
					"type": "string"
				},
				"expires_at": {
					"type": "string"
				}
			}
		},
		"handlers.healthResponse": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string"
				},
				"checks": {
					"type": "object",
					"additionalProperties": {
						"type": "string"
					}
				}
			}
		},
		"handlers.crmConnectionRequest": {
			"type": "object",
			"required": [
				"name",
				"domain",
				"bitrix_user_id"
			],
			"properties": {
				"name": {
					"type": "string",
					"maxLength": 255
				},
				"domain": {
					"type": "string",
					"maxLength": 255
				},
				"bitrix_user_id": {
					"type": "integer",
					"minimum": 1
				},
				"auth_type": {
					"type": "string",
					"enum": [
						"webhook",
						"oauth"
					]
				},
				"webhook_code": {
					"type": "string",
					"maxLength": 255
				},
				"client_id": {
					"type": "string",
					"maxLength": 255
				},
				"client_secret": {
					"type": "string"
				},
				"is_active": {
					"type": "boolean"
				}
			}
		},
		"handlers.aiConnectionRequest": {
			"type": "object",
			"required": [
				"name",
				"provider"
			],
			"properties": {
				"name": {
					"type": "string",
					"maxLength": 255
				},
				"provider": {
					"type": "string",
					"enum": [
						"openai",
						"anthropic"
					]
				},
				"api_key": {
					"type": "string"
				},
				"model": {
					"type": "string",
					"maxLength": 255
				},
				"priority": {
					"type": "integer",
					"minimum": 1,
					"maximum": 100
				},
				"is_active": {
					"type": "boolean"
				}
			}
		},
		"handlers.chatRequest": {
			"type": "object",
			"required": [
				"messages"
			],
			"properties": {
				"messages": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/models.ChatMessage"
					}
				}
			}
		},
		"models.ChatMessage": {
			"type": "object",
			"properties": {
				"role": {
					"type": "string",
					"enum": [
						"system",
						"user",
						"assistant"
					]
				},
				"content": {
					"type": "string"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Bearer token from /api/auth/login",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:		  "1.0",
	Host:			 "",
	BasePath:		 "/",
	Schemes:		  []string{},
	Title:			"Connection Broker API",
	Description:	  "Admin API for CRM connection health and AI provider fallback.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:		"{{",
	RightDelim:	   "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
