// Package docs регистрирует OpenAPI-описание HTTP API для swaggo/http-swagger.
// Файл генерируется swag init по аннотациям обработчиков.
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
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Регистрация пользователя",
                "parameters": [
                    {"description": "Данные нового пользователя", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/register.Request"}}
                ],
                "responses": {
                    "201": {"description": "Пользователь создан", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный JSON или данные", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "409": {"description": "E-mail уже занят", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "422": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Внутренняя ошибка сервера", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Вход пользователя",
                "parameters": [
                    {"description": "Учетные данные пользователя", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/login.Request"}}
                ],
                "responses": {
                    "200": {"description": "Успешный вход", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный JSON", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "401": {"description": "Неверные учетные данные", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "422": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Выход пользователя",
                "responses": {
                    "200": {"description": "Сессия завершена", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Нет сессии", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Текущий пользователь",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Нет сессии", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/tiers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Tiers"],
                "summary": "Тарифы",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/problems": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Problems"],
                "summary": "Список задач",
                "parameters": [
                    {"type": "string", "description": "all, math, physics, introAE", "name": "subject", "in": "query"},
                    {"type": "string", "description": "all, easy, medium, hard", "name": "difficulty", "in": "query"},
                    {"type": "string", "description": "тема или all", "name": "topic", "in": "query"},
                    {"type": "string", "description": "подстрока заголовка или условия", "name": "search", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "Нет активной подписки", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "422": {"description": "Некорректный фильтр", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "503": {"description": "Каталог недоступен", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/problems/topics": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Problems"],
                "summary": "Темы задач",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/problems/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Problems"],
                "summary": "Задача",
                "parameters": [{"type": "string", "description": "Идентификатор задачи", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "Предмет не входит в тариф", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Задача не найдена", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/problems/{id}/solution": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Problems"],
                "summary": "Решение задачи",
                "parameters": [{"type": "string", "description": "Идентификатор задачи", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "Предмет не входит в тариф", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Задача не найдена", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/problems/{id}/submit": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Problems"],
                "summary": "Отметить решение задачи",
                "parameters": [
                    {"type": "string", "description": "Идентификатор задачи", "name": "id", "in": "path", "required": true},
                    {"description": "Отметка о решении", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/submit.Request"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "Предмет не входит в тариф", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Задача не найдена", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/dashboard/progress": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Dashboard"],
                "summary": "Прогресс пользователя",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/analysis": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Analysis"],
                "summary": "Анализ прогресса",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "Анализ не входит в тариф", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/checkout/create-session": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Checkout"],
                "summary": "Создать платёжную сессию",
                "parameters": [
                    {"description": "Тариф и цена", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/create.Request"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный тариф или цена, либо уже действует старший тариф", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "401": {"description": "Нет сессии", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Ошибка платёжного провайдера", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/webhooks/stripe": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Webhooks"],
                "summary": "Webhook платёжного провайдера",
                "parameters": [{"type": "string", "description": "Подпись события", "name": "Stripe-Signature", "in": "header", "required": true}],
                "responses": {
                    "200": {"description": "received", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}},
                    "400": {"description": "Неверная подпись или данные", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Внутренняя ошибка сервера", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "create.Request": {
            "type": "object",
            "required": ["priceId", "tier"],
            "properties": {"priceId": {"type": "string"}, "tier": {"type": "string"}}
        },
        "login.Request": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "register.Request": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string", "maxLength": 100},
                "password": {"type": "string", "maxLength": 72, "minLength": 8}
            }
        },
        "submit.Request": {
            "type": "object",
            "properties": {"answer": {"type": "string", "maxLength": 2000}, "solved": {"type": "boolean"}}
        },
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid request body"},
                "status": {"type": "string", "example": "Error"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {"data": {}, "error": {"type": "string"}, "status": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "examprep API",
	Description:      "Каталог задач, прогресс, тарифы и оплата для подготовки к экзаменам.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
