// Package api holds the OpenAPI document served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs/api
package api

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"termsOfService": "http://swagger.io/terms/",
		"contact": {
			"name": "API Support",
			"url": "https://github.com/localnerve/jam-build-crm",
			"email": "info@localnerve.com"
		},
		"license": {
			"name": "AGPL-3.0",
			"url": "https://www.gnu.org/licenses/agpl-3.0.html"
		},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/announcement/fetch/all": {
			"get": {
				"summary": "List announcements",
				"tags": [
					"Announcement"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					}
				}
			}
		},
		"/announcement/fetch/single/{id}": {
			"get": {
				"summary": "Get an announcement",
				"tags": [
					"Announcement"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Announcement ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/announcement/{ownerID}/delete/many": {
			"delete": {
				"summary": "Delete announcements",
				"tags": [
					"Announcement"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"description": "{\"announcementIDs\": [\"...\"]}",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/announcement/{ownerID}/delete/single/{id}": {
			"delete": {
				"summary": "Delete an announcement",
				"tags": [
					"Announcement"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Announcement ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/announcement/{ownerID}/edit/{id}": {
			"put": {
				"summary": "Edit an announcement",
				"tags": [
					"Announcement"
				],
				"consumes": [
					"multipart/form-data"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Announcement ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Title",
						"name": "title",
						"in": "formData",
						"required": false
					},
					{
						"type": "string",
						"description": "Description",
						"name": "description",
						"in": "formData",
						"required": false
					},
					{
						"type": "boolean",
						"description": "Shown on the site",
						"name": "active",
						"in": "formData",
						"required": false
					},
					{
						"type": "file",
						"description": "Replacement image",
						"name": "image",
						"in": "formData",
						"required": false
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/announcement/{ownerID}/new": {
			"post": {
				"summary": "Create an announcement",
				"tags": [
					"Announcement"
				],
				"consumes": [
					"multipart/form-data"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Title",
						"name": "title",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"description": "Description",
						"name": "description",
						"in": "formData",
						"required": true
					},
					{
						"type": "boolean",
						"description": "Shown on the site, default true",
						"name": "active",
						"in": "formData",
						"required": false
					},
					{
						"type": "file",
						"description": "Image",
						"name": "image",
						"in": "formData",
						"required": false
					}
				],
				"responses": {
					"201": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/blog/fetch/all": {
			"get": {
				"summary": "List blog posts",
				"tags": [
					"Blog"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					}
				}
			}
		},
		"/blog/fetch/single/{id}": {
			"get": {
				"summary": "Get a blog post",
				"tags": [
					"Blog"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Blog ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/blog/{ownerID}/delete/many": {
			"delete": {
				"summary": "Delete blog posts",
				"tags": [
					"Blog"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"description": "{\"blogIDs\": [\"...\"]}",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/blog/{ownerID}/delete/single/{id}": {
			"delete": {
				"summary": "Delete a blog post",
				"tags": [
					"Blog"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Blog ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/blog/{ownerID}/edit/{id}": {
			"put": {
				"summary": "Edit a blog post",
				"description": "New files replace the stored thumbnail and block images",
				"tags": [
					"Blog"
				],
				"consumes": [
					"multipart/form-data"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Blog ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Title",
						"name": "title",
						"in": "formData",
						"required": false
					},
					{
						"type": "string",
						"description": "Intro description",
						"name": "introDescription",
						"in": "formData",
						"required": false
					},
					{
						"type": "string",
						"description": "JSON array of content blocks",
						"name": "contentBlocks",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"description": "JSON array or comma separated tags",
						"name": "tags",
						"in": "formData",
						"required": false
					},
					{
						"type": "file",
						"description": "Thumbnail",
						"name": "thumbnail",
						"in": "formData",
						"required": false
					},
					{
						"type": "file",
						"description": "Content block images, by block index",
						"name": "contentImages",
						"in": "formData",
						"required": false
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/blog/{ownerID}/new": {
			"post": {
				"summary": "Create a blog post",
				"tags": [
					"Blog"
				],
				"consumes": [
					"multipart/form-data"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Title",
						"name": "title",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"description": "Intro description",
						"name": "introDescription",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"description": "JSON array of content blocks",
						"name": "contentBlocks",
						"in": "formData",
						"required": true
					},
					{
						"type": "string",
						"description": "JSON array or comma separated tags",
						"name": "tags",
						"in": "formData",
						"required": false
					},
					{
						"type": "file",
						"description": "Thumbnail",
						"name": "thumbnail",
						"in": "formData",
						"required": true
					},
					{
						"type": "file",
						"description": "Content block images, by block index",
						"name": "contentImages",
						"in": "formData",
						"required": false
					}
				],
				"responses": {
					"201": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/client/fetch/all": {
			"get": {
				"summary": "List clients",
				"tags": [
					"Client"
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
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					}
				}
			}
		},
		"/client/fetch/single/{id}": {
			"get": {
				"summary": "Get a client",
				"tags": [
					"Client"
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
						"description": "Client ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/client/{ownerID}/convert/lead/{leadID}": {
			"post": {
				"summary": "Convert a lead",
				"description": "Create a client from the lead, delete the lead and move its service link",
				"tags": [
					"Client"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Lead ID",
						"name": "leadID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"201": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/client/{ownerID}/delete/many": {
			"delete": {
				"summary": "Delete clients",
				"description": "Delete every listed client or none of them",
				"tags": [
					"Client"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"description": "{\"clientIDs\": [\"...\"]}",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/client/{ownerID}/delete/single/{id}": {
			"delete": {
				"summary": "Delete a client",
				"description": "Stored files are removed best effort and the service link is dropped",
				"tags": [
					"Client"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/client/{ownerID}/edit/{id}": {
			"put": {
				"summary": "Edit a client",
				"tags": [
					"Client"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Changed fields",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/services.ClientInput"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/client/{ownerID}/edit/{id}/addfile": {
			"put": {
				"summary": "Attach a file to a client",
				"tags": [
					"Client"
				],
				"consumes": [
					"multipart/form-data"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "file",
						"description": "File",
						"name": "file",
						"in": "formData",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/client/{ownerID}/edit/{id}/removefile": {
			"put": {
				"summary": "Detach a file from a client",
				"description": "The reference is removed even when the stored object cannot be deleted",
				"tags": [
					"Client"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "File URL",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.removeFileRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/client/{ownerID}/new": {
			"post": {
				"summary": "Create a client",
				"tags": [
					"Client"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"description": "Client",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/services.ClientInput"
						}
					}
				],
				"responses": {
					"201": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/data/app": {
			"get": {
				"summary": "Get all application documents, collections, and properties",
				"description": "Get all application data",
				"tags": [
					"AppData"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/map[string]interface{}"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/data/app/{document}": {
			"get": {
				"summary": "Get application collections and properties",
				"description": "Get all collections and properties for a specific application document",
				"tags": [
					"AppData"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Document ID",
						"name": "document",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Comma-separated list of collections to filter",
						"name": "collections",
						"in": "query",
						"required": false
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/map[string]interface{}"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			},
			"post": {
				"summary": "Set application properties",
				"description": "Set properties for a specific application document",
				"tags": [
					"AppData"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Document ID",
						"name": "document",
						"in": "path",
						"required": true
					},
					{
						"description": "Properties to set",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"409": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			},
			"delete": {
				"summary": "Delete application properties",
				"description": "Delete properties from an application document",
				"tags": [
					"AppData"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Document ID",
						"name": "document",
						"in": "path",
						"required": true
					},
					{
						"description": "Properties to delete",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"409": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/data/app/{document}/{collection}": {
			"get": {
				"summary": "Get application properties",
				"description": "Get properties for a specific application document and collection",
				"tags": [
					"AppData"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Document ID",
						"name": "document",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Collection ID",
						"name": "collection",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/map[string]interface{}"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			},
			"delete": {
				"summary": "Delete application collection",
				"description": "Delete a specific collection from an application document",
				"tags": [
					"AppData"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Document ID",
						"name": "document",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Collection ID",
						"name": "collection",
						"in": "path",
						"required": true
					},
					{
						"description": "Version check",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"409": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/data/user": {
			"get": {
				"summary": "Get all user documents, collections, and properties",
				"description": "Get all user data",
				"tags": [
					"UserData"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/map[string]interface{}"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/data/user/{document}": {
			"get": {
				"summary": "Get user collections and properties",
				"description": "Get all collections and properties for a specific user document",
				"tags": [
					"UserData"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Document ID",
						"name": "document",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Comma-separated list of collections to filter",
						"name": "collections",
						"in": "query",
						"required": false
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/map[string]interface{}"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			},
			"post": {
				"summary": "Set user properties",
				"description": "Set properties for a specific user document",
				"tags": [
					"UserData"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Document ID",
						"name": "document",
						"in": "path",
						"required": true
					},
					{
						"description": "Properties to set",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"409": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			},
			"delete": {
				"summary": "Delete user properties",
				"description": "Delete properties from a user document",
				"tags": [
					"UserData"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Document ID",
						"name": "document",
						"in": "path",
						"required": true
					},
					{
						"description": "Properties to delete",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"409": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/data/user/{document}/{collection}": {
			"get": {
				"summary": "Get user properties",
				"description": "Get properties for a specific user document and collection",
				"tags": [
					"UserData"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Document ID",
						"name": "document",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Collection ID",
						"name": "collection",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/map[string]interface{}"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			},
			"delete": {
				"summary": "Delete user collection",
				"description": "Delete a specific collection from a user document",
				"tags": [
					"UserData"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Document ID",
						"name": "document",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Collection ID",
						"name": "collection",
						"in": "path",
						"required": true
					},
					{
						"description": "Version check",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"409": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/faq/fetch/all": {
			"get": {
				"summary": "List faqs",
				"tags": [
					"FAQ"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					}
				}
			}
		},
		"/faq/fetch/single/{id}": {
			"get": {
				"summary": "Get a faq",
				"tags": [
					"FAQ"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "FAQ ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/faq/{ownerID}/delete/many": {
			"delete": {
				"summary": "Delete faqs",
				"tags": [
					"FAQ"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"description": "{\"faqIDs\": [\"...\"]}",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/faq/{ownerID}/delete/single/{id}": {
			"delete": {
				"summary": "Delete a faq",
				"tags": [
					"FAQ"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "FAQ ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/faq/{ownerID}/edit/{id}": {
			"put": {
				"summary": "Edit a faq",
				"tags": [
					"FAQ"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "FAQ ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Changed fields",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/services.FAQInput"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/faq/{ownerID}/new": {
			"post": {
				"summary": "Create a faq",
				"tags": [
					"FAQ"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"description": "FAQ",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/services.FAQInput"
						}
					}
				],
				"responses": {
					"201": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/health": {
			"get": {
				"summary": "Health check",
				"tags": [
					"Health"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/services.HealthCheckResult"
						}
					},
					"503": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/services.HealthCheckResult"
						}
					}
				}
			}
		},
		"/lead/fetch/all": {
			"get": {
				"summary": "List leads",
				"tags": [
					"Lead"
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
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					}
				}
			}
		},
		"/lead/fetch/single/{id}": {
			"get": {
				"summary": "Get a lead",
				"tags": [
					"Lead"
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
						"description": "Lead ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/lead/post": {
			"post": {
				"summary": "Submit a lead",
				"description": "Create an unowned lead from the public website form",
				"tags": [
					"Lead"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Lead",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/services.LeadInput"
						}
					}
				],
				"responses": {
					"201": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/lead/{ownerID}/delete/many": {
			"delete": {
				"summary": "Delete leads",
				"description": "Delete every listed lead or none of them",
				"tags": [
					"Lead"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"description": "{\"leadIDs\": [\"...\"]}",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/lead/{ownerID}/delete/single/{id}": {
			"delete": {
				"summary": "Delete a lead",
				"tags": [
					"Lead"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Lead ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/lead/{ownerID}/edit/{id}": {
			"put": {
				"summary": "Edit a lead",
				"description": "Update the given fields; a changed service moves the lead between services",
				"tags": [
					"Lead"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Lead ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Changed fields",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/services.LeadInput"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/lead/{ownerID}/new": {
			"post": {
				"summary": "Create a lead",
				"description": "Create a lead owned by the caller, attached to an optional service",
				"tags": [
					"Lead"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"description": "Lead",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/services.LeadInput"
						}
					}
				],
				"responses": {
					"201": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/notification/fetch/all": {
			"get": {
				"summary": "List every notification",
				"description": "Admin only",
				"tags": [
					"Notification"
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
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/notification/{ownerID}/delete/many": {
			"delete": {
				"summary": "Delete notifications",
				"description": "Delete every listed notification or none of them",
				"tags": [
					"Notification"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"description": "{\"notificationIDs\": [\"...\"]}",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/notification/{ownerID}/delete/single/{id}": {
			"delete": {
				"summary": "Delete a notification",
				"tags": [
					"Notification"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Notification ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/notification/{ownerID}/fetch/all": {
			"get": {
				"summary": "List the caller's notifications",
				"tags": [
					"Notification"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					}
				}
			}
		},
		"/notification/{ownerID}/fetch/single/{id}": {
			"get": {
				"summary": "Get a notification",
				"tags": [
					"Notification"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Notification ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/notification/{ownerID}/read/{id}": {
			"put": {
				"summary": "Mark a notification read",
				"tags": [
					"Notification"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Notification ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/service/fetch/all": {
			"get": {
				"summary": "List services",
				"tags": [
					"Service"
				],
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					}
				}
			}
		},
		"/service/fetch/single/{id}": {
			"get": {
				"summary": "Get a service",
				"tags": [
					"Service"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Service ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/service/{ownerID}/{serviceID}/{section}/add": {
			"put": {
				"summary": "Add a service item",
				"tags": [
					"Service"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Service ID",
						"name": "serviceID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "details, requirement, price or faq",
						"name": "section",
						"in": "path",
						"required": true,
						"enum": [
							"details",
							"requirement",
							"price",
							"faq"
						]
					},
					{
						"description": "Item fields; services.ServicePriceInput, services.ServiceDetailInput, services.ServiceRequirementInput or services.ServiceFAQInput by section",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/service/{ownerID}/{serviceID}/{section}/edit/{itemID}": {
			"put": {
				"summary": "Replace a service item",
				"tags": [
					"Service"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Service ID",
						"name": "serviceID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "details, requirement, price or faq",
						"name": "section",
						"in": "path",
						"required": true,
						"enum": [
							"details",
							"requirement",
							"price",
							"faq"
						]
					},
					{
						"type": "string",
						"description": "Item ID",
						"name": "itemID",
						"in": "path",
						"required": true
					},
					{
						"description": "Item fields; services.ServicePriceInput, services.ServiceDetailInput, services.ServiceRequirementInput or services.ServiceFAQInput by section",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/service/{ownerID}/{serviceID}/{section}/delete/single/{itemID}": {
			"delete": {
				"summary": "Delete a service item",
				"tags": [
					"Service"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Service ID",
						"name": "serviceID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "details, requirement, price or faq",
						"name": "section",
						"in": "path",
						"required": true,
						"enum": [
							"details",
							"requirement",
							"price",
							"faq"
						]
					},
					{
						"type": "string",
						"description": "Item ID",
						"name": "itemID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/service/{ownerID}/{serviceID}/{section}/delete/many": {
			"delete": {
				"summary": "Delete service items",
				"description": "Delete every listed item or none of them",
				"tags": [
					"Service"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Service ID",
						"name": "serviceID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "details, requirement, price or faq",
						"name": "section",
						"in": "path",
						"required": true,
						"enum": [
							"details",
							"requirement",
							"price",
							"faq"
						]
					},
					{
						"description": "{\"priceIDs\": [\"...\"]}, keyed by section: detailIDs, requirementIDs, priceIDs or faqIDs",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/service/{ownerID}/delete/many": {
			"delete": {
				"summary": "Delete services",
				"description": "Delete every listed service or none of them",
				"tags": [
					"Service"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"description": "{\"serviceIDs\": [\"...\"]}",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/service/{ownerID}/delete/single/{id}": {
			"delete": {
				"summary": "Delete a service",
				"description": "Refused while leads reference the service",
				"tags": [
					"Service"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Service ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/service/{ownerID}/edit/{id}": {
			"put": {
				"summary": "Edit a service",
				"description": "Update name and details. Lead and client links are kept.",
				"tags": [
					"Service"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Service ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Changed fields",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/services.ServiceInput"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/service/{ownerID}/new": {
			"post": {
				"summary": "Create a service",
				"tags": [
					"Service"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"description": "Service",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/services.ServiceInput"
						}
					}
				],
				"responses": {
					"201": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/storage/{ownerID}/delete/{filename}": {
			"delete": {
				"summary": "Delete a file",
				"tags": [
					"Storage"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "File name, key or URL",
						"name": "filename",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/storage/{ownerID}/download/{filename}": {
			"get": {
				"summary": "Download a file",
				"tags": [
					"Storage"
				],
				"produces": [
					"application/octet-stream"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "File name, key or URL",
						"name": "filename",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "file"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/storage/{ownerID}/fetch": {
			"get": {
				"summary": "Storage usage",
				"description": "Every stored object grouped by top level folder with per folder sizes",
				"tags": [
					"Storage"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/storage/{ownerID}/new": {
			"post": {
				"summary": "Upload a file",
				"tags": [
					"Storage"
				],
				"consumes": [
					"multipart/form-data"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"type": "file",
						"description": "File",
						"name": "file",
						"in": "formData",
						"required": true
					}
				],
				"responses": {
					"201": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/user/fetch/me": {
			"get": {
				"summary": "Current account",
				"tags": [
					"User"
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
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"401": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/user/forgotpassword": {
			"post": {
				"summary": "Request a password reset",
				"description": "Mail a reset link. Unknown addresses get the same response.",
				"tags": [
					"User"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Email",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.forgotRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/user/login": {
			"post": {
				"summary": "Log in",
				"description": "Exchange email and password for a bearer token",
				"tags": [
					"User"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Credentials",
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
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SessionResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/user/otp": {
			"post": {
				"summary": "Verify an account",
				"description": "Verify the account with the mailed activation code",
				"tags": [
					"User"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Email and code",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.otpRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SessionResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"404": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/user/register": {
			"post": {
				"summary": "Register an account",
				"description": "Create an unverified account and mail its activation code",
				"tags": [
					"User"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Account",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/services.RegisterInput"
						}
					}
				],
				"responses": {
					"201": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SessionResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"500": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/user/resetpassword/{resetToken}": {
			"post": {
				"summary": "Reset a password",
				"description": "Set a new password with the mailed reset token",
				"tags": [
					"User"
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Reset token",
						"name": "resetToken",
						"in": "path",
						"required": true
					},
					{
						"description": "New password",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.resetRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		},
		"/user/{ownerID}/edit": {
			"put": {
				"summary": "Edit the current account",
				"tags": [
					"User"
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
						"description": "User ID",
						"name": "ownerID",
						"in": "path",
						"required": true
					},
					{
						"description": "Changed fields",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/services.UserEditInput"
						}
					}
				],
				"responses": {
					"201": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.SuccessResponseStruct"
						}
					},
					"400": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					},
					"403": {
						"description": "",
						"schema": {
							"$ref": "#/definitions/utils.ErrorResponseStruct"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"handlers.forgotRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				}
			}
		},
		"handlers.loginRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			}
		},
		"handlers.otpRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				},
				"otp": {
					"type": "string"
				}
			}
		},
		"handlers.removeFileRequest": {
			"type": "object",
			"properties": {
				"fileUrl": {
					"type": "string"
				}
			}
		},
		"handlers.resetRequest": {
			"type": "object",
			"properties": {
				"password": {
					"type": "string"
				}
			}
		},
		"services.ClientInput": {
			"type": "object",
			"properties": {
				"city": {
					"type": "string"
				},
				"company": {
					"type": "string"
				},
				"country": {
					"type": "string"
				},
				"details": {
					"type": "string"
				},
				"email": {
					"type": "string"
				},
				"fullname": {
					"type": "string"
				},
				"leadSource": {
					"type": "string"
				},
				"service": {
					"type": "string"
				},
				"telephone": {
					"type": "string"
				}
			}
		},
		"services.FAQInput": {
			"type": "object",
			"properties": {
				"answer": {
					"type": "string"
				},
				"question": {
					"type": "string"
				},
				"service": {
					"type": "string"
				}
			}
		},
		"services.HealthCheckResult": {
			"type": "object",
			"properties": {
				"database": {
					"type": "string"
				},
				"details": {
					"type": "object",
					"additionalProperties": {
						"type": "string"
					}
				},
				"error": {
					"type": "string"
				},
				"mail": {
					"type": "string"
				},
				"status": {
					"type": "string"
				},
				"storage": {
					"type": "string"
				}
			}
		},
		"services.LeadInput": {
			"type": "object",
			"properties": {
				"city": {
					"type": "string"
				},
				"company": {
					"type": "string"
				},
				"country": {
					"type": "string"
				},
				"details": {
					"type": "string"
				},
				"email": {
					"type": "string"
				},
				"fullname": {
					"type": "string"
				},
				"leadSource": {
					"type": "string"
				},
				"service": {
					"type": "string"
				},
				"telephone": {
					"type": "string"
				}
			}
		},
		"services.RegisterInput": {
			"type": "object",
			"properties": {
				"city": {
					"type": "string"
				},
				"country": {
					"type": "string"
				},
				"email": {
					"type": "string"
				},
				"fullname": {
					"type": "string"
				},
				"password": {
					"type": "string"
				},
				"role": {
					"type": "string"
				},
				"telephone": {
					"type": "string"
				}
			}
		},
		"services.ServiceInput": {
			"type": "object",
			"properties": {
				"details": {
					"type": "string"
				},
				"name": {
					"type": "string"
				}
			}
		},
		"services.ServiceDetailInput": {
			"type": "object",
			"properties": {
				"details": {
					"type": "string"
				},
				"image": {
					"type": "string"
				},
				"title": {
					"type": "string"
				}
			}
		},
		"services.ServiceFAQInput": {
			"type": "object",
			"properties": {
				"answer": {
					"type": "string"
				},
				"question": {
					"type": "string"
				}
			}
		},
		"services.MoneyInput": {
			"type": "object",
			"properties": {
				"amount": {
					"type": "number"
				},
				"currency": {
					"type": "string"
				}
			}
		},
		"services.ServicePriceInput": {
			"type": "object",
			"properties": {
				"listItems": {
					"type": "array",
					"items": {
						"type": "string"
					}
				},
				"price": {
					"$ref": "#/definitions/services.MoneyInput"
				},
				"title": {
					"type": "string"
				}
			}
		},
		"services.ServiceRequirementInput": {
			"type": "object",
			"properties": {
				"details": {
					"type": "string"
				},
				"title": {
					"type": "string"
				}
			}
		},
		"services.UserEditInput": {
			"type": "object",
			"properties": {
				"city": {
					"type": "string"
				},
				"country": {
					"type": "string"
				},
				"email": {
					"type": "string"
				},
				"fullname": {
					"type": "string"
				},
				"telephone": {
					"type": "string"
				}
			}
		},
		"utils.ErrorResponseStruct": {
			"type": "object",
			"properties": {
				"error": {
					"type": "string"
				},
				"success": {
					"type": "boolean"
				}
			}
		},
		"utils.SessionResponseStruct": {
			"type": "object",
			"properties": {
				"expires": {
					"type": "string"
				},
				"message": {
					"type": "string"
				},
				"success": {
					"type": "boolean"
				},
				"token": {
					"type": "string"
				},
				"user": {}
			}
		},
		"utils.SuccessResponseStruct": {
			"type": "object",
			"properties": {
				"count": {
					"type": "integer"
				},
				"data": {},
				"message": {
					"type": "string"
				},
				"success": {
					"type": "boolean"
				}
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
	Version:          "1.0.0",
	Host:             "localhost:3000",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "Jam Build CRM API",
	Description:      "Go Fiber CRM data service with multi-database and object storage support",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
