package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the API documentation endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>teamhub API — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "teamhub", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } }
  },
  "paths": {
    "/v1/auth/register": { "post": { "summary": "Create an account", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"name":{"type":"string"},"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "201": { "description": "user and access token; refresh token cookie" }, "409": { "description": "email already taken" } } } },
    "/v1/auth/login": { "post": { "summary": "Sign in with email and password", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "user and access token" }, "401": { "description": "incorrect email or password" } } } },
    "/v1/auth/logout": { "post": { "summary": "Delete the refresh token and revoke the access token", "responses": { "204": { "description": "logged out" }, "404": { "description": "unknown refresh token" } } } },
    "/v1/auth/refresh-tokens": { "post": { "summary": "Rotate the refresh token", "responses": { "200": { "description": "user and new access token" }, "401": { "description": "invalid refresh token" } } } },
    "/v1/auth/forgot-password": { "post": { "summary": "Email a password reset link", "responses": { "204": { "description": "sent" }, "404": { "description": "no user with this email" } } } },
    "/v1/auth/reset-password": { "post": { "summary": "Reset the password with ?token=", "responses": { "204": { "description": "password changed" }, "401": { "description": "password reset failed" } } } },
    "/v1/auth/verify-email": { "post": { "summary": "Verify the email with ?token=", "responses": { "200": { "description": "verified" }, "401": { "description": "email verification failed" } } } },
    "/v1/auth/send-verification-email": { "post": { "summary": "Send a new verification email", "security": [{"bearer":[]}], "responses": { "204": { "description": "sent" } } } },
    "/v1/auth/{provider}": { "get": { "summary": "Start OAuth sign-in (github, google)", "responses": { "302": { "description": "redirect to provider" } } } },
    "/v1/auth/{provider}/callback": { "get": { "summary": "OAuth callback", "responses": { "302": { "description": "redirect to the client" } } } },
    "/v1/users": {
      "post": { "summary": "Create a user", "security": [{"bearer":[]}], "responses": { "201": { "description": "user" } } },
      "get": { "summary": "Query users (name, role, sortBy, limit, page)", "security": [{"bearer":[]}], "responses": { "200": { "description": "page of users" } } }
    },
    "/v1/users/me": { "get": { "summary": "The authenticated user", "security": [{"bearer":[]}], "responses": { "200": { "description": "user" } } } },
    "/v1/users/{userId}": {
      "get": { "summary": "Get a user", "security": [{"bearer":[]}], "responses": { "200": { "description": "user" }, "403": { "description": "forbidden" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update name, email or password", "security": [{"bearer":[]}], "responses": { "200": { "description": "membership outcome" } } },
      "delete": { "summary": "Delete a user and their memberships", "security": [{"bearer":[]}], "responses": { "204": { "description": "deleted" } } }
    },
    "/v1/users/{userId}/avatar": {
      "put": { "summary": "Upload an avatar image", "security": [{"bearer":[]}], "responses": { "200": { "description": "user and presigned URL" } } },
      "get": { "summary": "Presigned avatar URL", "security": [{"bearer":[]}], "responses": { "200": { "description": "presigned URL" } } }
    },
    "/v1/team": { "post": { "summary": "Create a team", "security": [{"bearer":[]}], "responses": { "201": { "description": "membership outcome" } } } },
    "/v1/team/set-active-team": { "post": { "summary": "Set the active team", "security": [{"bearer":[]}], "responses": { "200": { "description": "user" } } } },
    "/v1/team/{teamId}": {
      "get": { "summary": "Get a team", "security": [{"bearer":[]}], "responses": { "200": { "description": "team" } } },
      "post": { "summary": "Leave a team", "security": [{"bearer":[]}], "responses": { "200": { "description": "membership outcome" } } },
      "patch": { "summary": "Rename a team", "security": [{"bearer":[]}], "responses": { "200": { "description": "membership outcome" } } },
      "delete": { "summary": "Delete a team", "security": [{"bearer":[]}], "responses": { "200": { "description": "membership outcome" } } }
    },
    "/v1/team/{teamId}/invitation": { "post": { "summary": "Invite by email", "security": [{"bearer":[]}], "responses": { "200": { "description": "membership outcome" } } } },
    "/v1/team/{teamId}/invitation/{invitationId}": {
      "get": { "summary": "Get an invitation addressed to the caller", "security": [{"bearer":[]}], "responses": { "200": { "description": "team name and invitation" } } },
      "post": { "summary": "Accept or decline", "security": [{"bearer":[]}], "responses": { "200": { "description": "membership outcome" } } },
      "delete": { "summary": "Withdraw an invitation", "security": [{"bearer":[]}], "responses": { "200": { "description": "team" } } }
    },
    "/v1/team/{teamId}/user/{userId}": {
      "patch": { "summary": "Change a member's role", "security": [{"bearer":[]}], "responses": { "200": { "description": "membership outcome" } } },
      "delete": { "summary": "Remove a member", "security": [{"bearer":[]}], "responses": { "200": { "description": "membership outcome" } } }
    },
    "/v1/stripe/get-products": { "post": { "summary": "List plans", "security": [{"bearer":[]}], "responses": { "200": { "description": "plans" } } } },
    "/v1/stripe/updatePaymentMethod": { "post": { "summary": "Replace the payment method", "security": [{"bearer":[]}], "responses": { "200": { "description": "user" }, "502": { "description": "payment provider error" } } } },
    "/v1/stripe/create-subscription": { "post": { "summary": "Change the subscription plan", "security": [{"bearer":[]}], "responses": { "200": { "description": "subscription" }, "204": { "description": "moved to free" }, "409": { "description": "plan already active" } } } },
    "/v1/stripe/complete-subscription": { "post": { "summary": "Record a confirmed subscription", "security": [{"bearer":[]}], "responses": { "200": { "description": "user" } } } },
    "/v1/stripe/delete-subscription": { "post": { "summary": "Cancel the subscription", "security": [{"bearer":[]}], "responses": { "204": { "description": "cancelled" } } } },
    "/v1/stripe/stripe-webhook": { "post": { "summary": "Payment provider webhook", "responses": { "200": { "description": "received" }, "400": { "description": "invalid signature or payload" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
