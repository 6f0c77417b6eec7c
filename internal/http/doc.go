// Package httpapp provides the HTTP server for the mini-blog API.
//
//	@title						Mini-Blog API
//	@version					1.0
//	@description				A small blog API with token-based authentication.
//	@description
//	@description				## Authentication Flow
//	@description
//	@description				Write operations (posting and commenting) require a bearer token.
//	@description
//	@description				### Step 1: Register
//	@description				```bash
//	@description				curl -X POST /register -d '{"username":"alice","password":"secret"}'
//	@description				# Returns: {"access_token": "TOKEN", "token_type": "bearer", "expires_at": "..."}
//	@description				```
//	@description
//	@description				### Step 2: Get a Token Later
//	@description				Tokens expire after 30 minutes by default. Exchange credentials for a fresh one:
//	@description				```bash
//	@description				curl -X POST /token -d 'username=alice&password=secret'
//	@description				```
//	@description
//	@description				### Step 3: Use the Token for Writes
//	@description				```bash
//	@description				curl -X POST /post -H "Authorization: Bearer TOKEN" -d '{"body":"hello"}'
//	@description				```
//
//	@license.name				MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token from /register or /token
//
//	@tag.name					Auth
//	@tag.description			Registration and the OAuth2-style password flow.
//
//	@tag.name					Posts
//	@tag.description			Create and browse posts. The nested read returns a post with its comments.
//
//	@tag.name					Comments
//	@tag.description			Comment on existing posts. A comment's post_id must resolve to a real post.
//
//	@tag.name					Dev
//	@tag.description			Health probe, site stats, and the maintainer-only content reset.
package httpapp
