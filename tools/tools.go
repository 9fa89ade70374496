//go:build tools

package tools

// Pins the code generators used by this repo. oapi-codegen builds typed
// clients from api/openapi.yaml; goose applies internal/adapters/postgres/migrations
// by hand when the server is not allowed to migrate on startup.
//
//	go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen -generate types,client -package client api/openapi.yaml
//	go run github.com/pressly/goose/v3/cmd/goose -dir internal/adapters/postgres/migrations postgres "$DATABASE_URL" up

import (
	_ "github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen"
	_ "github.com/pressly/goose/v3/cmd/goose"
)
