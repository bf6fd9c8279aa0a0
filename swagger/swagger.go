// Package swagger serves the OpenAPI description of the HTTP API.
package swagger

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:generate go tool oapi-codegen -config oapi-codegen.yaml openapi.yaml

//go:embed openapi.yaml
var content embed.FS

// GetHandler serves openapi.yaml from the embedded files.
func GetHandler() (http.Handler, error) {
	if _, err := fs.Stat(content, "openapi.yaml"); err != nil {
		return nil, err
	}

	return http.FileServer(http.FS(content)), nil
}
