package grpcfrontend

import (
	"net/http"

	"github.com/rs/cors"
)

// WrapCORS wraps handler with the permissive-by-default CORS policy grpcd's
// JSON gateway applies in front of the gRPC frontend.
func WrapCORS(handler http.Handler, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(handler)
}
