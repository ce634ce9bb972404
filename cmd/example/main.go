// Command example serves the nest example API: a versioned admin
// namespace guarded by a token parameter, with OpenAPI documentation.
//
// Run:
//
//	go run ./cmd/example serve --config cmd/example/example.yaml
//
// Then explore:
//
//	GET http://localhost:4000/api/v1/admin/server_status?token=password1
//	GET http://localhost:4000/api/v1/api-docs            OpenAPI JSON
//	GET http://localhost:4000/api/v1/api-docs/ui         documentation viewer
//	GET http://localhost:4000/swagger/index.html         Swagger UI
//	GET http://localhost:4000/metrics                    Prometheus metrics
package main

func main() {
	Execute()
}
