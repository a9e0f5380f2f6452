// Package server exposes the catalog client over a small local HTTP API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Routes
//
// [NewRouter] mounts the following behind [RequestID], [Logging] and [Metrics]:
//
//	GET /api/developer-token                                   current developer token and expiry
//	GET /api/search?term=&types=&limit=&offset=&storefront=    catalog search
//	GET /api/catalog/{storefront}/{type}/{id}                  single resource
//	GET /api/catalog/{storefront}/{type}/{id}/{relationship}   resource relationship
//	GET /metrics                                               Prometheus exposition
//	GET /health                                                liveness
//
// Upstream status errors are relayed with the upstream status code and body.
// Invalid input maps to 400 and transport failures to 502.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
