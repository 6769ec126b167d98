// Package httputil provides the instrumented HTTP clients used for every
// outgoing request: the canonical style, raw raster tiles and the remote
// transform service.
//
// # Overview
//
//   - [Transport]: an http.RoundTripper that reports each request to the
//     registered [observability.HTTPHooks]
//   - [NewClient]: an http.Client with a fixed timeout over [Transport]
//
// There is no retry layer. A failed upstream call is reported to the caller
// once and the caller decides whether to degrade or fail.
//
// Usage:
//
//	client := httputil.NewClient(10 * time.Second)
//	resp, err := client.Get(url)
package httputil
