// Package pkg provides the libraries behind the vibetiles server.
//
// # Overview
//
// Vibetiles restyles one upstream map (a vector style plus a shaded-relief
// raster) into themed variants called vibes. The pkg directory is organized
// as follows:
//
//  1. [vibe] - The vibe registry (colors, fonts, halos) and layer keywords
//  2. [style] - Canonical style fetching and per-vibe derivation
//  3. [transform] - Local pixel pipelines and the optional remote transformer
//  4. [proxy] - The raster tile path: store, fetch, transform, fallback
//  5. [cache] - Tile stores (disk, Redis, none)
//  6. [upstream] - HTTP client for the upstream style and tiles
//  7. [server] - The HTTP front-end
//  8. [prewarm] - Batch warming of a running server's tile store
//
// # Architecture
//
// A raster tile request flows through:
//
//	GET /api/tiles/raster/{vibe}/{z}/{x}/{y}.png
//	         ↓
//	    [proxy] store hit? → serve
//	         ↓ miss
//	    [upstream] raw tile
//	         ↓
//	    [transform] remote (optional) → local pipeline
//	         ↓
//	    [cache] store → serve
//
// Only the upstream fetch is required; a failed transform serves the raw
// tile and a failed store write still serves the tile.
package pkg
