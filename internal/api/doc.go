// Package api provides the WAF monitoring control plane REST API.
//
// All /api/v1 routes are authenticated with an X-API-Key header.
package api
