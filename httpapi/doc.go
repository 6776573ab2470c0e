// Package httpapi serves the auth engine over HTTP under /api/v1/auth.
//
// Errors are written as an [ErrorMessage] carrying the request URL. Token
// responses and errors set Cache-Control: no-store.
package httpapi
