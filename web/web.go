// Package web holds the browser assets served by the chat server.
package web

import "embed"

//go:embed templates/*.html static/*
var FS embed.FS
