// Package web ships the dashboard pages and their stylesheet inside the
// server binary.
package web

import "embed"

// TemplatesFS holds the login and dashboard pages plus the shared layout.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the files served under /static.
//
//go:embed static/*
var StaticFS embed.FS
