// Package views は埋め込まれた HTML テンプレートを提供します。
package views

import (
	"embed"
	"html/template"
)

// テンプレート名。ハンドラーは c.HTML にこの名前を渡します。
const (
	Login     = "login"
	Signup    = "signup"
	Dashboard = "dashboard"
	Benefits  = "benefits"
	Error     = "error"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Load は全テンプレートを読み込みます。
func Load() (*template.Template, error) {
	return template.New("views").ParseFS(templatesFS, "templates/*.tmpl")
}
