package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFiles embed.FS

var funcs = template.FuncMap{
	"bytes": func(n int64) string {
		if n < 0 {
			n = 0
		}
		return humanize.Bytes(uint64(n))
	},
	"ago":   func(t time.Time) string { return humanize.Time(t) },
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
	"percent": func(n, total int) int {
		if total <= 0 {
			return 0
		}
		return n * 100 / total
	},
}

func parseTemplates() *template.Template {
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

func staticFS() http.FileSystem {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

type navItem struct {
	Key   string
	Title string
	Path  string
}

var nav = []navItem{
	{Key: "profile", Title: "Researcher Profile", Path: "/profile"},
	{Key: "education", Title: "Education", Path: "/education"},
	{Key: "research", Title: "Research Interests", Path: "/research"},
	{Key: "publications", Title: "Publications", Path: "/publications"},
	{Key: "contact", Title: "Contact", Path: "/contact"},
}
