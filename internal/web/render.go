package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"time"

	"Yatube/internal/pkg"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	layoutFile     = "templates/base.layout.html"
	partialPattern = "templates/*.partial.html"
	pagePattern    = "templates/*.page.html"
)

// Renderer 每个页面单独解析 layout + partials + page，实现 gin 的 HTMLRender
type Renderer struct {
	pages map[string]*template.Template
}

func funcs(media *pkg.MediaStore) template.FuncMap {
	return template.FuncMap{
		"mediaURL": media.URL,
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2 Jan 2006 15:04")
		},
		"pageURL": func(n int) string {
			return "?page=" + strconv.Itoa(n)
		},
		"idString": func(id uint64) string {
			return strconv.FormatUint(id, 10)
		},
	}
}

func NewRenderer(media *pkg.MediaStore) (*Renderer, error) {
	files, err := fs.Glob(templatesFS, pagePattern)
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	fm := funcs(media)
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".page.html")
		t, err := template.New(name).Funcs(fm).ParseFS(templatesFS, layoutFile, partialPattern, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Instance name 为页面名（不含后缀），如 "index"
func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		panic(fmt.Sprintf("web: page %q is not defined", name))
	}
	return render.HTML{Template: t, Name: "base", Data: data}
}

// Has 测试用
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
