// Package notify renders notification templates and delivers messages
// through SES, RabbitMQ or the application log.
package notify

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/osteele/liquid"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.liquid
var templateFS embed.FS

// TemplateRenderer renders the embedded Liquid templates. The first line of
// every template is the subject, the rest is the body.
type TemplateRenderer struct {
	engine *liquid.Engine
	cache  sync.Map // name -> *liquid.Template
}

func NewTemplateRenderer() *TemplateRenderer {
	engine := liquid.NewEngine()
	registerFilters(engine)
	return &TemplateRenderer{engine: engine}
}

func registerFilters(engine *liquid.Engine) {
	// {{ amount | money }}
	engine.RegisterFilter("money", func(v any) string {
		d, err := decimal.NewFromString(fmt.Sprintf("%v", v))
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return d.StringFixed(2)
	})

	// {{ created_at | datetime }}
	engine.RegisterFilter("datetime", func(v any) string {
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format("2006-01-02 15:04 UTC")
		}
		return fmt.Sprintf("%v", v)
	})
}

// Render executes the named template and splits the output into subject and body.
func (r *TemplateRenderer) Render(name string, vars map[string]any) (string, string, error) {
	tpl, err := r.template(name)
	if err != nil {
		return "", "", err
	}

	out, renderErr := tpl.RenderString(vars)
	if renderErr != nil {
		return "", "", fmt.Errorf("render %s: %w", name, renderErr)
	}

	subject, body, _ := strings.Cut(out, "\n")
	return strings.TrimSpace(subject), strings.TrimLeft(body, "\n"), nil
}

func (r *TemplateRenderer) template(name string) (*liquid.Template, error) {
	if cached, ok := r.cache.Load(name); ok {
		return cached.(*liquid.Template), nil
	}

	src, err := templateFS.ReadFile("templates/" + name + ".liquid")
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	tpl, parseErr := r.engine.ParseTemplate(src)
	if parseErr != nil {
		return nil, fmt.Errorf("parse %s: %w", name, parseErr)
	}
	r.cache.Store(name, tpl)
	return tpl, nil
}
