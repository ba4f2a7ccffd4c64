// Package template renders notification subjects and bodies from
// {{placeholder}} templates.
package template

import (
	"bytes"
	"fmt"
	"html"
	htmltemplate "html/template"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/placement"
)

var ErrRegistry = errx.NewRegistry("TEMPLATE")

var (
	CodeTemplateNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "No template for event type")
	CodeLayout           = ErrRegistry.Register("LAYOUT", errx.TypeInternal, http.StatusInternalServerError, "Failed to render email layout")
)

func ErrTemplateNotFound(event placement.EventType) *errx.Error {
	return ErrRegistry.New(CodeTemplateNotFound).WithDetail("event_type", string(event))
}

// DateLayout is the format every time value is rendered with.
const DateLayout = "02 Jan 2006"

// Vars is the variable bag a template is interpolated with. Values may be
// strings, numbers, booleans, time.Time or pointers to those.
type Vars map[string]any

// Merge returns a copy of v overlaid with other.
func (v Vars) Merge(other Vars) Vars {
	out := make(Vars, len(v)+len(other))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range other {
		out[k] = val
	}
	return out
}

// Rendered is a subject and an HTML body ready for delivery.
type Rendered struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Template is an unrendered subject and body pair.
type Template struct {
	Subject string
	Body    string
}

// Branding holds the institution fields every email carries.
type Branding struct {
	InstitutionName string
	PortalURL       string
	SupportEmail    string
}

// Vars exposes the branding as template variables.
func (b Branding) Vars() Vars {
	return Vars{
		"institution_name": b.InstitutionName,
		"portal_url":       b.PortalURL,
		"support_email":    b.SupportEmail,
	}
}

var placeholder = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Interpolate replaces every {{name}} token whose name is present in vars.
// Unknown tokens and tokens bound to nil stay in the output unchanged. When
// escape is set, substituted values are HTML-escaped.
func Interpolate(text string, vars Vars, escape bool) string {
	return placeholder.ReplaceAllStringFunc(text, func(token string) string {
		name := placeholder.FindStringSubmatch(token)[1]
		val, ok := vars[name]
		if !ok {
			return token
		}
		s, ok := Format(val)
		if !ok {
			return token
		}
		if escape {
			return html.EscapeString(s)
		}
		return s
	})
}

// Format renders a variable value. It reports false for nil values.
func Format(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case *string:
		if t == nil {
			return "", false
		}
		return *t, true
	case time.Time:
		return t.Format(DateLayout), true
	case *time.Time:
		if t == nil {
			return "", false
		}
		return t.Format(DateLayout), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case *float64:
		if t == nil {
			return "", false
		}
		return strconv.FormatFloat(*t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}

// Renderer maps event types to templates and renders them inside the
// institution layout. It holds no per-call state.
type Renderer struct {
	branding  Branding
	layout    *htmltemplate.Template
	mu        sync.RWMutex
	templates map[placement.EventType]Template
}

// NewRenderer creates a renderer preloaded with the built-in templates.
func NewRenderer(branding Branding) *Renderer {
	r := &Renderer{
		branding:  branding,
		layout:    htmltemplate.Must(htmltemplate.New("layout").Parse(layoutHTML)),
		templates: make(map[placement.EventType]Template, len(builtins)),
	}
	for event, t := range builtins {
		r.templates[event] = t
	}
	return r
}

// Register installs or replaces the template for event.
func (r *Renderer) Register(event placement.EventType, t Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[event] = t
}

// Branding returns the institution fields the renderer was built with.
func (r *Renderer) Branding() Branding { return r.branding }

// Render interpolates the template registered for event with vars and the
// institution branding. Unknown events yield CodeTemplateNotFound.
func (r *Renderer) Render(event placement.EventType, vars Vars) (Rendered, error) {
	r.mu.RLock()
	t, ok := r.templates[event]
	r.mu.RUnlock()
	if !ok {
		return Rendered{}, ErrTemplateNotFound(event)
	}
	return r.RenderTemplate(t, vars)
}

// RenderTemplate interpolates an ad hoc template, such as a campaign block.
func (r *Renderer) RenderTemplate(t Template, vars Vars) (Rendered, error) {
	all := r.branding.Vars().Merge(vars)
	subject := Interpolate(t.Subject, all, false)
	content := Interpolate(t.Body, all, true)

	var buf bytes.Buffer
	err := r.layout.Execute(&buf, layoutData{
		Subject:         subject,
		InstitutionName: r.branding.InstitutionName,
		PortalURL:       r.branding.PortalURL,
		SupportEmail:    r.branding.SupportEmail,
		Content:         htmltemplate.HTML(content),
	})
	if err != nil {
		return Rendered{}, ErrRegistry.NewWithCause(CodeLayout, err)
	}
	return Rendered{Subject: subject, Body: buf.String()}, nil
}

type layoutData struct {
	Subject         string
	InstitutionName string
	PortalURL       string
	SupportEmail    string
	Content         htmltemplate.HTML
}
