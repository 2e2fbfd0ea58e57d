// Package widget provides a field-driven sidebar widget: a definition lists its
// fields once and the widget derives the admin form, the sanitizing update and
// the front-end output from that list.
package widget

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"slices"
	"strings"

	"github.com/Masterminds/sprig/v3"

	"pluginscaffold/internal/host"
)

// FieldType selects the input a field renders as.
type FieldType string

const (
	Text     FieldType = "text"
	Textarea FieldType = "textarea"
	Radio    FieldType = "radio"
	Checkbox FieldType = "checkbox"
	Select   FieldType = "select"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case Text, Textarea, Radio, Checkbox, Select:
		return true
	}
	return false
}

// ErrInvalidDefinition is returned by New for unusable definitions.
var ErrInvalidDefinition = errors.New("widget: invalid definition")

// Option is one choice of a radio or select field.
type Option struct {
	Value string
	Label string
}

// Field describes one setting of a widget instance.
type Field struct {
	Name        string
	Type        FieldType
	Label       string
	Description string
	Default     string
	Options     []Option
	// Sanitize replaces the default sanitizer for the field type.
	Sanitize func(string) string
}

// Definition is everything needed to build a widget.
type Definition struct {
	ID          string
	Name        string
	ClassName   string
	Description string
	Fields      []Field
}

// Filters is the part of the host a widget renders through.
type Filters interface {
	ApplyFilters(ctx context.Context, name string, value any, args ...any) (any, error)
}

// Widget implements host.Widget for a Definition.
type Widget struct {
	def     Definition
	filters Filters
}

var _ host.Widget = (*Widget)(nil)

// New validates def and returns the widget. filters may be nil, in which case
// titles are printed unfiltered.
func New(def Definition, filters Filters) (*Widget, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidDefinition)
	}
	seen := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: %s: field without name", ErrInvalidDefinition, def.ID)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("%w: %s: duplicate field %s", ErrInvalidDefinition, def.ID, f.Name)
		}
		seen[f.Name] = true
		if !f.Type.Valid() {
			return nil, fmt.Errorf("%w: %s: field %s has unknown type %q", ErrInvalidDefinition, def.ID, f.Name, f.Type)
		}
	}
	def.Fields = slices.Clone(def.Fields)
	return &Widget{def: def, filters: filters}, nil
}

// ID implements host.Widget.
func (w *Widget) ID() string { return w.def.ID }

// Name implements host.Widget.
func (w *Widget) Name() string {
	if w.def.Name == "" {
		return w.def.ID
	}
	return w.def.Name
}

// Definition returns a copy of the widget definition.
func (w *Widget) Definition() Definition {
	def := w.def
	def.Fields = slices.Clone(w.def.Fields)
	return def
}

// FieldName is the form name of field.
func (w *Widget) FieldName(field string) string {
	return fmt.Sprintf("widget-%s[%s]", w.def.ID, field)
}

// FieldID is the DOM id of field.
func (w *Widget) FieldID(field string) string {
	return fmt.Sprintf("widget-%s-%s", w.def.ID, field)
}

type fieldView struct {
	Field
	FormName string
	DomID    string
	Value    string
}

// Form renders the settings form for instance.
func (w *Widget) Form(_ context.Context, instance host.WidgetSettings) (string, error) {
	views := make([]fieldView, 0, len(w.def.Fields))
	for _, f := range w.def.Fields {
		value, ok := lookup(instance, f.Name)
		if !ok {
			value = f.Default
		}
		views = append(views, fieldView{Field: f, FormName: w.FieldName(f.Name), DomID: w.FieldID(f.Name), Value: value})
	}
	var b strings.Builder
	err := templates.ExecuteTemplate(&b, "form", map[string]any{"ID": w.def.ID, "Fields": views})
	if err != nil {
		return "", fmt.Errorf("widget %s: form: %w", w.def.ID, err)
	}
	return b.String(), nil
}

// Update sanitizes next field by field. Fields missing from next are stored
// empty; prev is not consulted.
func (w *Widget) Update(_ context.Context, next, _ host.WidgetSettings) (host.WidgetSettings, error) {
	out := make(host.WidgetSettings, len(w.def.Fields))
	for _, f := range w.def.Fields {
		sanitize := f.sanitizer()
		switch v := next[f.Name].(type) {
		case []string:
			vals := make([]string, len(v))
			for i, s := range v {
				vals[i] = sanitize(s)
			}
			out[f.Name] = vals
		case []any:
			vals := make([]string, len(v))
			for i, s := range v {
				vals[i] = sanitize(stringify(s))
			}
			out[f.Name] = vals
		default:
			out[f.Name] = sanitize(stringify(v))
		}
	}
	return out, nil
}

func (f Field) sanitizer() func(string) string {
	if f.Sanitize != nil {
		return f.Sanitize
	}
	switch f.Type {
	case Textarea:
		return SanitizeTextarea
	case Checkbox:
		return func(s string) string {
			if SanitizeTextField(s) == "" {
				return ""
			}
			return "1"
		}
	case Radio, Select:
		return func(s string) string {
			s = SanitizeTextField(s)
			for _, opt := range f.Options {
				if opt.Value == s {
					return s
				}
			}
			return f.Default
		}
	default:
		return SanitizeTextField
	}
}

type item struct {
	Name  string
	Value string
}

// Render prints the title through the widget_title filter followed by a list
// of every field set on instance.
func (w *Widget) Render(ctx context.Context, args host.WidgetArgs, instance host.WidgetSettings) (string, error) {
	var b strings.Builder
	b.WriteString(args.BeforeWidget)
	if title, _ := lookup(instance, "title"); title != "" {
		if w.filters != nil {
			filtered, err := w.filters.ApplyFilters(ctx, "widget_title", title, instance, w.def.ID)
			if err != nil {
				return "", err
			}
			title, _ = filtered.(string)
		}
		if title != "" {
			b.WriteString(args.BeforeTitle + title + args.AfterTitle)
		}
	}
	items := make([]item, 0, len(w.def.Fields))
	for _, f := range w.def.Fields {
		if v, ok := lookup(instance, f.Name); ok {
			items = append(items, item{Name: f.Name, Value: v})
		}
	}
	if err := templates.ExecuteTemplate(&b, "items", items); err != nil {
		return "", fmt.Errorf("widget %s: render: %w", w.def.ID, err)
	}
	b.WriteString(args.AfterWidget)
	return b.String(), nil
}

func lookup(instance host.WidgetSettings, name string) (string, bool) {
	v, ok := instance[name]
	if !ok || v == nil {
		return "", false
	}
	return stringify(v), true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case bool:
		if t {
			return "1"
		}
		return ""
	default:
		return fmt.Sprint(t)
	}
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`[\r\n\t ]+`)
)

// SanitizeTextField strips tags and line breaks and collapses whitespace.
func SanitizeTextField(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// SanitizeTextarea strips tags but keeps line breaks.
func SanitizeTextarea(s string) string {
	lines := strings.Split(strings.ReplaceAll(tagPattern.ReplaceAllString(s, ""), "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var templates = template.Must(template.New("widget").Funcs(sprig.FuncMap()).Parse(`
{{- define "form" -}}
<div class="{{ .ID }}_widget_form">
{{- range .Fields }}<div class="field">{{ template "input" . }}
{{- with .Description }}<p class="description">{{ . }}</p>{{ end }}</div>{{ end -}}
</div>
{{- end }}

{{- define "input" -}}
{{- if eq (toString .Type) "text" -}}
<label for="{{ .DomID }}">{{ .Label | default (title .Name) }}</label><input name="{{ .FormName }}" id="{{ .DomID }}" class="widefat" type="text" value="{{ .Value }}"/>
{{- else if eq (toString .Type) "textarea" -}}
<label for="{{ .DomID }}">{{ .Label | default (title .Name) }}</label><textarea name="{{ .FormName }}" id="{{ .DomID }}" class="widefat" rows="10" cols="30">{{ .Value }}</textarea>
{{- else if eq (toString .Type) "checkbox" -}}
<input name="{{ .FormName }}" id="{{ .DomID }}" type="checkbox" value="1"{{ if eq .Value "1" }} checked{{ end }}/><label for="{{ .DomID }}">{{ .Label | default (title .Name) }}</label>
{{- else if eq (toString .Type) "radio" -}}
{{- $f := . -}}
<fieldset><legend>{{ .Label | default (title .Name) }}</legend>
{{- range $i, $o := .Options }}<input name="{{ $f.FormName }}" id="{{ $f.DomID }}-{{ $i }}" type="radio" value="{{ $o.Value }}"{{ if eq $f.Value $o.Value }} checked{{ end }}/><label for="{{ $f.DomID }}-{{ $i }}">{{ $o.Label | default $o.Value }}</label><br/>{{ end -}}
</fieldset>
{{- else if eq (toString .Type) "select" -}}
{{- $f := . -}}
<label for="{{ .DomID }}">{{ .Label | default (title .Name) }}</label><select name="{{ .FormName }}" id="{{ .DomID }}" class="widefat">
{{- range .Options }}<option value="{{ .Value }}"{{ if eq $f.Value .Value }} selected{{ end }}>{{ .Label | default .Value }}</option>{{ end -}}
</select>
{{- end -}}
{{- end }}

{{- define "items" -}}
<ul>{{ range . }}<li><strong>{{ .Name }}:</strong> {{ .Value }}</li>{{ end }}</ul>
{{- end }}
`))
