package widget

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pluginscaffold/internal/host"
	"pluginscaffold/pkg/hook"
)

func sampleDefinition() Definition {
	return Definition{
		ID:   "sample_widget_id",
		Name: "Sample Widget",
		Fields: []Field{
			{Name: "title", Type: Text, Label: "Title"},
			{Name: "my_textarea", Type: Textarea, Label: "Textarea"},
			{Name: "my_select", Type: Select, Label: "Select", Options: []Option{
				{Value: "", Label: "Select Option"}, {Value: "1", Label: "Option 1"}, {Value: "2", Label: "Option 2"},
			}},
			{Name: "my_checkbox", Type: Checkbox, Label: "Checkbox", Description: "This is a sample description"},
			{Name: "my_radio", Type: Radio, Label: "Radio", Default: "1", Options: []Option{
				{Value: "1", Label: "Option 1"}, {Value: "2", Label: "Option 2"},
			}},
		},
	}
}

func TestNewRejectsInvalidDefinitions(t *testing.T) {
	cases := map[string]Definition{
		"missing id":      {},
		"unnamed field":   {ID: "w", Fields: []Field{{Type: Text}}},
		"duplicate field": {ID: "w", Fields: []Field{{Name: "a", Type: Text}, {Name: "a", Type: Text}}},
		"unknown type":    {ID: "w", Fields: []Field{{Name: "a", Type: "color"}}},
	}
	for name, def := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := New(def, nil); !errors.Is(err, ErrInvalidDefinition) {
				t.Fatalf("expected ErrInvalidDefinition, got %v", err)
			}
		})
	}
}

func TestFormRendersEveryFieldType(t *testing.T) {
	w, err := New(sampleDefinition(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := w.Form(context.Background(), host.WidgetSettings{"title": "Hello", "my_select": "2", "my_checkbox": "1"})
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	for _, want := range []string{
		`<div class="sample_widget_id_widget_form">`,
		`<input name="widget-sample_widget_id[title]" id="widget-sample_widget_id-title" class="widefat" type="text" value="Hello"/>`,
		`<textarea name="widget-sample_widget_id[my_textarea]"`,
		`<option value="2" selected>Option 2</option>`,
		`<option value="1">Option 1</option>`,
		`type="checkbox" value="1" checked/>`,
		`<p class="description">This is a sample description</p>`,
		`type="radio" value="1" checked/>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("form missing %q\n%s", want, out)
		}
	}
}

func TestFormEscapesValues(t *testing.T) {
	w, _ := New(Definition{ID: "w", Fields: []Field{{Name: "title", Type: Text}}}, nil)
	out, err := w.Form(context.Background(), host.WidgetSettings{"title": `"><script>`})
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("value not escaped: %s", out)
	}
}

func TestUpdateSanitizes(t *testing.T) {
	def := sampleDefinition()
	def.Fields = append(def.Fields,
		Field{Name: "upper", Type: Text, Sanitize: strings.ToUpper},
		Field{Name: "tags", Type: Text},
	)
	w, _ := New(def, nil)
	got, err := w.Update(context.Background(), host.WidgetSettings{
		"title":       "  <b>Hello</b>\n world ",
		"my_textarea": "line one  \n<i>line</i> two",
		"my_select":   "9",
		"my_checkbox": "yes",
		"my_radio":    "2",
		"upper":       "shout",
		"tags":        []any{" a ", "<b>b</b>"},
	}, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	want := host.WidgetSettings{
		"title":       "Hello world",
		"my_textarea": "line one\nline two",
		"my_select":   "",
		"my_checkbox": "1",
		"my_radio":    "2",
		"upper":       "SHOUT",
		"tags":        []string{"a", "b"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("update mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateStoresMissingFieldsEmpty(t *testing.T) {
	w, _ := New(sampleDefinition(), nil)
	got, _ := w.Update(context.Background(), host.WidgetSettings{}, host.WidgetSettings{"title": "old"})
	if got["title"] != "" || got["my_checkbox"] != "" || got["my_radio"] != "1" {
		t.Fatalf("unexpected update result %v", got)
	}
}

func TestRenderAppliesWidgetTitleFilter(t *testing.T) {
	h := host.New()
	_ = h.AddFilter("widget_title", hook.Key{Function: "upper"}, func(_ context.Context, args ...any) (any, error) {
		return strings.ToUpper(args[0].(string)) + "|" + args[2].(string), nil
	}, 10, 3)
	w, _ := New(sampleDefinition(), h)
	out, err := w.Render(context.Background(),
		host.WidgetArgs{BeforeWidget: "<section>", AfterWidget: "</section>", BeforeTitle: "<h2>", AfterTitle: "</h2>"},
		host.WidgetSettings{"title": "hi", "my_radio": "<2>"},
	)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "<section><h2>HI|sample_widget_id</h2><ul><li><strong>title:</strong> hi</li><li><strong>my_radio:</strong> &lt;2&gt;</li></ul></section>"
	if out != want {
		t.Fatalf("render mismatch\n got %s\nwant %s", out, want)
	}
}

func TestRenderDropsTitleClearedByFilter(t *testing.T) {
	h := host.New()
	_ = h.AddFilter("widget_title", hook.Key{Function: "hide"}, func(context.Context, ...any) (any, error) {
		return "", nil
	}, 10, 1)
	w, _ := New(Definition{ID: "w", Fields: []Field{{Name: "title", Type: Text}}}, h)
	out, _ := w.Render(context.Background(), host.WidgetArgs{BeforeTitle: "<h2>"}, host.WidgetSettings{"title": "x"})
	if strings.Contains(out, "<h2>") {
		t.Fatalf("title should be dropped: %s", out)
	}
}

func TestWidgetRegistersWithHost(t *testing.T) {
	h := host.New()
	w, _ := New(sampleDefinition(), h)
	if err := h.RegisterWidget(w); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got, ok := h.Widget("sample_widget_id"); !ok || got.Name() != "Sample Widget" {
		t.Fatalf("widget lookup failed")
	}
}
