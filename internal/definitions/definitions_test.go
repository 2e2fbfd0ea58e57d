package definitions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"pluginscaffold/internal/host"
	"pluginscaffold/internal/widget"
)

const postTypeSrc = `
post_type "sample-post-type" {
  label        = "Sample"
  labels       = { name = "Samples", singular_name = "Sample" }
  supports     = ["title", "editor"]
  taxonomies   = ["sample-taxonomy"]
  hierarchical = true
  public       = true
  has_archive  = true
  menu_position = 5

  rewrite {
    slug  = "samples"
    feeds = false
  }
}
`

const taxonomySrc = `
taxonomy "sample-taxonomy" {
  object_types = ["sample-post-type"]
  public       = true
  show_in_rest = true
}
`

const widgetSrc = `
widget "sample_widget_id" {
  name = "Sample Widget"

  field "title" {
    type  = "text"
    label = "Title"
  }

  field "my_radio" {
    type    = "radio"
    default = "1"
    option {
      value = "1"
      label = "Option 1"
    }
    option {
      value = "2"
    }
  }

  field "notes" {
    type     = "textarea"
    sanitize = "raw"
  }
}
`

func TestParsePostType(t *testing.T) {
	set, err := Parse("sample.hcl", []byte(postTypeSrc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	pt, ok := set.PostType("sample-post-type")
	if !ok {
		t.Fatalf("post type missing")
	}
	want := host.PostTypeArgs{
		Label:          "Sample",
		Labels:         map[string]string{"name": "Samples", "singular_name": "Sample"},
		Supports:       []string{"title", "editor"},
		Taxonomies:     []string{"sample-taxonomy"},
		Hierarchical:   true,
		Public:         true,
		HasArchive:     true,
		MenuPosition:   5,
		CapabilityType: "post",
		Rewrite:        &host.Rewrite{Slug: "samples", WithFront: true, Pages: true, Feeds: false},
	}
	if diff := cmp.Diff(want, pt.Args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	if pt.Source != "sample.hcl" {
		t.Fatalf("source = %q", pt.Source)
	}
}

func TestParseWidget(t *testing.T) {
	set, err := Parse("widget.hcl", []byte(widgetSrc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	w, ok := set.Widget("sample_widget_id")
	if !ok {
		t.Fatalf("widget missing")
	}
	want := widget.Definition{
		ID:   "sample_widget_id",
		Name: "Sample Widget",
		Fields: []widget.Field{
			{Name: "title", Type: widget.Text, Label: "Title"},
			{Name: "my_radio", Type: widget.Radio, Default: "1", Options: []widget.Option{{Value: "1", Label: "Option 1"}, {Value: "2"}}},
			{Name: "notes", Type: widget.Textarea},
		},
	}
	if diff := cmp.Diff(want, w.Definition, cmpopts.IgnoreFields(widget.Field{}, "Sanitize")); diff != "" {
		t.Fatalf("definition mismatch (-want +got):\n%s", diff)
	}
	if w.Definition.Fields[2].Sanitize == nil || w.Definition.Fields[2].Sanitize("<b>x</b>") != "<b>x</b>" {
		t.Fatalf("raw sanitizer not applied")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want error
	}{
		{name: "syntax", src: `post_type "x" {`},
		{name: "unknown block", src: `plugin "x" {}`},
		{name: "missing type", src: "widget \"w\" {\n  field \"a\" {}\n}\n"},
		{
			name: "unknown sanitizer",
			src:  "widget \"w\" {\n  field \"a\" {\n    type = \"text\"\n    sanitize = \"nope\"\n  }\n}\n",
			want: ErrInvalid,
		},
		{
			name: "bad field type",
			src:  "widget \"w\" {\n  field \"a\" {\n    type = \"color\"\n  }\n}\n",
			want: widget.ErrInvalidDefinition,
		},
		{name: "duplicate", src: taxonomySrc + taxonomySrc, want: ErrDuplicate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("bad.hcl", []byte(tc.src))
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"defs/posttypes/sample.hcl":  {Data: []byte(postTypeSrc)},
		"defs/taxonomies/sample.hcl": {Data: []byte(taxonomySrc)},
		"defs/widgets/sample.hcl":    {Data: []byte(widgetSrc)},
		"defs/widgets/README.md":     {Data: []byte("not a definition")},
	}
	set, err := LoadFS(context.Background(), fsys, "defs")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if set.Len() != 3 {
		t.Fatalf("expected 3 definitions, got %d", set.Len())
	}
	tax, ok := set.Taxonomy("sample-taxonomy")
	if !ok || tax.Source != "defs/taxonomies/sample.hcl" || !tax.Args.ShowInREST {
		t.Fatalf("unexpected taxonomy %+v", tax)
	}
}

func TestLoadFSDuplicateAcrossFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"a.hcl": {Data: []byte(taxonomySrc)},
		"b.hcl": {Data: []byte(taxonomySrc)},
	}
	if _, err := LoadFS(context.Background(), fsys, "."); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestLoadDirMissingIsEmpty(t *testing.T) {
	set, err := LoadDir(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("expected empty set")
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tax.hcl"), []byte(taxonomySrc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Set, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, 20*time.Millisecond, func(s *Set, err error) {
			if err == nil {
				reloaded <- s
			}
		})
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case s := <-reloaded:
			if _, ok := s.PostType("sample-post-type"); ok {
				cancel()
				if err := <-done; err != nil {
					t.Fatalf("watch: %v", err)
				}
				return
			}
		case <-tick.C:
			// Rewrite until the watcher has been established and picks it up.
			_ = os.WriteFile(filepath.Join(dir, "pt.hcl"), []byte(postTypeSrc), 0o644)
		case <-deadline:
			t.Fatalf("no reload observed")
		}
	}
}

func TestWatchReportsWatcherFailure(t *testing.T) {
	orig := newWatcher
	t.Cleanup(func() { newWatcher = orig })
	boom := errors.New("inotify exhausted")
	newWatcher = func() (watcher, error) { return nil, boom }
	if err := Watch(context.Background(), t.TempDir(), 0, func(*Set, error) {}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
