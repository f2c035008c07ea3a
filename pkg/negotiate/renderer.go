package negotiate

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Media types served by the default registry.
const (
	MediaTypeRDAP = "application/rdap+json"
	MediaTypeJSON = "application/json"
	MediaTypeYAML = "application/yaml"
	MediaTypeText = "text/yaml"
)

// Renderer writes a response body in one media type.
type Renderer interface {
	ContentType() string
	Render(w io.Writer, v any) error
}

// RenderError reports a body that could not be produced.
type RenderError struct {
	ContentType string
	Err         error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.ContentType, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// JSONRenderer renders JSON under a fixed content type.
type JSONRenderer struct {
	contentType string
	indent      string
}

// NewJSONRenderer returns a JSON renderer announcing contentType.
func NewJSONRenderer(contentType string) *JSONRenderer {
	return &JSONRenderer{contentType: contentType}
}

// Indented returns a copy that pretty-prints.
func (r *JSONRenderer) Indented(indent string) *JSONRenderer {
	return &JSONRenderer{contentType: r.contentType, indent: indent}
}

// ContentType implements Renderer.
func (r *JSONRenderer) ContentType() string {
	return r.contentType
}

// Render implements Renderer.
func (r *JSONRenderer) Render(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if r.indent != "" {
		enc.SetIndent("", r.indent)
	}
	if err := enc.Encode(v); err != nil {
		return &RenderError{ContentType: r.contentType, Err: err}
	}
	return nil
}

// YAMLRenderer renders the JSON form of a value as YAML, so member names
// match the JSON response.
type YAMLRenderer struct {
	contentType string
}

// NewYAMLRenderer returns a YAML renderer announcing contentType.
func NewYAMLRenderer(contentType string) *YAMLRenderer {
	return &YAMLRenderer{contentType: contentType}
}

// ContentType implements Renderer.
func (r *YAMLRenderer) ContentType() string {
	return r.contentType
}

// Render implements Renderer.
func (r *YAMLRenderer) Render(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &RenderError{ContentType: r.contentType, Err: err}
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return &RenderError{ContentType: r.contentType, Err: err}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return &RenderError{ContentType: r.contentType, Err: err}
	}
	if err := enc.Close(); err != nil {
		return &RenderError{ContentType: r.contentType, Err: err}
	}
	return nil
}
