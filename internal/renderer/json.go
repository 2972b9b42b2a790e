package renderer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"

	apperrors "github.com/ehaomiao/slim/internal/errors"
	"github.com/ehaomiao/slim/internal/web"
)

// ContentTypeJSON is the content type set by the JSON renderer
const ContentTypeJSON = "application/json; charset=utf-8"

// Context is the input of a render pass
type Context struct {
	Content  map[string]any
	Response *web.Response
}

// JSON renders content as pretty-printed JSON after running every string
// through an ordered list of convertors.
type JSON struct {
	convertors []Convertor
	indent     string
	api        jsoniter.API
}

// Option configures the JSON renderer
type Option func(*JSON)

// WithConvertors appends convertors to the list
func WithConvertors(convertors ...Convertor) Option {
	return func(j *JSON) {
		j.convertors = append(j.convertors, convertors...)
	}
}

// WithOverride replaces the convertor list
func WithOverride(convertors ...Convertor) Option {
	return func(j *JSON) {
		j.convertors = append([]Convertor(nil), convertors...)
	}
}

// WithIndent sets the indentation; an empty string renders compact JSON.
// Only spaces are supported, any other character counts as one space.
func WithIndent(indent string) Option {
	return func(j *JSON) {
		j.indent = strings.Repeat(" ", utf8.RuneCountInString(indent))
	}
}

// NewJSON creates a JSON renderer. The default convertor list is [GB2312].
func NewJSON(opts ...Option) *JSON {
	j := &JSON{
		convertors: []Convertor{GB2312},
		indent:     "    ",
		api: jsoniter.Config{
			EscapeHTML:             false,
			SortMapKeys:            true,
			ValidateJsonRawMessage: true,
		}.Froze(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Convertors returns a copy of the convertor list
func (j *JSON) Convertors() []Convertor {
	return append([]Convertor(nil), j.convertors...)
}

// Convert applies the convertors to every string in v, recursing into maps
// and slices. Other values are returned as they are.
func (j *JSON) Convert(v any) any {
	switch val := v.(type) {
	case string:
		for _, convert := range j.convertors {
			val = convert(val)
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = j.Convert(item)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[k] = j.Convert(item).(string)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = j.Convert(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = j.Convert(item).(string)
		}
		return out
	default:
		return v
	}
}

// Process encodes the context content into the response body. Encoding
// failures are returned as Runtime exceptions.
func (j *JSON) Process(ctx Context) (*web.Response, error) {
	resp := ctx.Response
	if resp == nil {
		resp = web.NewResponse()
	}

	content := ctx.Content
	if content == nil {
		content = map[string]any{}
	}
	converted := j.Convert(content)

	var (
		body []byte
		err  error
	)
	if j.indent == "" {
		body, err = j.api.Marshal(converted)
	} else {
		body, err = j.api.MarshalIndent(converted, "", j.indent)
	}
	if err != nil {
		return nil, apperrors.New(apperrors.KindRuntime,
			fmt.Sprintf("failed to encode JSON response: %v", err),
			apperrors.WithCause(err),
			apperrors.WithResponse(resp),
		)
	}

	return resp.
		WithHeader("Content-Type", ContentTypeJSON).
		WithBody(body), nil
}
