package renderer

import (
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ehaomiao/slim/internal/errors"
	"github.com/ehaomiao/slim/internal/web"
)

func upper(s string) string { return strings.ToUpper(s) }

func TestJSON_Process(t *testing.T) {
	resp := web.NewResponse().WithStatus(http.StatusNotFound).WithHeader("X-Request-ID", "abc")

	out, err := NewJSON().Process(Context{
		Content:  map[string]any{"code": -404, "message": "Not found"},
		Response: resp,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, out.Status())
	assert.Equal(t, ContentTypeJSON, out.Header().Get("Content-Type"))
	assert.Equal(t, "abc", out.Header().Get("X-Request-ID"))
	assert.Equal(t, "{\n    \"code\": -404,\n    \"message\": \"Not found\"\n}", string(out.Body()))
	assert.Empty(t, resp.Body(), "input response must not be modified")
}

func TestJSON_Process_Options(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		content map[string]any
		want    string
	}{
		{
			name:    "compact",
			opts:    []Option{WithIndent("")},
			content: map[string]any{"b": 1, "a": "x"},
			want:    `{"a":"x","b":1}`,
		},
		{
			name:    "tab indent becomes spaces",
			opts:    []Option{WithIndent("\t")},
			content: map[string]any{"a": 1},
			want:    "{\n \"a\": 1\n}",
		},
		{
			name:    "nil content",
			opts:    []Option{WithIndent("")},
			content: nil,
			want:    `{}`,
		},
		{
			name:    "html is not escaped",
			opts:    []Option{WithIndent("")},
			content: map[string]any{"m": "<b>&</b>"},
			want:    `{"m":"<b>&</b>"}`,
		},
		{
			name:    "legacy encoding decoded by default",
			opts:    []Option{WithIndent("")},
			content: map[string]any{"message": "\xc4\xe3\xba\xc3"},
			want:    `{"message":"你好"}`,
		},
		{
			name:    "appended convertor runs after default",
			opts:    []Option{WithIndent(""), WithConvertors(upper)},
			content: map[string]any{"m": "abc", "list": []any{"x", 1}},
			want:    `{"list":["X",1],"m":"ABC"}`,
		},
		{
			name:    "override drops default",
			opts:    []Option{WithIndent(""), WithOverride(Trim)},
			content: map[string]any{"m": "  spaced  "},
			want:    `{"m":"spaced"}`,
		},
		{
			name:    "nested values",
			opts:    []Option{WithIndent(""), WithOverride(Trim)},
			content: map[string]any{"outer": map[string]any{"inner": []string{" a "}}, "tags": map[string]string{"k": " v "}},
			want:    `{"outer":{"inner":["a"]},"tags":{"k":"v"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewJSON(tt.opts...).Process(Context{Content: tt.content})
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out.Body()))
			assert.Equal(t, http.StatusOK, out.Status())
		})
	}
}

func TestJSON_Process_EncodingFailure(t *testing.T) {
	resp := web.NewResponse()
	out, err := NewJSON().Process(Context{
		Content:  map[string]any{"ratio": math.NaN()},
		Response: resp,
	})

	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindRuntime))

	var exc *apperrors.Exception
	require.ErrorAs(t, err, &exc)
	assert.Same(t, resp, exc.Response())
	assert.Contains(t, exc.Message(), "failed to encode JSON response")
}

func TestJSON_Convertors(t *testing.T) {
	j := NewJSON(WithConvertors(Trim))
	got := j.Convertors()
	require.Len(t, got, 2)

	got[0] = nil
	assert.Len(t, j.Convertors(), 2)
	assert.NotNil(t, j.Convertors()[0])
}

func TestJSON_Convert_LeavesOtherValues(t *testing.T) {
	type custom struct{ Name string }
	j := NewJSON(WithOverride(upper))

	assert.Equal(t, 42, j.Convert(42))
	assert.Equal(t, custom{Name: "x"}, j.Convert(custom{Name: "x"}))
	assert.Nil(t, j.Convert(nil))
}
