package tmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		data    any
		want    string
		wantErr bool
	}{
		{
			name: "simple substitution",
			tmpl: "hello {{ .Name }}",
			data: map[string]string{"Name": "world"},
			want: "hello world",
		},
		{
			name: "multiple variables",
			tmpl: `Work on item #{{ .Number }}: {{ .Title }}`,
			data: map[string]any{
				"Number": 42,
				"Title":  "add retry logic",
			},
			want: `Work on item #42: add retry logic`,
		},
		{
			name: "shq quotes values with spaces",
			tmpl: `claude -p {{ shq .Prompt }}`,
			data: map[string]string{"Prompt": "fix the failing test"},
			want: `claude -p 'fix the failing test'`,
		},
		{
			name: "shq escapes single quotes",
			tmpl: `{{ shq .Prompt }}`,
			data: map[string]string{"Prompt": "don't break"},
			want: `'don'\''t break'`,
		},
		{
			name: "shq empty string",
			tmpl: `{{ shq .Prompt }}`,
			data: map[string]string{"Prompt": ""},
			want: `''`,
		},
		{
			name: "join topics",
			tmpl: `{{ join .Topics ", " }}`,
			data: map[string][]string{"Topics": {"auth", "storage"}},
			want: "auth, storage",
		},
		{
			name:    "missing key is an error",
			tmpl:    "{{ .Missing }}",
			data:    map[string]string{"Name": "world"},
			wantErr: true,
		},
		{
			name:    "invalid template",
			tmpl:    "{{ .Name",
			data:    map[string]string{"Name": "world"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tmpl, tt.data)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
