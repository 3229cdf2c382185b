package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	catalog := map[string]string{"Ep1": "file-1"}

	tests := []struct {
		name  string
		param string
		want  Result
	}{
		{name: "empty", param: "", want: Result{Kind: NoParameter}},
		{name: "found", param: "Ep1", want: Result{Kind: Found, Key: "Ep1", FileID: "file-1"}},
		{name: "case sensitive", param: "ep1", want: Result{Kind: NotFound, Key: "ep1"}},
		{name: "unknown", param: "Ep2", want: Result{Kind: NotFound, Key: "Ep2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.param, catalog))
		})
	}
}

func TestResolve_NilCatalog(t *testing.T) {
	assert.Equal(t, NotFound, Resolve("x", nil).Kind)
}

func TestDeepLink(t *testing.T) {
	assert.Equal(t, "https://t.me/mybot?start=Ep1", DeepLink("mybot", "Ep1"))
	assert.Equal(t, "https://t.me/mybot?start=", DeepLink("mybot", ""))
}
