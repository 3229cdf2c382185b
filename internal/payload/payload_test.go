package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliverable(t *testing.T) {
	tests := []struct {
		name string
		p    Payload
		want bool
	}{
		{"text", NewText("hello"), true},
		{"empty text", NewText(""), false},
		{"photo", NewPhoto("p1", ""), true},
		{"video with caption", NewVideo("v1", "cap"), true},
		{"video without file", NewVideo("", "cap"), false},
		{"unsupported", Payload{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Deliverable())
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "video", NewVideo("v", "").Kind.String())
	assert.Equal(t, "unsupported", Kind(42).String())
}
