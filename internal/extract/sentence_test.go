// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"reflect"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "periods",
			text: "First sentence. Second sentence. Third.",
			want: []string{"First sentence.", "Second sentence.", "Third."},
		},
		{
			name: "mixed terminators",
			text: "Does it work? It does! Great.",
			want: []string{"Does it work?", "It does!", "Great."},
		},
		{
			name: "trailing text without terminator",
			text: "Complete sentence. dangling fragment",
			want: []string{"Complete sentence.", "dangling fragment"},
		},
		{
			name: "single sentence no terminator",
			text: "a heading line",
			want: []string{"a heading line"},
		},
		{
			name: "empty",
			text: "   ",
			want: nil,
		},
		{
			name: "short fragments dropped",
			text: "Real sentence here. p.",
			want: []string{"Real sentence here."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
