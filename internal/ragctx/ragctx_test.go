package ragctx

import "testing"

func TestShouldReVectorize(t *testing.T) {
	tests := []struct {
		name     string
		oldText  string
		newText  string
		want     bool
	}{
		{name: "empty old", oldText: "", newText: "anything", want: true},
		{name: "empty new", oldText: "anything", newText: "", want: true},
		{name: "both empty", oldText: "", newText: "", want: true},
		{name: "identical", oldText: "a b c", newText: "a b c", want: false},
		{name: "half overlap", oldText: "a b c d", newText: "a b x y", want: true},
		{name: "case folded", oldText: "Launch Day Sale", newText: "launch day sale", want: false},
		{name: "reordered words", oldText: "fresh roasted coffee beans daily here", newText: "daily here fresh roasted coffee beans", want: false},
		{name: "one word of seven changed", oldText: "a b c d e f g", newText: "a b c d e f h", want: false},
		{name: "two words of seven changed", oldText: "a b c d e f g", newText: "a b c d e x y", want: true},
		{name: "whitespace only", oldText: "   ", newText: "a b", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldReVectorize(tt.oldText, tt.newText); got != tt.want {
				t.Fatalf("ShouldReVectorize(%q, %q) = %v, want %v", tt.oldText, tt.newText, got, tt.want)
			}
		})
	}
}

func TestContextEmpty(t *testing.T) {
	if !(Context{}).Empty() {
		t.Error("zero Context should report Empty")
	}
	if (Context{BrandPatterns: "x"}).Empty() {
		t.Error("populated Context should not report Empty")
	}
}
