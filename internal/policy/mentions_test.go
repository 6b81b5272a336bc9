package policy

import (
	"reflect"
	"testing"
)

func TestMentionTokens(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"none", "no mentions here", nil},
		{"simple", "@Alice reviewed this, cc @Bob-Smith", []string{"Alice", "Bob-Smith"}},
		{"dedup", "@Alice and @Alice again", []string{"Alice"}},
		{"dotted", "ping @j.doe about this", []string{"j.doe"}},
		{"email-like", "mail bob@example.com", []string{"example.com"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MentionTokens(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("MentionTokens(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}
