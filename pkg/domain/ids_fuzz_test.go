package domain

import (
	"strings"
	"testing"
)

// FuzzParseHandles checks that no produced handle is empty or contains a comma.
func FuzzParseHandles(f *testing.F) {
	f.Add("alice,bob,,")
	f.Add("")
	f.Add(" , ,")

	f.Fuzz(func(t *testing.T, input string) {
		for _, h := range ParseHandles([]string{input}) {
			if strings.TrimSpace(string(h)) == "" {
				t.Error("blank handle produced")
			}
			if strings.ContainsRune(string(h), ',') {
				t.Error("handle contains separator")
			}
		}
	})
}

func FuzzNormalizeIdentity(f *testing.F) {
	f.Add("A@B.com")
	f.Add("  user@example.com ")
	f.Add("")

	f.Fuzz(func(t *testing.T, input string) {
		once := NormalizeIdentity(input)
		if NormalizeIdentity(once.String()) != once {
			t.Errorf("normalization is not idempotent for %q", input)
		}
	})
}
