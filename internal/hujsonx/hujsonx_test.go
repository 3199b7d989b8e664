package hujsonx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUnmarshal(t *testing.T) {
	t.Run("with invalid JSON", func(t *testing.T) {
		var v map[string]any
		if err := Unmarshal([]byte("{"), &v); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("with comments and trailing commas", func(t *testing.T) {
		input := []byte(`{
			// the rollout kill switch
			"doh-rollout.enabled": true,
		}`)
		var v map[string]bool
		if err := Unmarshal(input, &v); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(map[string]bool{"doh-rollout.enabled": true}, v); diff != "" {
			t.Fatal(diff)
		}
	})
}
