package version

import (
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "v1.2.3"
	ua := UserAgent()
	if !strings.HasPrefix(ua, "LocalScene/v1.2.3 ") {
		t.Errorf("UserAgent() = %q", ua)
	}
	if !strings.Contains(ua, "github.com/sydlexius/localscene") {
		t.Errorf("UserAgent() missing contact URL: %q", ua)
	}
}
