package provider

import (
	"context"
	"testing"
)

func TestSocialCheck_AlwaysAbsent(t *testing.T) {
	s := NewSocialCheck(testLogger())
	if s.Name() != NameSocial {
		t.Errorf("Name = %q", s.Name())
	}
	if f := s.Fetch(context.Background(), "Anyone"); f != nil {
		t.Errorf("expected nil fragment, got %+v", f)
	}
}
