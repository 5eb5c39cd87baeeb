package provider

import (
	"context"
	"log/slog"
)

// SocialCheck looks for locality signals and genre hints in an artist's
// social-network presence. No supported network offers unauthenticated
// access, so it currently always reports Absent.
type SocialCheck struct {
	logger *slog.Logger
}

// NewSocialCheck creates a SocialCheck.
func NewSocialCheck(logger *slog.Logger) *SocialCheck {
	return &SocialCheck{logger: logger.With(slog.String("source", string(NameSocial)))}
}

// Name returns the provider identifier.
func (s *SocialCheck) Name() ProviderName { return NameSocial }

// Fetch always returns nil.
func (s *SocialCheck) Fetch(_ context.Context, artistName string) *Fragment {
	s.logger.Debug("no social networks available", slog.String("artist", artistName))
	return nil
}
