// Package meeting provisions joinable meeting references for approved
// bookings.
package meeting

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/evymii/pineder-sub001/internal/application"
)

// LinkProvisioner mints meeting URLs under a fixed base. The room path is
// derived from the booking so repeated provisioning for the same booking
// yields the same reference.
type LinkProvisioner struct {
	baseURL *url.URL
}

// NewLinkProvisioner validates the base URL once at construction.
func NewLinkProvisioner(baseURL string) (*LinkProvisioner, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("meeting base url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid meeting base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("meeting base url must be http or https, got %q", parsed.Scheme)
	}
	return &LinkProvisioner{baseURL: parsed}, nil
}

// ProvisionMeeting implements application.MeetingProvisioner.
func (p *LinkProvisioner) ProvisionMeeting(_ context.Context, req application.MeetingRequest) (string, error) {
	if p == nil || p.baseURL == nil {
		return "", fmt.Errorf("meeting provisioner not configured")
	}
	if strings.TrimSpace(req.BookingID) == "" {
		return "", fmt.Errorf("booking id is required")
	}
	joined := p.baseURL.JoinPath("rooms", req.BookingID)
	return joined.String(), nil
}
