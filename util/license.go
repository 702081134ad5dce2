package util

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// LicenseVerifier checks a professional license id against the external
// registry. Implementations must be safe for concurrent use.
type LicenseVerifier interface {
	Verify(ctx context.Context, fullName, cedula string) (bool, error)
}

// HTTPLicenseVerifier calls the registry's JSON API with structured name
// parts and the license id, and reads back a boolean match.
type HTTPLicenseVerifier struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPLicenseVerifier(baseURL string) *HTTPLicenseVerifier {
	return &HTTPLicenseVerifier{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *HTTPLicenseVerifier) Verify(ctx context.Context, fullName, cedula string) (bool, error) {
	payload, err := json.Marshal(map[string]string{
		"name":   NormalizeName(fullName),
		"cedula": cedula,
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("license registry unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("license registry returned status %d", resp.StatusCode)
	}

	var result struct {
		Match bool `json:"match"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode license registry response: %w", err)
	}
	return result.Match, nil
}

// StaticLicenseVerifier returns a fixed answer. Used in tests and as the
// fallback when no registry is configured.
type StaticLicenseVerifier struct {
	Match bool
	Err   error
}

func (v *StaticLicenseVerifier) Verify(ctx context.Context, fullName, cedula string) (bool, error) {
	return v.Match, v.Err
}

var licenseVerifier LicenseVerifier = &StaticLicenseVerifier{Match: false}

// SetLicenseVerifier installs the verifier used by VerifyDoctorLicense.
func SetLicenseVerifier(v LicenseVerifier) {
	licenseVerifier = v
}

// VerifyDoctorLicense validates a doctor's license through the configured
// verifier.
func VerifyDoctorLicense(ctx context.Context, fullName, cedula string) (bool, error) {
	return licenseVerifier.Verify(ctx, fullName, cedula)
}
