package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	apperrors "stockdesk/internal/errors"
)

// Issuer is shown by authenticator apps next to the account name.
const Issuer = "stockdesk"

// Enrollment is a freshly generated TOTP secret awaiting verification.
type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// EnrollTOTP generates a new TOTP secret for accountName.
func EnrollTOTP(accountName string) (*Enrollment, error) {
	if strings.TrimSpace(accountName) == "" {
		return nil, apperrors.NewValidationError("account", accountName, "account name is required")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      Issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	return &Enrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// VerifyTOTP checks passcode against secret at t, allowing one period of
// clock skew either way.
func VerifyTOTP(passcode, secret string, t time.Time) error {
	passcode = strings.ReplaceAll(strings.TrimSpace(passcode), " ", "")
	if secret == "" {
		return apperrors.Wrap(apperrors.ErrNotConfigured, "two-factor secret")
	}

	ok, err := totp.ValidateCustom(passcode, secret, t, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidPasscode, err)
	}
	if !ok {
		return apperrors.ErrInvalidPasscode
	}
	return nil
}

// CurrentCode returns the passcode for secret at t.
func CurrentCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCode(secret, t)
}
