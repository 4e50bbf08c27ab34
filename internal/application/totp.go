package application

import (
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// totpOpts fixes the time-based code parameters: 30 second steps, six digits,
// and a ±1 step tolerance window to absorb clock drift between the server and
// the authenticator device. Code comparison inside the library is constant
// time.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// GenerateMFAKey creates a fresh shared secret labeled with the issuer and the
// identity's email. The provisioning URI is deterministic given the secret and
// the label, suitable for QR rendering by a client.
func GenerateMFAKey(issuer, email string) (secret, provisioningURI string, err error) {
	if strings.TrimSpace(issuer) == "" {
		issuer = "MediLink"
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: email,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// VerifyMFACode checks a one-time code against the stored secret at the given
// instant, within the fixed tolerance window.
func VerifyMFACode(secret, code string, at time.Time) bool {
	if strings.TrimSpace(secret) == "" || strings.TrimSpace(code) == "" {
		return false
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, at.UTC(), totpOpts)
	return err == nil && ok
}
