package security

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPProvider 基于 TOTP 的六位数字验证码，密钥只保存在服务端
type TOTPProvider struct {
	issuer string
	period uint
}

// NewTOTPProvider period 为步长（秒）
func NewTOTPProvider(issuer string, period uint) *TOTPProvider {
	if period == 0 {
		period = 300
	}
	return &TOTPProvider{issuer: issuer, period: period}
}

func (p *TOTPProvider) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    p.period,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func (p *TOTPProvider) GenerateSecret(account string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.issuer,
		AccountName: account,
		Period:      p.period,
		SecretSize:  20,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

func (p *TOTPProvider) Code(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, p.opts())
}

func (p *TOTPProvider) Validate(code, secret string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, at, p.opts())
	return err == nil && ok
}

func (p *TOTPProvider) Period() time.Duration {
	return time.Duration(p.period) * time.Second
}
