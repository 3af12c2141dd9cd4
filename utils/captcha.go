package utils

import (
	"time"

	"github.com/mojocn/base64Captcha"
)

const captchaTTL = 10 * time.Minute

var memCaptchaStore = base64Captcha.NewMemoryStore(base64Captcha.GCLimitNumber, captchaTTL)

// activeCaptchaStore prefers Redis so captcha ids survive behind a load balancer.
func activeCaptchaStore() base64Captcha.Store {
	if rc := GetRedis(); rc != nil {
		return NewRedisCaptchaStore(rc, captchaTTL)
	}
	return memCaptchaStore
}

// GenerateCaptcha creates a digit captcha and returns (id, dataURI) for the client to display.
func GenerateCaptcha() (string, string, error) {
	driver := base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80)
	c := base64Captcha.NewCaptcha(driver, activeCaptchaStore())
	id, b64, _, err := c.Generate()
	return id, b64, err
}

// VerifyCaptcha verifies the provided answer and consumes it.
func VerifyCaptcha(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return activeCaptchaStore().Verify(id, answer, true)
}
