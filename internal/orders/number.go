package orders

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

const orderNumberPrefix = "MUX"

// NewOrderNumber formats MUX-YYYYMMDD-XXXXXX from the UTC date and six random upper-case hex digits.
func NewOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return orderNumberPrefix + "-" + now.UTC().Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}
