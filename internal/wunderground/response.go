package wunderground

import (
	"errors"

	"github.com/wxforward/wulike/internal/common"
)

// ErrBadLogin means the server rejected the station id or password. Retrying
// the same request cannot succeed, so the record is dropped instead of
// spooled.
var ErrBadLogin = errors.New("bad station id or password")

// CheckResponseBody classifies a 2xx response body. Servers speaking the WU
// protocol report authentication failures with a 200 status and an error
// string in the body, so status alone is not enough.
func CheckResponseBody(body string) error {
	if common.HasAnyFold(body,
		"invalidpasswordid",
		"password and/or id are incorrect") {
		return ErrBadLogin
	}
	return nil
}
