package emailer

import "errors"

// ErrDisabled is returned by the Disabled mailer
var ErrDisabled = errors.New("mail delivery is not configured")
