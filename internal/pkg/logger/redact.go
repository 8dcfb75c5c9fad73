package logger

import "strings"

// RedactEmail masks a subscriber address for logging. The domain stays (it
// is what deliverability debugging needs); the local part keeps at most its
// first two characters. Anything that does not look like a single address
// is masked entirely.
//
//	"john.doe@example.com" -> "jo***@example.com"
//	"ab@example.com"       -> "***@example.com"
func RedactEmail(email string) string {
	local, host, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(host, "@") {
		return "***@***"
	}
	if len(local) <= 2 {
		return "***@" + host
	}
	return local[:2] + "***@" + host
}
