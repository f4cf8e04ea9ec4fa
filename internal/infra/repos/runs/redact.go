package runs

import (
	"net/url"
	"strings"
)

const redacted = "****"

var secretKeys = []string{"password", "pass", "pwd", "sslpassword"}

// RedactDSN masks the password of a URL or keyword DSN before it is logged.
// Anything else, such as a bare SQLite file path, is masked entirely.
func RedactDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ""
	}

	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		if u.User != nil {
			u.User = url.UserPassword(u.User.Username(), redacted)
		}
		q := u.Query()
		for _, k := range secretKeys {
			if q.Has(k) {
				q.Set(k, redacted)
			}
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	// host=... user=... password=...
	parts := strings.Fields(dsn)
	found := false
	for i, part := range parts {
		key, _, ok := strings.Cut(part, "=")
		if ok && isSecretKey(key) {
			parts[i] = key + "=" + redacted
			found = true
		}
	}
	if found {
		return strings.Join(parts, " ")
	}

	return redacted
}

func isSecretKey(key string) bool {
	for _, k := range secretKeys {
		if strings.EqualFold(key, k) {
			return true
		}
	}
	return false
}
