package fetch

import (
	"errors"
	"net/url"
)

// redactURL strips userinfo and query from raw so it can be logged.
// Export URLs sometimes carry tokens in either place.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<invalid url>"
	}
	u.User = nil
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	return u.String()
}

// redactError rewrites the URL carried by a transport error in place.
func redactError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = redactURL(uerr.URL)
	}
	return err
}
