package tab

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var bareVideoID = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ExtractVideoID accepts watch, short, embed and /v/ URLs as well as a bare
// eleven character id.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty video URL")
	}
	if bareVideoID.MatchString(raw) {
		return raw, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid video URL: %w", err)
	}
	host := strings.ToLower(u.Host)

	if strings.Contains(host, "youtu.be") {
		if id := firstPathSegment(strings.TrimPrefix(u.Path, "/")); id != "" {
			return id, nil
		}
		return "", fmt.Errorf("no video id in short URL %q", raw)
	}
	if strings.Contains(host, "youtube.com") {
		if strings.HasPrefix(u.Path, "/watch") {
			if id := u.Query().Get("v"); id != "" {
				return id, nil
			}
		}
		for _, prefix := range []string{"/embed/", "/v/"} {
			if strings.HasPrefix(u.Path, prefix) {
				if id := firstPathSegment(strings.TrimPrefix(u.Path, prefix)); id != "" {
					return id, nil
				}
			}
		}
	}
	return "", fmt.Errorf("unable to extract video id from %q", raw)
}

func firstPathSegment(p string) string {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}
