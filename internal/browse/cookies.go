package browse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"tracuu/internal/services"
)

// storedCookie keeps the subset of cookie state the jar can give back.
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Path  string `json:"path,omitempty"`
}

// cookieSnapshot maps host to its cookies.
type cookieSnapshot map[string][]storedCookie

func (s *Session) loadCookies() error {
	if s.cookiePath == "" {
		return nil
	}
	data, err := os.ReadFile(s.cookiePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return services.Wrap(services.ErrConfiguration, componentSession, "cookies", "read cookie file", err)
	}

	var snapshot cookieSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return services.Wrap(services.ErrConfiguration, componentSession, "cookies", "decode cookie file", err)
	}

	for host, cookies := range snapshot {
		if host == "" || len(cookies) == 0 {
			continue
		}
		target := &url.URL{Scheme: "https", Host: host}
		restored := make([]*http.Cookie, 0, len(cookies))
		for _, c := range cookies {
			if c.Name == "" {
				continue
			}
			path := c.Path
			if path == "" {
				path = "/"
			}
			restored = append(restored, &http.Cookie{Name: c.Name, Value: c.Value, Path: path})
		}
		s.client.Jar.SetCookies(target, restored)
		s.hosts[host] = struct{}{}
	}
	return nil
}

// saveCookies writes the jar's visible cookies for every host the
// session has touched. Callers must hold s.mu.
func (s *Session) saveCookies() error {
	if s.cookiePath == "" || s.client.Jar == nil {
		return nil
	}

	snapshot := cookieSnapshot{}
	hosts := make([]string, 0, len(s.hosts))
	for host := range s.hosts {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	for _, host := range hosts {
		target := &url.URL{Scheme: "https", Host: host}
		cookies := s.client.Jar.Cookies(target)
		if len(cookies) == 0 {
			continue
		}
		stored := make([]storedCookie, 0, len(cookies))
		for _, c := range cookies {
			stored = append(stored, storedCookie{Name: c.Name, Value: c.Value, Path: c.Path})
		}
		snapshot[host] = stored
	}

	if len(snapshot) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrConfiguration, componentSession, "cookies", "encode cookie file", err)
	}
	if dir := filepath.Dir(s.cookiePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, componentSession, "cookies",
				fmt.Sprintf("create cookie directory %q", dir), err)
		}
	}
	if err := os.WriteFile(s.cookiePath, data, 0o600); err != nil {
		return services.Wrap(services.ErrConfiguration, componentSession, "cookies", "write cookie file", err)
	}
	return nil
}
