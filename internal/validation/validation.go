// Package validation checks values that end up on a command line or in a
// filesystem path: configured source directories, stylesheet compiler
// commands, rsync destinations and site URLs.
package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// shellMeta are the characters a command argument may not contain.
const shellMeta = ";&|`$<>\n\r\x00"

// pathMeta are the characters a configured path may not contain.
const pathMeta = ";&|$`()<>\"'\n\r\x00"

// Argument rejects command arguments carrying shell metacharacters or a
// parent-directory reference.
func Argument(arg string) error {
	if strings.ContainsAny(arg, shellMeta) {
		return fmt.Errorf("contains shell metacharacters")
	}
	if strings.Contains(arg, "..") {
		return fmt.Errorf("contains path traversal")
	}
	return nil
}

// Command checks that name is a bare executable name on the allowlist.
func Command(name string, allowed map[string]bool) error {
	if name == "" {
		return fmt.Errorf("command cannot be empty")
	}
	if filepath.Base(name) != name {
		return fmt.Errorf("command must be a bare executable name: %s", name)
	}
	if !allowed[name] {
		return fmt.Errorf("command '%s' is not allowed", name)
	}
	return Argument(name)
}

// Path rejects empty paths, paths that climb out of the working directory
// and paths with shell metacharacters.
func Path(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return fmt.Errorf("path contains traversal: %s", path)
		}
	}

	if i := strings.IndexAny(path, pathMeta); i >= 0 {
		return fmt.Errorf("path contains dangerous character: %q", path[i])
	}
	return nil
}

// Destination checks an rsync destination such as "user@host:/var/www".
func Destination(dest string) error {
	if strings.TrimSpace(dest) == "" {
		return fmt.Errorf("destination cannot be empty")
	}
	if strings.ContainsAny(dest, shellMeta+" ") {
		return fmt.Errorf("destination contains shell metacharacters")
	}
	return nil
}

// HTTPURL checks that raw is an absolute http or https URL with a host.
func HTTPURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid URL %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}
