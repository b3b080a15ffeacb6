package util

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	absoluteRootRe = regexp.MustCompile(`^https?://`)
	schemelessRe   = regexp.MustCompile(`^//.`)
)

// DetermineFullURLRoot normalizes the configured URL root into an absolute
// URL, falling back to the bind address when only "/" is configured.
func DetermineFullURLRoot(root, address string) (string, error) {
	// Handle "http://host:port/"
	if absoluteRootRe.MatchString(root) {
		return root, nil
	}
	// Handle "//host:port/"
	if schemelessRe.MatchString(root) {
		// Assume plain HTTP. If you are smart enough to set up HTTPS you are
		// also smart enough to configure the URLRoot.
		return "http:" + root, nil
	}
	// Handle "/"
	if root == "/" {
		i := strings.LastIndex(address, ":")
		host, port := address[:i], address[i+1:]
		if host == "" || host == "0.0.0.0" {
			host = "127.0.0.1"
		} else if host == "[::]" {
			host = "[::1]"
		}
		return fmt.Sprintf("http://%s:%s/", host, port), nil
	}
	// Give up
	return "", fmt.Errorf("unsupported URL root format: %q", root)
}
