package main

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	errMissingTarget = errors.New("a session key or inspect URL is required")
	errInvalidTarget = errors.New("not a session key or inspect URL")
)

var inspectPath = regexp.MustCompile(`^/g/([^/]+)/inspect`)

// parseTarget resolves the positional argument into a server origin and a
// session key. A bare key is looked up on defaultServer; an inspect URL
// carries its own origin.
func parseTarget(arg, defaultServer string) (origin, key string, err error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", "", errMissingTarget
	}

	if !strings.Contains(arg, "://") {
		if strings.ContainsAny(arg, "/?# \t") || arg == "-" {
			return "", "", fmt.Errorf("%w: %q", errInvalidTarget, arg)
		}
		return strings.TrimRight(defaultServer, "/"), arg, nil
	}

	u, err := url.Parse(arg)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", errInvalidTarget, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q", errInvalidTarget, arg)
	}
	m := inspectPath.FindStringSubmatch(u.EscapedPath())
	if m == nil {
		return "", "", fmt.Errorf("%w: path %q has no /g/{key}/inspect", errInvalidTarget, u.Path)
	}
	key, err = url.PathUnescape(m[1])
	if err != nil || key == "" || key == "-" {
		return "", "", fmt.Errorf("%w: %q", errInvalidTarget, arg)
	}
	return u.Scheme + "://" + u.Host, key, nil
}
