// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package config

import (
	"fmt"
	"net/url"
)

// validateBaseURL checks an http(s) URL that request paths are appended to.
func validateBaseURL(rawURL, fieldName string) error {
	parsedURL, err := validateEndpointURLParsed(rawURL, fieldName)
	if err != nil {
		return err
	}

	// Allow trailing slash but no other paths
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsedURL.Path)
	}
	return nil
}

// validateEndpointURL checks an http(s) URL that is used as is.
func validateEndpointURL(rawURL, fieldName string) error {
	_, err := validateEndpointURLParsed(rawURL, fieldName)
	return err
}

func validateEndpointURLParsed(rawURL, fieldName string) (*url.URL, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return nil, fmt.Errorf("%s host is required", fieldName)
	}

	if parsedURL.RawQuery != "" {
		return nil, fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	return parsedURL, nil
}
