// Copyright 2026 The Pastehost Authors
// SPDX-License-Identifier: Apache-2.0

package restapi

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pastehost/pastehost/lib/publish"
)

// maxPages bounds Link-header pagination so a backend that keeps
// returning a next link cannot loop a publish forever.
const maxPages = 100

// Collect sends a GET for request and follows RFC 5988 Link rel="next"
// headers, decoding each page as a JSON array of T and returning all
// items concatenated.
func Collect[T any](ctx context.Context, client *Client, request Request) ([]T, error) {
	var all []T
	for page := 0; page < maxPages; page++ {
		response, err := client.Do(ctx, request)
		if err != nil {
			return all, err
		}
		var items []T
		if err := json.Unmarshal(response.Body, &items); err != nil {
			return all, publish.InvalidResponse(client.backend, "decoding page of "+request.Path, err)
		}
		all = append(all, items...)

		next := parseLinkNext(response.Header.Get("Link"))
		if next == "" {
			return all, nil
		}
		// The next link carries the full query string.
		request.Path = next
		request.Query = nil
	}
	client.logger.Warn("pagination stopped at page limit", "path", request.Path, "pages", maxPages)
	return all, nil
}

// parseLinkNext extracts the URL with rel="next" from an RFC 5988 Link
// header, or returns "".
//
// Format: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkNext(header string) string {
	for _, part := range strings.Split(header, ",") {
		urlPart, relPart, found := strings.Cut(strings.TrimSpace(part), ";")
		if !found || !strings.Contains(relPart, `rel="next"`) {
			continue
		}
		urlPart = strings.TrimSpace(urlPart)
		if strings.HasPrefix(urlPart, "<") && strings.HasSuffix(urlPart, ">") {
			return urlPart[1 : len(urlPart)-1]
		}
	}
	return ""
}
