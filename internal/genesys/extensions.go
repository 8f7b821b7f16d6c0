package genesys

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const extensionsBasePath = "/api/v2/telephony/providers/edges/extensions"

// GetExtensionsPage fetches one page of the global extension registry.
// Returns the page entities and the server-reported total page count.
func (c *Client) GetExtensionsPage(ctx context.Context, pageSize, pageNumber int) ([]Extension, int, error) {
	path := fmt.Sprintf("%s?pageSize=%d&pageNumber=%d", extensionsBasePath, pageSize, pageNumber)

	page, err := doJSON[pagedResponse[Extension]](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, 0, err
	}

	return page.Entities, page.PageCount, nil
}

// LookupExtensions fetches the extension records matching one exact number.
func (c *Client) LookupExtensions(ctx context.Context, number string) ([]Extension, error) {
	path := extensionsBasePath + "?number=" + url.QueryEscape(number)

	page, err := doJSON[pagedResponse[Extension]](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	return page.Entities, nil
}
