package genesys

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetUsersPage fetches one page of the user directory. When includeInactive
// is false the listing is restricted to active users. Returns the page
// entities and the server-reported total page count.
func (c *Client) GetUsersPage(ctx context.Context, pageSize, pageNumber int, includeInactive bool) ([]User, int, error) {
	path := fmt.Sprintf("/api/v2/users?pageSize=%d&pageNumber=%d", pageSize, pageNumber)
	if !includeInactive {
		path += "&state=active"
	}

	page, err := doJSON[pagedResponse[User]](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, 0, err
	}

	return page.Entities, page.PageCount, nil
}

// GetUser fetches a single user with its current version and addresses.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	path := "/api/v2/users/" + url.PathEscape(userID)

	return doJSON[User](ctx, c, http.MethodGet, path, nil)
}

// UpdateUserAddresses submits a partial update carrying the full addresses
// list plus the expected version. The version must be the freshly fetched
// user's version plus one, otherwise the API rejects the write as stale.
func (c *Client) UpdateUserAddresses(ctx context.Context, userID string, addresses []Address, version int) (*User, error) {
	path := "/api/v2/users/" + url.PathEscape(userID)
	body := userPatch{Addresses: addresses, Version: version}

	return doJSON[User](ctx, c, http.MethodPatch, path, body)
}
