// Package share formats invite links and share messages for a session.
package share

import (
	"fmt"
	"net/url"
)

// InviteURL builds the join link for an invite code on top of the board's
// public base URL: the code rides in the "invite" query parameter.
func InviteURL(baseURL, inviteCode string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	u.Path = "/"
	q := u.Query()
	q.Set("invite", inviteCode)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// InviteMessage composes the share text: title, body, and link separated by
// blank lines.
func InviteMessage(title, text, webURL string) string {
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, text, webURL)
}
