/*
Package client is a typed Go client for the primeslot HTTP API.

It is what the primeslot CLI uses for commands that run against a live
server. Members authenticate with WithToken; administrators call
AdminLogin once and the session cookie is kept in the client's cookie
jar.

	c, err := client.New("http://localhost:8080")
	if err != nil {
		return err
	}
	if err := c.AdminLogin(ctx, email, password); err != nil {
		return err
	}
	summary, err := c.MeetingSummary(ctx, eventID)

Non-2xx responses are returned as *APIError.
*/
package client
