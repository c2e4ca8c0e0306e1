package sdk

import (
	"fmt"
	"net/url"
	"strings"
)

// AuthorizationHeader builds the value of the MediaBrowser authorization
// header. The Token field is left out when token is empty.
func AuthorizationHeader(client ClientInfo, device DeviceInfo, token string) string {
	header := fmt.Sprintf(`MediaBrowser Client="%s", Device="%s", DeviceId="%s", Version="%s"`,
		encode(client.Name), encode(device.Name), encode(device.ID), encode(client.Version))
	if token != "" {
		header += fmt.Sprintf(`, Token="%s"`, encode(token))
	}
	return header
}

// encode percent-encodes like encodeURIComponent, spaces as %20
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
