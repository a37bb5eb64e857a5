package lesson

import (
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/Showmax/go-fqdn"
)

// BaseURL returns public when set. Otherwise it builds an http URL from the
// host's fully qualified name so phones on the classroom network can reach it.
func BaseURL(public string, port int) string {
	if public != "" {
		return strings.TrimRight(public, "/")
	}

	host, err := fqdn.FqdnHostname()
	if err != nil {
		slog.Warn("fqdn lookup failed, using hostname", "error", err)
		host, err = os.Hostname()
		if err != nil {
			host = "localhost"
		}
	}
	return "http://" + host + ":" + strconv.Itoa(port)
}

func joinURL(base, sessionID, token string) string {
	return base + "/join/" + url.PathEscape(sessionID) + "?token=" + url.QueryEscape(token)
}
