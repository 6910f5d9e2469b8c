package server

import "strings"

// Route is the endpoint a request path resolves to.
type Route int

// Routes.
const (
	RouteUnknown Route = iota
	RouteIndex
	RouteMP3
	RouteOgg
	RouteWebSocket
	RouteStatus
)

var routeNames = [...]string{
	RouteUnknown:   "unknown",
	RouteIndex:     "index",
	RouteMP3:       "mp3",
	RouteOgg:       "ogg",
	RouteWebSocket: "websocket",
	RouteStatus:    "status",
}

func (r Route) String() string {
	if r < 0 || int(r) >= len(routeNames) {
		return "unknown"
	}
	return routeNames[r]
}

// Classify maps a request target to a Route. Anything after '?' is ignored,
// so cache-busting queries reach the same stream.
func Classify(target string) Route {
	path, _, _ := strings.Cut(target, "?")
	switch path {
	case "/":
		return RouteIndex
	case "/stream", "/stream.mp3":
		return RouteMP3
	case "/stream.opus", "/stream.ogg":
		return RouteOgg
	case "/ws":
		return RouteWebSocket
	case "/status":
		return RouteStatus
	}
	return RouteUnknown
}
