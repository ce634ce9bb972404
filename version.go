package nest

import "slices"

// VersionStrategy selects how the API version is read from a request.
type VersionStrategy uint8

// Version strategies.
const (
	// VersionNone disables versioning.
	VersionNone VersionStrategy = iota
	// VersionPath reads the version from the first path segment after the
	// API prefix: /api/v1/users.
	VersionPath
	// VersionHeader reads the version from a request header.
	VersionHeader
	// VersionParam reads the version from a query parameter.
	VersionParam
)

// Default keys for header and query parameter versioning.
const (
	DefaultVersionHeader = "Accept-Version"
	DefaultVersionParam  = "ver"
)

// String returns the strategy name.
func (s VersionStrategy) String() string {
	switch s {
	case VersionNone:
		return "none"
	case VersionPath:
		return "path"
	case VersionHeader:
		return "header"
	case VersionParam:
		return "param"
	default:
		return "invalid"
	}
}

func (s VersionStrategy) valid() bool {
	return s <= VersionParam
}

func (s VersionStrategy) defaultKey() string {
	//exhaustive:ignore
	switch s {
	case VersionHeader:
		return DefaultVersionHeader
	case VersionParam:
		return DefaultVersionParam
	default:
		return ""
	}
}

// resolveVersion extracts the version token from req. For VersionPath it
// consumes the first of the remaining path segments.
func (a *App) resolveVersion(req *Request, segs []string) (string, []string, error) {
	var token string

	switch a.strategy {
	case VersionNone:
		return "", segs, nil
	case VersionPath:
		if len(segs) > 0 {
			token, segs = segs[0], segs[1:]
		}
	case VersionHeader:
		token = req.Header.Get(a.versionKey)
	case VersionParam:
		token = req.Query.Get(a.versionKey)
		if token == "" {
			token, _ = asString(req.Params[a.versionKey])
		}
	}

	if token == "" || !slices.Contains(a.versions, token) {
		return token, segs, &RoutingError{
			Reason:  RouteUnknownVersion,
			Method:  req.Method,
			Path:    req.Path,
			Version: token,
		}
	}
	return token, segs, nil
}
