package nest

// Test-only exports for internal functions.
var (
	SplitPath    = splitPath
	MergeSchemas = mergeSchemas
	MergeValues  = mergeValues
)

// Negotiate exposes encoder negotiation against the App's codecs.
func (a *App) Negotiate(accept string) (string, bool) {
	enc, ok := a.codecs.negotiate(accept)
	if !ok {
		return "", false
	}
	return enc.ContentType(), true
}
