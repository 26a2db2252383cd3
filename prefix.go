package layered

// DefaultPrefixDelimiter separates cache name from entry key in the remote tier.
const DefaultPrefixDelimiter = ":"

// Prefixer derives a remote tier key prefix from a cache name.
type Prefixer func(name string) string

// DelimiterPrefixer prefixes remote keys with the cache name followed by a
// delimiter.
func DelimiterPrefixer(delimiter string) Prefixer {
	return func(name string) string {
		return name + delimiter
	}
}
