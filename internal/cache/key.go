package cache

// entryKey builds the in-memory key for one file at one content hash.
// The NUL separator cannot occur in either part.
func entryKey(path, hash string) string {
	return path + "\x00" + hash
}
