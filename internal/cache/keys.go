package cache

import (
	"crypto/md5" //nolint:gosec // cache key fingerprinting, not a security boundary
	"encoding/hex"
	"fmt"
)

// hashKey fingerprints one or more strings into the md5 hex digest used by
// the emb:/search: value spaces (spec.md §4.2).
func hashKey(parts ...string) string {
	h := md5.New() //nolint:gosec
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sessionKey(sessionID, valueSpace string) string {
	return fmt.Sprintf("sess:%s:%s", sessionID, valueSpace)
}

func projectKey(projectName, valueSpace string) string {
	return fmt.Sprintf("proj:%s:%s", projectName, valueSpace)
}

func globalKey(valueSpace string) string {
	return "glob:" + valueSpace
}

func embValueSpace(text string) string {
	return "emb:" + hashKey(text)
}

func searchValueSpace(collection, queryKey string) string {
	return fmt.Sprintf("search:%s:%s", collection, hashKey(collection, queryKey))
}

func colInfoValueSpace(collection string) string {
	return "colinfo:" + collection
}

func statsValueSpace(metric string) string {
	return "stats:" + metric
}

const fileIndexValueSpace = "file_index"
const sessionContextValueSpace = "context"
