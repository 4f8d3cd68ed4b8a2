package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// page holds the limit/offset window requested by a list endpoint.
type page struct {
	Limit  int
	Offset int
}

// queryInt reads an integer query parameter. Missing or malformed values yield def.
func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// querySeconds reads a whole-second duration such as ?wait=25, clamped to [0, limit].
func querySeconds(r *http.Request, key string, limit time.Duration) time.Duration {
	d := time.Duration(queryInt(r, key, 0)) * time.Second
	return max(0, min(d, limit))
}

// pageFromQuery reads ?limit and ?offset. Limit falls in [1, maxLimit]; offset is never negative.
func pageFromQuery(r *http.Request, defLimit, maxLimit int) page {
	maxLimit = max(maxLimit, 1)
	return page{
		Limit:  max(1, min(queryInt(r, "limit", defLimit), maxLimit)),
		Offset: max(0, queryInt(r, "offset", 0)),
	}
}
