package logstore

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	sessionPrefix   = "instance-"
	sessionAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	sessionSuffix   = 8
)

// NewSessionID returns an ID of the form instance-<unix millis>-<random>.
// The millisecond component is zero padded so IDs also sort lexically by
// creation time; the random suffix keeps two instances started in the
// same millisecond apart.
func NewSessionID(now time.Time) string {
	suffix, err := gonanoid.Generate(sessionAlphabet, sessionSuffix)
	if err != nil {
		suffix = strconv.FormatInt(now.UnixNano()%1_000_000, 36)
	}
	return fmt.Sprintf("%s%016d-%s", sessionPrefix, now.UnixMilli(), suffix)
}

// SessionTime extracts the creation time in unix milliseconds from a
// session ID. IDs without a parseable time report false.
func SessionTime(sessionID string) (int64, bool) {
	rest, ok := strings.CutPrefix(sessionID, sessionPrefix)
	if !ok {
		return 0, false
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		rest = rest[:i]
	}
	ms, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

// SortNewestFirst orders session IDs by creation time, newest first.
// IDs sharing a timestamp, or without one, fall back to reverse lexical
// order; IDs without a timestamp sort after every timestamped ID.
func SortNewestFirst(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		ti, oki := SessionTime(ids[i])
		tj, okj := SessionTime(ids[j])
		if oki != okj {
			return oki
		}
		if ti != tj {
			return ti > tj
		}
		return ids[i] > ids[j]
	})
}
