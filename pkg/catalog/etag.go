package catalog

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Validator prefixes.
const (
	prefixCategories = "c"
	prefixProduct    = "p"
	prefixHero       = "h"
)

// CategoriesETag derives the collection validator "c<count>-<maxUpdatedAtMillis>".
//
// It changes when a category is added or removed (count) or any category is
// updated (max timestamp), and does not depend on element order.
func CategoriesETag(categories []Category) string {
	var maxUpdated int64
	for _, c := range categories {
		if ms := epochMillis(c.UpdatedAt); ms > maxUpdated {
			maxUpdated = ms
		}
	}
	return quote(prefixCategories + strconv.Itoa(len(categories)) + "-" + strconv.FormatInt(maxUpdated, 10))
}

// ProductETag derives "p<id>-<updatedAtMillis>".
func ProductETag(p ProductDetail) string {
	return quote(prefixProduct + strconv.FormatInt(p.ID, 10) + "-" + strconv.FormatInt(epochMillis(p.UpdatedAt), 10))
}

// HeroETag derives "h<id>-<updatedAtMillis>". Without a timestamp it falls
// back to "h<id>-x<hash>", an xxhash64 of the msgpack encoding, which depends
// only on content and so survives restarts.
func HeroETag(h HeroSettings) (string, error) {
	id := prefixHero + strconv.FormatInt(h.ID, 10) + "-"
	if !h.UpdatedAt.IsZero() {
		return quote(id + strconv.FormatInt(epochMillis(h.UpdatedAt), 10)), nil
	}

	sum, err := contentHash(h)
	if err != nil {
		return "", fmt.Errorf("hash hero settings: %w", err)
	}
	return quote(id + "x" + fmt.Sprintf("%016x", sum)), nil
}

func contentHash(v any) (uint64, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

func epochMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func quote(s string) string {
	return `"` + s + `"`
}
