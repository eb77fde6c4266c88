package ridl

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

const (
	RetiredTagRejected  = "rejected"
	RetiredTagWithdrawn = "withdrawn"
)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var retiredNameRe = regexp.MustCompile(`-(rejected|withdrawn)-[a-z0-9]{4}$`)

// RetiredName derives the renamed slug for a rejected or withdrawn dataset.
// The random suffix frees the original name for a future submission while
// the retired record stays around for audit.
func RetiredName(name, tag string) string {
	return fmt.Sprintf("%s-%s-%s", name, tag, randomSuffix(4))
}

// IsRetiredName reports whether a slug carries a rejected/withdrawn marker.
func IsRetiredName(name string) bool {
	return retiredNameRe.MatchString(name)
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i := range buf {
		buf[i] = suffixAlphabet[int(buf[i])%len(suffixAlphabet)]
	}
	return string(buf)
}
