package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strconv"

	"millaudit/internal/domain"
)

const (
	hashPrefix   = "sha256:"
	hashScheme   = "millaudit.calc.v1"
	shortHashLen = 12
)

// CalculationHash fingerprints the template identity and the answered
// responses. Each field is written length-prefixed, responses sorted by item
// id, as (item id, N/A flag, kind-qualified value). Justifications, evidence
// and computed scores are not part of the fingerprint. Responses for ids the
// template does not know, and responses without an answer, are skipped.
func CalculationHash(t domain.ChecklistTemplate, responses map[string]domain.AuditResponse) string {
	ids := make([]string, 0, len(responses))
	for id, r := range responses {
		if !r.Answered() {
			continue
		}
		if _, ok := t.Item(id); !ok {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := sha256.New()
	writeField(h, hashScheme)
	writeField(h, t.ID)
	writeField(h, t.Version)
	writeField(h, strconv.Itoa(len(ids)))
	for _, id := range ids {
		r := responses[id]
		writeField(h, id)
		writeField(h, strconv.FormatBool(r.NotApplicable()))
		writeField(h, r.Value.Canonical())
	}
	return hashPrefix + hex.EncodeToString(h.Sum(nil))
}

// ShortHash is the display form of a calculation hash.
func ShortHash(hash string) string {
	digest := hash
	if len(digest) > len(hashPrefix) && digest[:len(hashPrefix)] == hashPrefix {
		digest = digest[len(hashPrefix):]
	}
	if len(digest) > shortHashLen {
		digest = digest[:shortHashLen]
	}
	return digest
}

func writeField(w io.Writer, s string) {
	io.WriteString(w, strconv.Itoa(len(s)))
	io.WriteString(w, ":")
	io.WriteString(w, s)
}
