package capture

import (
	"net/url"
	"sort"
	"time"

	"github.com/use-agent/consent-core/models"
)

// Harness collects records from all four layers on a shared channel and
// exposes the deduplicated, ordered merge required by downstream phases.
type Harness struct {
	records chan models.CapturedRequest
	buf     []models.CapturedRequest
}

// NewHarness creates a buffered collection channel shared by every layer.
func NewHarness(bufferSize int) *Harness {
	return &Harness{records: make(chan models.CapturedRequest, bufferSize)}
}

// Chan is the shared sink every capture layer writes to.
func (h *Harness) Chan() chan<- models.CapturedRequest { return h.records }

// Drain pulls everything currently buffered on the channel into the
// harness's working set; call before Merge so a final drain sees
// in-flight records recorded after the last poll tick.
func (h *Harness) Drain() {
	for {
		select {
		case rec := <-h.records:
			h.buf = append(h.buf, rec)
		default:
			return
		}
	}
}

const mergeWindow = 50 * time.Millisecond

// Merge implements the §4.3 merge policy: records are keyed by
// (normalized-url, floor(tSeen/50ms)); duplicates collapse into the record
// from the richest source, stamped with the earliest tSeen among them, and
// the result is ordered by tSeen with source-priority tie-break.
func (h *Harness) Merge() []models.CapturedRequest {
	h.Drain()

	type key struct {
		url    string
		bucket int64
	}
	best := make(map[key]models.CapturedRequest)

	for _, rec := range h.buf {
		k := key{url: normalizeURL(rec.URL), bucket: int64(rec.TSeen / mergeWindow)}
		cur, ok := best[k]
		if !ok {
			best[k] = rec
			continue
		}
		earliest := cur.TSeen
		if rec.TSeen < earliest {
			earliest = rec.TSeen
		}
		if models.SourceRank(rec.Source) > models.SourceRank(cur.Source) {
			cur = rec
		}
		cur.TSeen = earliest
		best[k] = cur
	}

	out := make([]models.CapturedRequest, 0, len(best))
	for _, rec := range best {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TSeen != out[j].TSeen {
			return out[i].TSeen < out[j].TSeen
		}
		return models.SourceRank(out[i].Source) > models.SourceRank(out[j].Source)
	})
	return out
}

func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Scheme + "://" + u.Host + u.Path
}
