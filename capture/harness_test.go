package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/consent-core/models"
)

func TestMergePrefersEarliestThenRichestSource(t *testing.T) {
	h := NewHarness(16)
	h.Chan() <- models.CapturedRequest{URL: "https://t.example.com/x", TSeen: 10 * time.Millisecond, Source: models.SourceRewrite}
	h.Chan() <- models.CapturedRequest{URL: "https://t.example.com/x", TSeen: 12 * time.Millisecond, Source: models.SourceTransport}

	merged := h.Merge()
	assert.Len(t, merged, 1)
	assert.Equal(t, models.SourceTransport, merged[0].Source)
}

func TestMergeOrdersByTSeen(t *testing.T) {
	h := NewHarness(16)
	h.Chan() <- models.CapturedRequest{URL: "https://a.example.com/", TSeen: 200 * time.Millisecond, Source: models.SourceInPage}
	h.Chan() <- models.CapturedRequest{URL: "https://b.example.com/", TSeen: 50 * time.Millisecond, Source: models.SourceInPage}

	merged := h.Merge()
	assert.Len(t, merged, 2)
	assert.Equal(t, "https://b.example.com/", merged[0].URL)
}
