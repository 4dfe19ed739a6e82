package transcript

import (
	"strings"

	"github.com/adrpadua/battlereport-hud/pkg/types"
)

// Deduplicate collapses consecutive segments whose trimmed text is identical,
// keeping the first occurrence. Caption systems commonly repeat the same line
// across several timestamp windows; the timestamp gap of dropped duplicates
// is intentionally lost.
//
// The pass is O(n), stable, and idempotent. An empty input returns an empty
// (non-nil) slice.
func Deduplicate(segments []types.TranscriptSegment) []types.TranscriptSegment {
	out := make([]types.TranscriptSegment, 0, len(segments))
	prev := ""
	for i, s := range segments {
		trimmed := strings.TrimSpace(s.Text)
		if i > 0 && trimmed == prev {
			continue
		}
		out = append(out, s)
		prev = trimmed
	}
	return out
}
