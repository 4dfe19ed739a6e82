package transcript

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/adrpadua/battlereport-hud/pkg/types"
)

// cueTiming matches a WebVTT timing line, with an optional hours field:
// "01:02:03.400 --> 01:02:06.800" or "02:03.400 --> 02:06.800".
var cueTiming = regexp.MustCompile(
	`^(?:(\d+):)?(\d{2}):(\d{2})[.,](\d{3})\s+-->\s+(?:(\d+):)?(\d{2}):(\d{2})[.,](\d{3})`)

// cueMarkup matches inline WebVTT markup such as <c.color>, <v Speaker> and
// timestamp tags, all of which are noise for extraction.
var cueMarkup = regexp.MustCompile(`<[^>]*>`)

// ParseWebVTT reads a WebVTT caption stream into transcript segments.
// Cue identifiers, NOTE and STYLE blocks and inline markup are discarded;
// multi-line cue payloads collapse to a single space-joined line.
func ParseWebVTT(r io.Reader) ([]types.TranscriptSegment, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read webvtt header: %w", err)
		}
		return nil, fmt.Errorf("webvtt: empty input")
	}
	header := strings.TrimPrefix(strings.TrimSpace(sc.Text()), "\ufeff")
	if !strings.HasPrefix(header, "WEBVTT") {
		return nil, fmt.Errorf("webvtt: missing WEBVTT header")
	}

	var segments []types.TranscriptSegment
	var cur *types.TranscriptSegment
	var text []string
	skipBlock := false

	flush := func() {
		if cur != nil && len(text) > 0 {
			cur.Text = strings.Join(text, " ")
			segments = append(segments, *cur)
		}
		cur = nil
		text = nil
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flush()
			skipBlock = false
			continue
		}
		if skipBlock {
			continue
		}
		if strings.HasPrefix(trimmed, "NOTE") || trimmed == "STYLE" || trimmed == "REGION" {
			skipBlock = true
			continue
		}

		if m := cueTiming.FindStringSubmatch(trimmed); m != nil {
			flush()
			start := timingSeconds(m[1], m[2], m[3], m[4])
			end := timingSeconds(m[5], m[6], m[7], m[8])
			cur = &types.TranscriptSegment{StartTime: start, Duration: end - start}
			continue
		}

		if cur == nil {
			// Cue identifier line; the timing line follows.
			continue
		}
		if cleaned := strings.TrimSpace(cueMarkup.ReplaceAllString(trimmed, "")); cleaned != "" {
			text = append(text, cleaned)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read webvtt: %w", err)
	}
	flush()
	return segments, nil
}

func timingSeconds(hours, minutes, seconds, millis string) float64 {
	h := 0
	if hours != "" {
		h, _ = strconv.Atoi(hours)
	}
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	ms, _ := strconv.Atoi(millis)
	return float64(h)*3600 + float64(m)*60 + float64(s) + float64(ms)/1000
}
