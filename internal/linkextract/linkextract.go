// Package linkextract pulls recognized video links out of free-form text.
//
// Three families are recognized: YouTube (watch, shorts, embed, playlist and
// youtu.be short links), Instagram (reel, p, tv, video) and TikTok. YouTube
// links keep their query string because the video identifier lives there;
// the other families are reduced to scheme, host and path. Extraction never
// touches the network and never fails: text without links yields nil.
package linkextract

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Family identifies which host pattern matched a link.
type Family string

const (
	FamilyUnknown   Family = ""
	FamilyYouTube   Family = "youtube"
	FamilyInstagram Family = "instagram"
	FamilyTikTok    Family = "tiktok"
)

type pattern struct {
	family Family
	re     *regexp.Regexp
}

var patterns = []pattern{
	{FamilyYouTube, regexp.MustCompile(`(?i)https?://(?:www\.|m\.)?(?:youtube\.com/(?:watch\?v=|shorts/|embed/|playlist\?list=)|youtu\.be/)[^\s<>"']+`)},
	{FamilyInstagram, regexp.MustCompile(`(?i)https?://(?:www\.)?instagram\.com/(?:reel|p|tv|video)/[^\s<>"']+`)},
	{FamilyTikTok, regexp.MustCompile(`(?i)https?://(?:www\.|m\.|vm\.|vt\.)?tiktok\.com/[^\s<>"']+`)},
}

const trailingPunctuation = ".,;:!?)]}'\""

type match struct {
	offset int
	link   string
}

// Extract returns normalized links in order of first appearance, without duplicates.
func Extract(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var found []match
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			link := normalize(p.family, text[loc[0]:loc[1]])
			if link == "" {
				continue
			}
			found = append(found, match{offset: loc[0], link: link})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].offset < found[j].offset })

	seen := make(map[string]struct{}, len(found))
	out := make([]string, 0, len(found))
	for _, m := range found {
		if _, ok := seen[m.link]; ok {
			continue
		}
		seen[m.link] = struct{}{}
		out = append(out, m.link)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Classify reports which family a link belongs to.
func Classify(link string) Family {
	link = strings.TrimSpace(link)
	for _, p := range patterns {
		if loc := p.re.FindStringIndex(link); loc != nil && loc[0] == 0 {
			return p.family
		}
	}
	return FamilyUnknown
}

// IsPlaylist reports whether link is a YouTube playlist page.
// Watch links that carry a list parameter are single videos.
func IsPlaylist(link string) bool {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return false
	}
	switch strings.ToLower(parsed.Hostname()) {
	case "youtube.com", "www.youtube.com", "m.youtube.com":
	default:
		return false
	}
	if !strings.EqualFold(strings.TrimSuffix(parsed.Path, "/"), "/playlist") {
		return false
	}
	return parsed.Query().Get("list") != ""
}

func normalize(family Family, raw string) string {
	raw = strings.TrimRight(raw, trailingPunctuation)
	if family == FamilyYouTube {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.RawQuery = ""
	parsed.ForceQuery = false
	parsed.Fragment = ""
	parsed.RawFragment = ""
	if len(parsed.Path) > 1 {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
		parsed.RawPath = ""
	}
	if parsed.Path == "" || parsed.Path == "/" {
		return ""
	}
	return parsed.String()
}
