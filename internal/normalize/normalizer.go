package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	"spaceradar/internal/model"
)

// Rejection explains why a raw document was dropped. Rejections are
// input-quality outcomes, not errors: they never abort a batch.
type Rejection string

const (
	RejectNone        Rejection = ""
	RejectEmptyText   Rejection = "empty_text"
	RejectShortTitle  Rejection = "short_title"
	RejectShortText   Rejection = "short_text"
	RejectBoilerplate Rejection = "boilerplate"
	RejectNoTimestamp Rejection = "no_timestamp"
)

// trackingParams is the explicit denylist of query parameters stripped
// during URL canonicalization.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
}

// sourceNames maps canonical hostnames to display names. Unknown hosts
// fall back to the raw source string, then to the hostname itself.
var sourceNames = map[string]string{
	"nasa.gov":           "NASA",
	"www.nasa.gov":       "NASA",
	"blogs.nasa.gov":     "NASA Blogs",
	"jpl.nasa.gov":       "JPL",
	"esa.int":            "ESA",
	"www.esa.int":        "ESA",
	"spacenews.com":      "SpaceNews",
	"spaceflightnow.com": "SpaceflightNow",
	"arxiv.org":          "arXiv",
}

var (
	surroundingQuotesRE = regexp.MustCompile(`^['"]+|['"]+$`)
	outletSuffixRE      = regexp.MustCompile(`(?i)\s*[-–—:]\s*(NASA|JPL|ESA|SpaceNews|Spaceflight Now|Planetary Society|Nature|arXiv)\b$`)
	whitespaceRE        = regexp.MustCompile(`\s+`)
	controlCharsRE      = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F]+")
	htmlCommentRE       = regexp.MustCompile(`(?s)<!--.*?-->`)
	imgTagRE            = regexp.MustCompile(`(?i)<img[^>]*>`)
	htmlTagHintRE       = regexp.MustCompile(`<[a-zA-Z/!]`)
	sentenceSplitRE     = regexp.MustCompile(`[.!?]+`)
)

// cutoffPhrases mark trailing boilerplate; a match only truncates the
// text when it occurs inside the tail window, so legitimate body text
// containing one of these words earlier is left alone.
var cutoffPhrases = []string{
	"credits:",
	"credit:",
	"contact:",
	"subscribe",
	"sign in to",
	"all rights reserved",
	"read more",
	"tl;dr",
	"follow us on",
	"socials",
}

// boilerplateMarkers anywhere in the sanitized text reject the document.
var boilerplateMarkers = []string{
	"share details",
	"-end-",
	"click here",
	"continue reading",
	"read more",
	"subscribe",
	"follow us",
}

// Normalizer turns raw documents into admitted Articles or rejections.
type Normalizer struct {
	cfg model.NormalizeConfig
	log zerolog.Logger
}

// New creates a Normalizer with the given quality gates.
func New(cfg model.NormalizeConfig, log zerolog.Logger) *Normalizer {
	return &Normalizer{cfg: cfg, log: log}
}

// BatchResult summarizes a NormalizeBatch call.
type BatchResult struct {
	Articles []model.Article
	Rejected map[Rejection]int
}

// NormalizeBatch normalizes a batch of raw documents. Rejected documents
// are counted per reason and dropped; one bad document never blocks the
// rest of the batch.
func (n *Normalizer) NormalizeBatch(docs []model.RawDocument) BatchResult {
	res := BatchResult{Rejected: make(map[Rejection]int)}

	for _, doc := range docs {
		article, reason := n.Normalize(doc)
		if reason != RejectNone {
			res.Rejected[reason]++
			n.log.Debug().
				Str("reason", string(reason)).
				Str("url", doc.ArticleURL).
				Msg("document rejected")
			continue
		}
		res.Articles = append(res.Articles, article)
	}

	return res
}

// Normalize produces a cleaned Article or a rejection reason. All quality
// gates must pass; no error is ever raised for bad input.
func (n *Normalizer) Normalize(doc model.RawDocument) (model.Article, Rejection) {
	if strings.TrimSpace(doc.Text) == "" {
		return model.Article{}, RejectEmptyText
	}

	urlC := CanonicalURL(doc.ArticleURL)
	titleC := CleanTitle(doc.Title)
	textS := n.SanitizeText(doc.Text)

	if len(titleC) < n.cfg.MinTitleLen {
		return model.Article{}, RejectShortTitle
	}
	if len(textS) < n.cfg.MinTextLen {
		return model.Article{}, RejectShortText
	}
	if n.IsBoilerplate(textS) {
		return model.Article{}, RejectBoilerplate
	}

	ts, ok := ParseTimestamp(doc.Timestamp)
	if !ok {
		ts, ok = ParseTimestamp(doc.FetchedAt)
	}
	if !ok {
		return model.Article{}, RejectNoTimestamp
	}

	return model.Article{
		ID:        MakeID(urlC, titleC),
		Source:    CanonicalSource(urlC, doc.Source),
		URL:       urlC,
		Title:     titleC,
		Timestamp: ts,
		Text:      textS,
		TextLen:   len(textS),
	}, RejectNone
}

// MakeID derives the content address for an article: a deterministic
// hash of the canonical URL and title. This is the dedup contract - the
// same logical document always maps to the same id, regardless of which
// feed delivered it.
func MakeID(canonicalURL, canonicalTitle string) string {
	sum := md5.Sum([]byte(canonicalURL + canonicalTitle))
	return hex.EncodeToString(sum[:])
}

// CanonicalURL lower-cases the host, strips tracking query parameters
// and the fragment. A URL that fails to parse is returned unchanged;
// a malformed URL never fails the pipeline. Canonicalization is
// idempotent.
func CanonicalURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawQuery = stripTrackingParams(parsed.RawQuery)

	return parsed.String()
}

// stripTrackingParams filters the denylisted keys while preserving the
// original parameter order, so canonicalization stays deterministic.
func stripTrackingParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		key := pair
		if idx := strings.Index(pair, "="); idx >= 0 {
			key = pair[:idx]
		}
		if _, drop := trackingParams[strings.ToLower(key)]; drop {
			continue
		}
		kept = append(kept, pair)
	}

	return strings.Join(kept, "&")
}

// CleanTitle trims surrounding quotes, strips a trailing outlet-name
// suffix and collapses whitespace.
func CleanTitle(title string) string {
	s := strings.TrimSpace(title)
	if s == "" {
		return ""
	}

	s = surroundingQuotesRE.ReplaceAllString(s, "")
	s = outletSuffixRE.ReplaceAllString(s, "")
	s = whitespaceRE.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// isoUTC renders timestamps as ISO-8601 with an explicit +00:00 offset.
const isoUTC = "2006-01-02T15:04:05-07:00"

// ParseTimestamp best-effort parses a raw timestamp. Inputs without a
// timezone are assumed UTC; everything is normalized to UTC ISO-8601.
func ParseTimestamp(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return "", false
	}

	return t.UTC().Format(isoUTC), true
}

// SanitizeText strips control characters, HTML comments and image tags,
// flattens markup to plain text, truncates trailing boilerplate found in
// the tail window, collapses whitespace and hard-caps the length.
func (n *Normalizer) SanitizeText(text string) string {
	if text == "" {
		return ""
	}

	text = controlCharsRE.ReplaceAllString(text, " ")
	text = htmlCommentRE.ReplaceAllString(text, "")
	text = imgTagRE.ReplaceAllString(text, "")

	if htmlTagHintRE.MatchString(text) {
		text = ExtractText(text)
	}

	lower := strings.ToLower(text)
	for _, phrase := range cutoffPhrases {
		idx := strings.LastIndex(lower, phrase)
		if idx != -1 && idx > len(text)-n.cfg.CutoffWindow {
			text = text[:idx]
			break
		}
	}

	text = strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))

	if n.cfg.MaxTextLen > 0 && len(text) > n.cfg.MaxTextLen {
		text = text[:n.cfg.MaxTextLen]
	}

	return text
}

// IsBoilerplate classifies sanitized text as templated/navigation
// content: too few qualifying sentences, one sentence dominating the
// text, or a known marker phrase anywhere in it.
func (n *Normalizer) IsBoilerplate(text string) bool {
	if len(strings.TrimSpace(text)) < 100 {
		return true
	}

	var sentences []string
	for _, s := range sentenceSplitRE.Split(text, -1) {
		s = strings.TrimSpace(s)
		if len(s) > 10 {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) < 3 {
		return true
	}

	counts := make(map[string]int, len(sentences))
	most := 0
	for _, s := range sentences {
		counts[s]++
		if counts[s] > most {
			most = counts[s]
		}
	}
	if float64(most)/float64(len(sentences)) > 0.6 {
		return true
	}

	lower := strings.ToLower(text)
	for _, marker := range boilerplateMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return false
}

// CanonicalSource resolves the display name for a source: fixed hostname
// table first, then the raw source string, then the hostname.
func CanonicalSource(canonicalURL, rawSource string) string {
	host := ""
	if parsed, err := url.Parse(canonicalURL); err == nil {
		host = strings.ToLower(parsed.Host)
	}

	if name, ok := sourceNames[host]; ok {
		return name
	}
	if s := strings.TrimSpace(rawSource); s != "" {
		return s
	}
	return host
}
