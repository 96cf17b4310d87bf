package enrich

import (
	"net/url"
	"sort"
	"strings"
)

// tldToCountry maps registrable-domain suffixes to ISO country codes.
// Generic TLDs resolve to an empty code on purpose.
var tldToCountry = map[string]string{
	".fr": "FR", ".de": "DE", ".es": "ES", ".it": "IT", ".be": "BE", ".dk": "DK",
	".co.uk": "GB", ".uk": "GB", ".com": "", ".org": "", ".net": "",
}

// domainCountryOverride wins over any TLD inference.
var domainCountryOverride = map[string]string{
	"lemonde.fr":  "FR",
	"lesechos.fr": "FR",
	"bbc.co.uk":   "GB",
	"bbc.com":     "GB",
}

// Publisher resolves publisher domain and country from an article URL.
// Both are pure functions of the URL and always safe to overwrite.
func Publisher(link string) (domain, country string) {
	dom := hostOf(link)
	if dom == "" {
		return "", ""
	}
	if cc, ok := domainCountryOverride[dom]; ok {
		return dom, cc
	}

	// Longest suffix wins so .co.uk beats .uk.
	suffixes := make([]string, 0, len(tldToCountry))
	for tld := range tldToCountry {
		suffixes = append(suffixes, tld)
	}
	sort.Slice(suffixes, func(i, j int) bool { return len(suffixes[i]) > len(suffixes[j]) })

	for _, tld := range suffixes {
		if strings.HasSuffix(dom, tld) {
			return dom, tldToCountry[tld]
		}
	}
	return dom, ""
}

// hostOf lowercases the URL host and strips a leading www label.
func hostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
