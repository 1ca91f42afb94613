package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// SameSiteLinks returns the absolute, de-duplicated links of rawHTML that
// point at the same host as pageURL. Fragments and the page itself are dropped.
func SameSiteLinks(pageURL, rawHTML string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, eris.Wrapf(err, "parse base url %s", pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, eris.Wrap(err, "parse HTML")
	}

	seen := map[string]bool{normalize(base): true}
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !strings.EqualFold(abs.Hostname(), base.Hostname()) {
			return
		}

		key := normalize(abs)
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, key)
	})
	return links, nil
}

func normalize(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" {
		c.Path = "/"
	}
	return strings.TrimSuffix(c.String(), "/")
}
