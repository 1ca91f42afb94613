package scraper

import (
	"strings"

	"golang.org/x/net/html"
)

// extractOpenGraph fills title and description from og: meta tags
func extractOpenGraph(doc *html.Node, page *Page) {
	findMetaTags(doc, func(key, content string) {
		switch key {
		case "og:title":
			if page.Title == "" {
				page.Title = content
			}
		case "og:description":
			if page.Description == "" {
				page.Description = content
			}
		}
	})
}

func extractTitle(doc *html.Node, page *Page) {
	if page.Title != "" {
		return
	}

	var findTitle func(*html.Node) string
	findTitle = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				return strings.TrimSpace(n.FirstChild.Data)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if title := findTitle(c); title != "" {
				return title
			}
		}
		return ""
	}

	page.Title = findTitle(doc)
}

func extractDescription(doc *html.Node, page *Page) {
	if page.Description != "" {
		return
	}
	findMetaTags(doc, func(key, content string) {
		if page.Description == "" && (key == "description" || key == "twitter:description") {
			page.Description = content
		}
	})
}

func extractLanguage(doc *html.Node, page *Page) {
	var findLang func(*html.Node)
	findLang = func(n *html.Node) {
		if page.Language != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "html" {
			for _, attr := range n.Attr {
				if attr.Key == "lang" && attr.Val != "" {
					page.Language = attr.Val
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findLang(c)
		}
	}
	findLang(doc)
}

// findMetaTags calls fn with the name or property and the content of every
// meta tag that has both
func findMetaTags(n *html.Node, fn func(key, content string)) {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var key, content string
		for _, attr := range n.Attr {
			switch attr.Key {
			case "name", "property":
				key = strings.ToLower(attr.Val)
			case "content":
				content = strings.TrimSpace(attr.Val)
			}
		}
		if key != "" && content != "" {
			fn(key, content)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		findMetaTags(c, fn)
	}
}
