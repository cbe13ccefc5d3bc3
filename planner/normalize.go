package planner

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcPolicy   = bluemonday.UGCPolicy()
	stripPolicy = bluemonday.StrictPolicy()

	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)

	htmlTag = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)
)

// Normalize turns planner-returned HTML into markdown text: sanitize first,
// then convert. If conversion fails or produces empty output, falls back to
// the tag-stripped input.
func Normalize(html string) string {
	return normalizeFrom(html, "")
}

func normalizeFrom(html, domain string) string {
	if html == "" {
		return ""
	}
	clean := ugcPolicy.Sanitize(html)
	var md string
	var err error
	if domain != "" {
		md, err = mdConverter.ConvertString(clean, converter.WithDomain(domain))
	} else {
		md, err = mdConverter.ConvertString(clean)
	}
	if err != nil || strings.TrimSpace(md) == "" {
		return strings.TrimSpace(stripPolicy.Sanitize(html))
	}
	return strings.TrimSpace(md)
}

// looksLikeHTML reports whether the text contains markup worth normalizing.
func looksLikeHTML(s string) bool {
	return htmlTag.MatchString(s)
}
