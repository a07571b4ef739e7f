// Package markdown renders HTML documents as Markdown.
package markdown

import (
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

type Options struct {
	// Domain turns relative links and image sources into absolute URLs, e.g.
	// "https://example.com". Empty keeps them relative.
	Domain string `mapstructure:"domain" yaml:"domain"`
	// BulletListMarker is one of "-", "+" or "*" (default: "-").
	BulletListMarker string `mapstructure:"bullet_list_marker" yaml:"bullet_list_marker" validate:"omitempty,oneof=- + *"`
}

// Converter renders HTML with ATX headings and fenced code blocks. It is
// built once and safe for concurrent use.
type Converter struct {
	conv   *converter.Converter
	domain string
}

func NewConverter(opts Options) *Converter {
	marker := opts.BulletListMarker
	if marker == "" {
		marker = "-"
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
				commonmark.WithCodeBlockFence("```"),
				commonmark.WithBulletListMarker(marker),
			),
		),
	)

	return &Converter{conv: conv, domain: opts.Domain}
}

// Render converts an HTML document into Markdown.
func (c *Converter) Render(source string) (string, error) {
	var opts []converter.ConvertOptionFunc
	if c.domain != "" {
		opts = append(opts, converter.WithDomain(c.domain))
	}

	md, err := c.conv.ConvertString(source, opts...)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return md, nil
}
