// Package extractor извлекает статью из финального HTML страницы детерминированными
// эвристиками: заголовок, текст с минимальной разметкой и изображения.
package extractor

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Untitled используется, когда ни одна из стратегий не нашла заголовок.
const Untitled = "Untitled"

const (
	defaultMaxImages    = 10
	defaultMinImageSize = 100
	minFragmentLength   = 20
)

const noiseSelector = "script, style, nav, header, footer, aside, iframe"

const fragmentSelector = "p, h1, h2, h3, h4, h5, h6, li, td, th, div"

// Кандидаты на область основного контента, по убыванию приоритета.
var regionSelectors = []string{
	"main",
	"article",
	`[role="main"]`,
	"#content",
	"#main-content",
	".content",
	".main-content",
	".article-body",
}

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(` {2,}`)
)

// Content содержит результат извлечения. Images никогда не nil.
type Content struct {
	Title  string
	Body   string
	Images []string
}

type Extractor struct {
	maxImages    int
	minImageSize int
}

func New() *Extractor {
	return &Extractor{
		maxImages:    defaultMaxImages,
		minImageSize: defaultMinImageSize,
	}
}

// Extract никогда не возвращает ошибку: при сбое разбора поля остаются пустыми.
func (e *Extractor) Extract(html, pageURL string) (content Content) {
	content.Images = []string{}
	defer func() {
		if r := recover(); r != nil {
			content = Content{Images: []string{}}
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return content
	}

	// заголовок ищем до удаления шума: h1 часто лежит в header
	content.Title = extractTitle(doc)

	doc.Find(noiseSelector).Remove()

	content.Body = extractBody(doc)
	content.Images = e.extractImages(doc, pageURL)

	return content
}

func extractTitle(doc *goquery.Document) string {
	strategies := []func() string{
		func() string { return normalizeText(doc.Find("h1").First().Text()) },
		func() string { return normalizeText(doc.Find("title").First().Text()) },
		func() string { return attr(doc.Find(`meta[property="og:title"]`).First(), "content") },
		func() string { return attr(doc.Find(`meta[name="title"]`).First(), "content") },
	}

	for _, strategy := range strategies {
		if title := strategy(); title != "" {
			return title
		}
	}

	return Untitled
}

func extractBody(doc *goquery.Document) string {
	region := findRegion(doc)
	if region.Length() == 0 {
		return ""
	}

	var parts []string
	region.Find(fragmentSelector).Each(func(_ int, s *goquery.Selection) {
		text := normalizeText(s.Text())
		if utf8.RuneCountInString(text) <= minFragmentLength {
			return
		}

		switch goquery.NodeName(s) {
		case "h1", "h2", "h3":
			text = "\n\n**" + text + "**\n"
		case "li":
			text = "- " + text
		}

		parts = append(parts, text)
	})

	return CollapseWhitespace(strings.Join(parts, "\n\n"))
}

func findRegion(doc *goquery.Document) *goquery.Selection {
	for _, sel := range regionSelectors {
		if region := doc.Find(sel).First(); region.Length() > 0 {
			return region
		}
	}
	return doc.Find("body").First()
}

func (e *Extractor) extractImages(doc *goquery.Document, pageURL string) []string {
	images := []string{}
	base, _ := url.Parse(pageURL)

	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := attr(img, "src")
		if src == "" {
			src = attr(img, "data-src")
		}
		if src == "" {
			return true
		}

		if e.tooSmall(img) {
			return true
		}

		abs, ok := absoluteURL(src, base)
		if !ok {
			return true
		}

		images = append(images, abs)
		return len(images) < e.maxImages
	})

	return images
}

// tooSmall срабатывает, только если оба размера заданы целыми числами.
func (e *Extractor) tooSmall(img *goquery.Selection) bool {
	width, okW := parseDimension(attr(img, "width"))
	height, okH := parseDimension(attr(img, "height"))
	if !okW || !okH {
		return false
	}
	return width < e.minImageSize || height < e.minImageSize
}

func parseDimension(v string) (int, bool) {
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func absoluteURL(src string, base *url.URL) (string, bool) {
	switch {
	case strings.HasPrefix(src, "//"):
		src = "https:" + src
	case strings.HasPrefix(src, "/"):
		if base == nil || base.Scheme == "" || base.Host == "" {
			return "", false
		}
		src = base.Scheme + "://" + base.Host + src
	}

	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src, true
	}
	return "", false
}

// CollapseWhitespace сжимает три и более переводов строки до двух,
// повторные пробелы до одного и обрезает края. Идемпотентна.
func CollapseWhitespace(s string) string {
	s = multiNewline.ReplaceAllString(s, "\n\n")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}
