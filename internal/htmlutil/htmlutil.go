// Package htmlutil 提供 HTML 文本工具：实体解码、通用标题提取、
// 标签剥离和嵌入式 JSON 片段定位。所有平台处理器共用。
package htmlutil

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var (
	// og:title 两种属性顺序都要兼容
	ogTitleRegex = regexp.MustCompile(`(?is)<meta[^>]+property=["']og:title["'][^>]+content=["']([^"']*)["']|<meta[^>]+content=["']([^"']*)["'][^>]+property=["']og:title["']`)

	titleTagRegex = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	h1Regex       = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	tagRegex      = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRegex    = regexp.MustCompile(`\s+`)

	strictPolicy = bluemonday.StrictPolicy()
)

// DecodeEntities 解码 HTML 实体（命名实体和数字实体）
func DecodeEntities(s string) string {
	return html.UnescapeString(s)
}

// CollapseWhitespace 折叠连续空白为单个空格并去首尾空白
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

// StripTags 移除所有 HTML 标签，返回折叠空白后的纯文本
func StripTags(s string) string {
	return CollapseWhitespace(DecodeEntities(strictPolicy.Sanitize(s)))
}

// MetaProperty 提取 <meta property="..."> 的 content 值，未找到返回空串
func MetaProperty(html, property string) string {
	// 先用 goquery，失败时退回正则（很多移动端页面 HTML 不规范）
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		if content, ok := doc.Find(`meta[property="` + property + `"]`).Attr("content"); ok {
			return CollapseWhitespace(DecodeEntities(content))
		}
	}

	if property == "og:title" {
		if m := ogTitleRegex.FindStringSubmatch(html); m != nil {
			if m[1] != "" {
				return CollapseWhitespace(DecodeEntities(m[1]))
			}
			return CollapseWhitespace(DecodeEntities(m[2]))
		}
	}
	return ""
}

// TitleTag 提取 <title> 标签内容
func TitleTag(html string) string {
	if m := titleTagRegex.FindStringSubmatch(html); m != nil {
		return CollapseWhitespace(DecodeEntities(tagRegex.ReplaceAllString(m[1], "")))
	}
	return ""
}

// FirstH1 提取第一个 <h1> 的文本
func FirstH1(html string) string {
	if m := h1Regex.FindStringSubmatch(html); m != nil {
		return CollapseWhitespace(DecodeEntities(tagRegex.ReplaceAllString(m[1], "")))
	}
	return ""
}

// ExtractGenericTitle 通用标题提取：og:title → <title> → 第一个 <h1>
func ExtractGenericTitle(html string) string {
	if t := MetaProperty(html, "og:title"); t != "" {
		return t
	}
	if t := TitleTag(html); t != "" {
		return t
	}
	return FirstH1(html)
}

// ExtractBalancedJSON 从 s 中 marker 之后的第一个 '{' 开始，
// 用括号配对方式截取完整的 JSON 对象。
//
// 页面内嵌的 window.__INITIAL_STATE__ 这类 JSON 里有嵌套对象和
// 含转义引号的字符串，简单的正则截断会取到残缺 JSON，
// 必须逐字符跟踪字符串/转义状态来数括号。
func ExtractBalancedJSON(s, marker string) (string, bool) {
	idx := strings.Index(s, marker)
	if idx < 0 {
		return "", false
	}
	start := strings.IndexByte(s[idx+len(marker):], '{')
	if start < 0 {
		return "", false
	}
	start += idx + len(marker)

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
