// Package processor 把用户粘贴的原始文本拆成"平台标题"和"用户备注"：
// 摘出链接、剥掉分享套话、去掉与标题重复的部分。
package processor

import (
	"regexp"
	"strings"
	"unicode"
)

// Metadata 一次用户提交的解析上下文
//
// 每次提交构造一份，处理器和分类器各消费一次，不落库，
// 落库的是拆分后的字段。
type Metadata struct {
	// Content 找到链接时是链接本身，否则是原文
	Content     string
	Title       string
	Source      string
	Platform    string
	OriginalURL string
	IsLink      bool
}

// Result 拆分结果；备注为空是正常情况，不是错误
type Result struct {
	// Title 平台提取的标题
	Title string
	// Content 用户自己的备注，可为空
	Content string
	IsLink  bool
}

var (
	urlRegex = regexp.MustCompile(`https?://[^\s<>"'，。；！？]+`)

	// 各分享 App 注入的套话
	shareNoiseRegexes = []*regexp.Regexp{
		// 小红书分享格式：数字串 + 口令 + 提示语
		regexp.MustCompile(`\d+\s*【?.{0,40}】?\s*😆?\s*[A-Za-z0-9]*\s*😆?\s*复制本条信息[^\n]*`),
		regexp.MustCompile(`复制(本条信息|此链接|口令)[^\s\n，。]*[，。]?`),
		regexp.MustCompile(`打开【?(小红书|抖音|哔哩哔哩|bilibili)】?\s*(App|app)?[^\s\n，。]*`),
		regexp.MustCompile(`长按复制[^\s\n，。]*`),
		regexp.MustCompile(`来自[@＠]\S+\s*(的分享)?`),
		regexp.MustCompile(`分享自\s*\S+`),
		regexp.MustCompile(`【分享】`),
		regexp.MustCompile(`(?i)check out this (link|post|video)[:：]?`),
		// 结尾的连串话题标签
		regexp.MustCompile(`(?:\s*#\S+)+\s*$`),
	}

	// 标题本身已包含全部语义的平台：备注强制置空
	titleOnlyPlatforms = map[string]bool{
		"xiaohongshu": true,
		"douyin":      true,
	}

	normalizeDropRegex = regexp.MustCompile(`\s+`)
)

// ExtractURL 从文本中找第一个 URL，没有返回空串
func ExtractURL(text string) string {
	return urlRegex.FindString(text)
}

// Process 拆分标题和备注
//
// 从不失败：拆不出备注就返回空备注。
func Process(rawText string, meta Metadata) Result {
	result := Result{
		Title:  strings.TrimSpace(meta.Title),
		IsLink: meta.IsLink,
	}

	note := rawText
	// 去掉链接本身
	note = urlRegex.ReplaceAllString(note, "")
	// 去掉分享套话
	note = StripShareNoise(note)

	// 标题即全文的平台直接不要备注
	if titleOnlyPlatforms[meta.Platform] {
		result.Content = ""
		return result
	}

	// 备注和标题重复时只留标题
	if result.Title != "" && IsDuplicate(note, result.Title) {
		result.Content = ""
		return result
	}

	result.Content = strings.TrimSpace(note)
	return result
}

// StripShareNoise 剥掉分享 App 注入的套话
func StripShareNoise(text string) string {
	for _, re := range shareNoiseRegexes {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(normalizeDropRegex.ReplaceAllString(text, " "))
}

// IsDuplicate 判断备注和标题是否为同一段文字
//
// 两边都归一化（小写、去空白和标点）后做相等或包含判断，
// 避免同一句话同时存成标题和备注。
func IsDuplicate(note, title string) bool {
	n := normalizeForCompare(note)
	t := normalizeForCompare(title)
	if n == "" || t == "" {
		return n == "" // 空备注视作重复，纯空串不该存
	}
	return n == t || strings.Contains(n, t) || strings.Contains(t, n)
}

// normalizeForCompare 比较用归一化：小写、去空白、去标点
func normalizeForCompare(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
