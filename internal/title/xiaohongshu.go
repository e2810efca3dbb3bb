package title

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/zapin/metadata-service/internal/cache"
	"github.com/zapin/metadata-service/internal/fetcher"
	"github.com/zapin/metadata-service/internal/htmlutil"
)

var (
	xhsNoteIDRegex = regexp.MustCompile(`/(?:explore|discovery/item)/([0-9a-fA-F]+)`)
	// Reader 输出的标题行：Title: xxx - 小红书
	xhsReaderTitleRegex  = regexp.MustCompile(`(?m)^Title:\s*(.+)$`)
	xhsReaderByRegex     = regexp.MustCompile(`(?m)\bby\s+(\S+)`)
	xhsReaderCreateRegex = regexp.MustCompile(`(?m)^(\S+)\.create`)
)

// XiaohongshuHandler 小红书笔记处理器
type XiaohongshuHandler struct {
	env *Env
}

// NewXiaohongshuHandler 创建小红书处理器
func NewXiaohongshuHandler(env *Env) *XiaohongshuHandler {
	return &XiaohongshuHandler{env: env}
}

func (h *XiaohongshuHandler) Name() string { return "xiaohongshu" }

func (h *XiaohongshuHandler) CanHandle(u *url.URL) bool {
	if u == nil {
		return false
	}
	host := u.Hostname()
	return strings.Contains(host, "xiaohongshu.com") || strings.Contains(host, "xhslink.com")
}

func (h *XiaohongshuHandler) FetchTitle(ctx context.Context, rawURL string) Result {
	// 分享短链先还原成笔记页，才有内容 ID 可做缓存键
	if u, err := url.Parse(rawURL); err == nil && strings.Contains(u.Hostname(), "xhslink.com") {
		if resolved, err := h.env.Fetcher.ResolveRedirect(ctx, rawURL); err == nil {
			rawURL = resolved
		}
	}

	key := cache.Key(h.Name(), xhsNoteID(rawURL), rawURL)
	target := rawURL

	return h.env.run(ctx, key, []strategy{
		{name: "direct", run: func(ctx context.Context) (candidate, error) {
			res := h.env.Fetcher.Fetch(ctx, target, fetcher.Options{UserAgent: iosSafariUA})
			if res.Error != nil {
				return candidate{}, res.Error
			}
			return parseXiaohongshuPage(res.HTML)
		}},
		{name: "reader", run: func(ctx context.Context) (candidate, error) {
			if h.env.Reader == nil {
				return candidate{}, errors.New("reader 未配置")
			}
			res := h.env.Reader.Fetch(ctx, target)
			if res.Error != nil {
				return candidate{}, res.Error
			}
			return parseXiaohongshuReader(res.HTML)
		}},
	})
}

// xhsNoteID 从笔记页路径提取笔记 ID
func xhsNoteID(rawURL string) string {
	if m := xhsNoteIDRegex.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// parseXiaohongshuPage 页面解析：先取内嵌 __INITIAL_STATE__，
// 失败退到 og 标签，再退到 <title>
func parseXiaohongshuPage(html string) (candidate, error) {
	if title, author, ok := ParseXiaohongshuState(html); ok {
		return candidate{title: title, author: author}, nil
	}

	ogTitle := htmlutil.MetaProperty(html, "og:title")
	ogDesc := StripBoilerplate(htmlutil.MetaProperty(html, "og:description"))
	if ogTitle != "" && ValidTitle(ogTitle) {
		return candidate{title: ogTitle}, nil
	}
	if ogDesc != "" {
		return candidate{title: ogDesc}, nil
	}

	if t := htmlutil.TitleTag(html); t != "" {
		return candidate{title: t}, nil
	}
	return candidate{}, errors.New("页面中没有可用标题")
}

// ParseXiaohongshuState 解析内嵌的 window.__INITIAL_STATE__ JSON
//
// JSON 对象的边界用括号配对方式截取；blob 里还掺着 JS 的
// undefined 字面量，解析前先替换成 null。
func ParseXiaohongshuState(html string) (title, author string, ok bool) {
	blob, found := htmlutil.ExtractBalancedJSON(html, "window.__INITIAL_STATE__")
	if !found {
		return "", "", false
	}
	blob = strings.ReplaceAll(blob, ":undefined", ":null")

	var state map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return "", "", false
	}

	note := findNoteObject(state, 0)
	if note == nil {
		return "", "", false
	}

	if t, _ := note["title"].(string); strings.TrimSpace(t) != "" {
		title = htmlutil.CollapseWhitespace(t)
	} else if d, _ := note["desc"].(string); strings.TrimSpace(d) != "" {
		title = StripBoilerplate(d)
	}
	if title == "" {
		return "", "", false
	}

	if user, isMap := note["user"].(map[string]interface{}); isMap {
		if n, _ := user["nickname"].(string); n != "" {
			author = htmlutil.CollapseWhitespace(n)
		} else if n, _ := user["name"].(string); n != "" {
			author = htmlutil.CollapseWhitespace(n)
		}
	}
	return title, author, true
}

// findNoteObject 在状态树里找笔记对象：包含 title/desc 字段的 map。
// 不同版本页面的嵌套层级不一样，只能递归找
func findNoteObject(v interface{}, depth int) map[string]interface{} {
	if depth > 8 {
		return nil
	}
	switch val := v.(type) {
	case map[string]interface{}:
		_, hasTitle := val["title"].(string)
		_, hasDesc := val["desc"].(string)
		if hasTitle || hasDesc {
			return val
		}
		for _, child := range val {
			if note := findNoteObject(child, depth+1); note != nil {
				return note
			}
		}
	case []interface{}:
		for _, child := range val {
			if note := findNoteObject(child, depth+1); note != nil {
				return note
			}
		}
	}
	return nil
}

// parseXiaohongshuReader 解析 Reader 渲染文本：
// Title: 行优先，其次第一个非套话行；作者看 by/<handle>.create 模式
func parseXiaohongshuReader(text string) (candidate, error) {
	var title string

	if m := xhsReaderTitleRegex.FindStringSubmatch(text); m != nil {
		title = strings.TrimSpace(m[1])
		// 去掉站点后缀
		if idx := strings.Index(title, " - 小红书"); idx > 0 {
			title = title[:idx]
		}
	}

	if title == "" {
		for _, line := range strings.Split(text, "\n") {
			line = StripBoilerplate(line)
			if line != "" && ValidTitle(line) {
				title = line
				break
			}
		}
	}

	if title == "" {
		return candidate{}, errors.New("reader 输出中没有标题行")
	}

	var author string
	if m := xhsReaderByRegex.FindStringSubmatch(text); m != nil {
		author = m[1]
	} else if m := xhsReaderCreateRegex.FindStringSubmatch(text); m != nil {
		author = m[1]
	}

	return candidate{title: title, author: author}, nil
}
