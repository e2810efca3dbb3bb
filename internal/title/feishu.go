package title

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/zapin/metadata-service/internal/cache"
	"github.com/zapin/metadata-service/internal/fetcher"
	"github.com/zapin/metadata-service/internal/htmlutil"
)

// 文档作者的几种标注方式
var feishuAuthorRegexes = []*regexp.Regexp{
	regexp.MustCompile(`创建者[:：]\s*(\S+)`),
	regexp.MustCompile(`文档所有者[:：]\s*(\S+)`),
	regexp.MustCompile(`作者[:：]\s*(\S+)`),
	regexp.MustCompile(`\bby\s+(\S+)`),
}

var feishuTitleSuffixes = []string{
	" - Feishu Docs",
	" - 飞书云文档",
	" - Lark Docs",
}

// FeishuHandler 飞书文档处理器
//
// 飞书页面是纯前端渲染，直接抓 HTML 基本拿不到正文，
// 所以 Reader 代理是首选策略而不是兜底。
type FeishuHandler struct {
	env *Env
}

// NewFeishuHandler 创建飞书处理器
func NewFeishuHandler(env *Env) *FeishuHandler {
	return &FeishuHandler{env: env}
}

func (h *FeishuHandler) Name() string { return "feishu" }

func (h *FeishuHandler) CanHandle(u *url.URL) bool {
	if u == nil {
		return false
	}
	host := u.Hostname()
	return strings.Contains(host, "feishu.cn") || strings.Contains(host, "larksuite.com")
}

func (h *FeishuHandler) FetchTitle(ctx context.Context, rawURL string) Result {
	key := cache.Key(h.Name(), "", rawURL)

	return h.env.run(ctx, key, []strategy{
		{name: "reader", run: func(ctx context.Context) (candidate, error) {
			if h.env.Reader == nil {
				return candidate{}, errors.New("reader 未配置")
			}
			res := h.env.Reader.Fetch(ctx, rawURL)
			if res.Error != nil {
				return candidate{}, res.Error
			}
			return parseFeishuReader(res.HTML)
		}},
		{name: "direct", run: func(ctx context.Context) (candidate, error) {
			res := h.env.Fetcher.Fetch(ctx, rawURL, fetcher.Options{})
			if res.Error != nil {
				return candidate{}, res.Error
			}
			t := htmlutil.ExtractGenericTitle(res.HTML)
			if t == "" {
				return candidate{}, errors.New("页面中没有标题")
			}
			return candidate{title: cleanFeishuTitle(t)}, nil
		}},
	})
}

// parseFeishuReader 从 Reader 文本提取文档标题和作者
func parseFeishuReader(text string) (candidate, error) {
	var title string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimPrefix(line, "Title:")
		title = cleanFeishuTitle(strings.TrimSpace(line))
		break
	}
	if title == "" {
		return candidate{}, errors.New("reader 输出为空")
	}

	var author string
	for _, re := range feishuAuthorRegexes {
		if m := re.FindStringSubmatch(text); m != nil {
			author = m[1]
			break
		}
	}
	return candidate{title: title, author: author}, nil
}

// cleanFeishuTitle 去掉站点后缀
func cleanFeishuTitle(t string) string {
	for _, suffix := range feishuTitleSuffixes {
		t = strings.TrimSuffix(t, suffix)
	}
	return strings.TrimSpace(t)
}
