package title

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/zapin/metadata-service/internal/cache"
	"github.com/zapin/metadata-service/internal/fetcher"
	"github.com/zapin/metadata-service/internal/htmlutil"
)

var (
	// msg_title 两种引号风格都有：var msg_title = 'xxx' / "xxx"
	wechatMsgTitleRegex = []*regexp.Regexp{
		regexp.MustCompile(`var\s+msg_title\s*=\s*'([^']+)'`),
		regexp.MustCompile(`var\s+msg_title\s*=\s*"([^"]+)"`),
	}
	wechatAuthorVarRegex = []*regexp.Regexp{
		regexp.MustCompile(`var\s+nickname\s*=\s*"([^"]+)"`),
		regexp.MustCompile(`var\s+nickname\s*=\s*'([^']+)'`),
		regexp.MustCompile(`var\s+msg_author\s*=\s*"([^"]+)"`),
		regexp.MustCompile(`var\s+msg_author\s*=\s*'([^']+)'`),
	}
	wechatArticleIDRegex = regexp.MustCompile(`^/s/([A-Za-z0-9_-]+)`)
)

// WeChatHandler 微信公众号文章处理器
type WeChatHandler struct {
	env *Env
}

// NewWeChatHandler 创建微信处理器
func NewWeChatHandler(env *Env) *WeChatHandler {
	return &WeChatHandler{env: env}
}

func (h *WeChatHandler) Name() string { return "wechat" }

func (h *WeChatHandler) CanHandle(u *url.URL) bool {
	return u != nil && strings.Contains(u.Hostname(), "mp.weixin.qq.com")
}

func (h *WeChatHandler) FetchTitle(ctx context.Context, rawURL string) Result {
	key := cache.Key(h.Name(), wechatArticleID(rawURL), rawURL)

	return h.env.run(ctx, key, []strategy{
		{name: "direct", run: func(ctx context.Context) (candidate, error) {
			res := h.env.Fetcher.Fetch(ctx, rawURL, fetcher.Options{UserAgent: mobileUA})
			if res.Error != nil {
				return candidate{}, res.Error
			}
			title := ParseWeChatTitle(res.HTML)
			if title == "" {
				return candidate{}, errors.New("页面中没有标题")
			}
			return candidate{title: title, author: ParseWeChatAuthor(res.HTML)}, nil
		}},
	})
}

// wechatArticleID 从 /s/<id> 路径提取文章 ID，失败返回空串
func wechatArticleID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if m := wechatArticleIDRegex.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	return ""
}

// ParseWeChatTitle 微信文章标题提取梯队：
// og:title → 内联 msg_title 变量 → <title> → 第一个 <h1>
func ParseWeChatTitle(html string) string {
	if t := htmlutil.MetaProperty(html, "og:title"); t != "" {
		return t
	}
	for _, re := range wechatMsgTitleRegex {
		if m := re.FindStringSubmatch(html); m != nil {
			return htmlutil.CollapseWhitespace(htmlutil.DecodeEntities(m[1]))
		}
	}
	if t := htmlutil.TitleTag(html); t != "" {
		return t
	}
	return htmlutil.FirstH1(html)
}

// ParseWeChatAuthor 公众号名称提取（尽力而为）：
// 内联 nickname/msg_author 变量 → #js_name / 昵称节点的 DOM 文本
func ParseWeChatAuthor(html string) string {
	for _, re := range wechatAuthorVarRegex {
		if m := re.FindStringSubmatch(html); m != nil {
			return htmlutil.CollapseWhitespace(htmlutil.DecodeEntities(m[1]))
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	for _, sel := range []string{"#js_name", ".rich_media_meta_nickname", ".profile_nickname"} {
		if text := htmlutil.CollapseWhitespace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}
