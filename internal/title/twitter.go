package title

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/zapin/metadata-service/internal/cache"
	"github.com/zapin/metadata-service/internal/fetcher"
	"github.com/zapin/metadata-service/internal/htmlutil"
)

var (
	tweetStatusIDRegex = regexp.MustCompile(`/status(?:es)?/(\d+)`)
	tcoLinkRegex       = regexp.MustCompile(`https://t\.co/[A-Za-z0-9]+`)
	// Reader 渲染出的推文行：<作者> on X: "<正文>" / X
	readerTweetRegex = regexp.MustCompile(`(?m)^(.{1,100}?) on X: ["“](.+?)["”]`)
	// Nitter og:title 形如 Name (@handle)
	nitterHandleRegex = regexp.MustCompile(`^(.+?)\s*\(@[A-Za-z0-9_]+\)$`)
)

// 依次尝试的 Nitter 镜像
var nitterMirrors = []string{
	"nitter.net",
	"nitter.poast.org",
	"nitter.privacydev.net",
}

// TwitterHandler Twitter/X 推文处理器
type TwitterHandler struct {
	env *Env
}

// NewTwitterHandler 创建 Twitter 处理器
func NewTwitterHandler(env *Env) *TwitterHandler {
	return &TwitterHandler{env: env}
}

func (h *TwitterHandler) Name() string { return "twitter" }

func (h *TwitterHandler) CanHandle(u *url.URL) bool {
	if u == nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	// "x.com" 不能用子串匹配，会误伤 netflix.com 之类
	return strings.Contains(host, "twitter.com") || host == "x.com" || strings.HasSuffix(host, ".x.com")
}

func (h *TwitterHandler) FetchTitle(ctx context.Context, rawURL string) Result {
	key := cache.Key(h.Name(), tweetStatusID(rawURL), rawURL)

	return h.env.run(ctx, key, []strategy{
		{name: "oembed", run: func(ctx context.Context) (candidate, error) {
			return h.fetchOEmbed(ctx, rawURL)
		}},
		{name: "reader", run: func(ctx context.Context) (candidate, error) {
			return h.fetchReader(ctx, rawURL)
		}},
		{name: "nitter", run: func(ctx context.Context) (candidate, error) {
			return h.fetchNitter(ctx, rawURL)
		}},
		{name: "direct", run: func(ctx context.Context) (candidate, error) {
			res := h.env.Fetcher.Fetch(ctx, rawURL, fetcher.Options{UserAgent: botUA})
			if res.Error != nil {
				return candidate{}, res.Error
			}
			title := htmlutil.MetaProperty(res.HTML, "og:title")
			desc := htmlutil.MetaProperty(res.HTML, "og:description")
			if desc != "" {
				return candidate{title: desc, author: strings.TrimSuffix(title, " on X")}, nil
			}
			if title == "" {
				return candidate{}, errors.New("没有 og 标签")
			}
			return candidate{title: title}, nil
		}},
	})
}

// fetchOEmbed 官方 oEmbed 接口：返回嵌入 HTML 和作者名
func (h *TwitterHandler) fetchOEmbed(ctx context.Context, rawURL string) (candidate, error) {
	endpoint := "https://publish.twitter.com/oembed?url=" + url.QueryEscape(rawURL) + "&omit_script=1&dnt=1"
	res := h.env.Fetcher.Fetch(ctx, endpoint, fetcher.Options{UserAgent: botUA})
	if res.Error != nil {
		return candidate{}, res.Error
	}

	return tweetCandidateFromOEmbed(res.HTML, func(link string) string {
		return h.resolveLinkedTitle(ctx, link)
	})
}

// tweetCandidateFromOEmbed 把 oEmbed 响应加工成候选结果。
//
// 推文正文里只有一个短链时，正文大概率就是"转发了某个页面"，
// 解析被转发页面的标题比展示裸 t.co 链接更有信息量。
func tweetCandidateFromOEmbed(body string, resolveLink func(string) string) (candidate, error) {
	text, author, err := ParseTweetOEmbed(body)
	if err != nil {
		return candidate{}, err
	}

	if link := tcoLinkRegex.FindString(text); link != "" {
		bare := strings.TrimSpace(tcoLinkRegex.ReplaceAllString(text, ""))
		if bare == "" {
			if linked := resolveLink(link); linked != "" {
				return candidate{title: fmt.Sprintf("%s: %q", author, linked), author: author}, nil
			}
		}
		text = htmlutil.CollapseWhitespace(tcoLinkRegex.ReplaceAllString(text, ""))
	}

	if text == "" {
		return candidate{}, errors.New("oEmbed 中没有推文正文")
	}
	return candidate{title: text, author: author}, nil
}

// resolveLinkedTitle 解析推文内短链指向页面的标题，失败返回空串
func (h *TwitterHandler) resolveLinkedTitle(ctx context.Context, link string) string {
	res := h.env.Fetcher.Fetch(ctx, link, fetcher.Options{UserAgent: botUA})
	if res.Error != nil {
		return ""
	}
	return htmlutil.ExtractGenericTitle(res.HTML)
}

// fetchReader Reader 代理渲染出的文本里找推文行
func (h *TwitterHandler) fetchReader(ctx context.Context, rawURL string) (candidate, error) {
	if h.env.Reader == nil {
		return candidate{}, errors.New("reader 未配置")
	}
	res := h.env.Reader.Fetch(ctx, rawURL)
	if res.Error != nil {
		return candidate{}, res.Error
	}

	text, author, ok := ParseReaderTweet(res.HTML)
	if !ok {
		return candidate{}, errors.New("reader 输出中没有推文行")
	}
	return candidate{title: text, author: author}, nil
}

// fetchNitter 逐个尝试 Nitter 镜像，用 og 标签取推文
func (h *TwitterHandler) fetchNitter(ctx context.Context, rawURL string) (candidate, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return candidate{}, err
	}

	var lastErr error = errors.New("没有可用的 nitter 镜像")
	for _, mirror := range nitterMirrors {
		mu := *u
		mu.Host = mirror
		mu.Scheme = "https"

		res := h.env.Fetcher.Fetch(ctx, mu.String(), fetcher.Options{UserAgent: botUA})
		if res.Error != nil {
			lastErr = res.Error
			continue
		}

		desc := htmlutil.MetaProperty(res.HTML, "og:description")
		ogTitle := htmlutil.MetaProperty(res.HTML, "og:title")
		if desc == "" {
			lastErr = errors.New("镜像页面没有 og:description")
			continue
		}

		author := ogTitle
		if m := nitterHandleRegex.FindStringSubmatch(ogTitle); m != nil {
			author = strings.TrimSpace(m[1])
		}
		return candidate{title: desc, author: author}, nil
	}
	return candidate{}, lastErr
}

// ParseTweetOEmbed 解析 oEmbed JSON：剥掉嵌入 HTML 的标签后，
// 在 "—" 署名分隔符处截断得到推文正文
func ParseTweetOEmbed(body string) (text, author string, err error) {
	var oembed struct {
		HTML       string `json:"html"`
		AuthorName string `json:"author_name"`
	}
	if err := json.Unmarshal([]byte(body), &oembed); err != nil {
		return "", "", fmt.Errorf("解析 oEmbed JSON: %w", err)
	}

	text = htmlutil.StripTags(oembed.HTML)
	// 嵌入 HTML 末尾是 — Author (@handle) Date 的署名，截掉
	if idx := strings.Index(text, "—"); idx > 0 {
		text = strings.TrimSpace(text[:idx])
	}
	return text, oembed.AuthorName, nil
}

// ParseReaderTweet 在 Reader 文本中找 <作者> on X: "<正文>" 格式的行
func ParseReaderTweet(text string) (tweetText, author string, ok bool) {
	if m := readerTweetRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[2]), strings.TrimSpace(m[1]), true
	}
	return "", "", false
}

// tweetStatusID 从 /status/<id> 提取推文 ID
func tweetStatusID(rawURL string) string {
	if m := tweetStatusIDRegex.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}
