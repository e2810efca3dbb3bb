package title

import (
	"context"
	"errors"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/zapin/metadata-service/internal/cache"
	"github.com/zapin/metadata-service/internal/fetcher"
	"github.com/zapin/metadata-service/internal/htmlutil"
)

// GenericHandler 通用处理器，匹配所有 URL，注册在处理器列表最后兜底
type GenericHandler struct {
	env *Env
}

// NewGenericHandler 创建通用处理器
func NewGenericHandler(env *Env) *GenericHandler {
	return &GenericHandler{env: env}
}

func (h *GenericHandler) Name() string { return "generic" }

// CanHandle 无条件为真
func (h *GenericHandler) CanHandle(u *url.URL) bool { return true }

func (h *GenericHandler) FetchTitle(ctx context.Context, rawURL string) Result {
	key := cache.Key(h.Name(), "", rawURL)

	return h.env.run(ctx, key, []strategy{
		{name: "direct", run: func(ctx context.Context) (candidate, error) {
			res := h.env.Fetcher.Fetch(ctx, rawURL, fetcher.Options{UserAgent: botUA})
			if res.Error != nil {
				return candidate{}, res.Error
			}
			return parseGenericPage(res.HTML, res.FinalURL)
		}},
	})
}

// parseGenericPage og:title → <title> → <h1>，
// 全空时再让 readability 从正文推一个标题
func parseGenericPage(html, pageURL string) (candidate, error) {
	if t := htmlutil.ExtractGenericTitle(html); t != "" {
		return candidate{title: t}, nil
	}

	if u, err := url.Parse(pageURL); err == nil {
		if article, err := readability.FromReader(strings.NewReader(html), u); err == nil {
			if t := htmlutil.CollapseWhitespace(article.Title); t != "" {
				return candidate{title: t, author: htmlutil.CollapseWhitespace(article.Byline)}, nil
			}
		}
	}

	return candidate{}, errors.New("页面中没有标题")
}
