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
	douyinVideoIDRegex = regexp.MustCompile(`/video/(\d+)`)
	hashtagRegex       = regexp.MustCompile(`#\S+`)
)

// 视频描述截断长度（字符数）
const douyinDescLimit = 80

// DouyinHandler 抖音视频处理器
type DouyinHandler struct {
	env *Env
}

// NewDouyinHandler 创建抖音处理器
func NewDouyinHandler(env *Env) *DouyinHandler {
	return &DouyinHandler{env: env}
}

func (h *DouyinHandler) Name() string { return "douyin" }

func (h *DouyinHandler) CanHandle(u *url.URL) bool {
	if u == nil {
		return false
	}
	host := u.Hostname()
	return strings.Contains(host, "douyin.com") || strings.Contains(host, "iesdouyin.com")
}

func (h *DouyinHandler) FetchTitle(ctx context.Context, rawURL string) Result {
	// 分享出来的都是 v.douyin.com 短链，先还原成正式页面
	if u, err := url.Parse(rawURL); err == nil && strings.HasPrefix(u.Hostname(), "v.") {
		if resolved, err := h.env.Fetcher.ResolveRedirect(ctx, rawURL); err == nil {
			rawURL = resolved
		}
	}

	key := cache.Key(h.Name(), douyinVideoID(rawURL), rawURL)
	target := rawURL

	return h.env.run(ctx, key, []strategy{
		{name: "direct", run: func(ctx context.Context) (candidate, error) {
			res := h.env.Fetcher.Fetch(ctx, target, fetcher.Options{UserAgent: iosSafariUA})
			if res.Error != nil {
				return candidate{}, res.Error
			}
			if desc, author, ok := ParseDouyinRouterData(res.HTML); ok {
				return candidate{title: desc, author: author}, nil
			}
			// 没有内嵌数据时退到 <title>，占位标题（vlog 等）由校验层拒绝
			if t := htmlutil.TitleTag(res.HTML); t != "" {
				return candidate{title: cleanDouyinTitle(t)}, nil
			}
			return candidate{}, errors.New("页面中没有视频数据")
		}},
	})
}

// douyinVideoID 从 /video/<id> 提取视频 ID
func douyinVideoID(rawURL string) string {
	if m := douyinVideoIDRegex.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// ParseDouyinRouterData 解析内嵌的 window._ROUTER_DATA JSON，
// 取视频描述和作者昵称
func ParseDouyinRouterData(html string) (desc, author string, ok bool) {
	blob, found := htmlutil.ExtractBalancedJSON(html, "window._ROUTER_DATA")
	if !found {
		return "", "", false
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &data); err != nil {
		return "", "", false
	}

	item := findVideoItem(data, 0)
	if item == nil {
		return "", "", false
	}

	d, _ := item["desc"].(string)
	desc = CleanDouyinDesc(d)
	if desc == "" {
		return "", "", false
	}

	if a, isMap := item["author"].(map[string]interface{}); isMap {
		if n, _ := a["nickname"].(string); n != "" {
			author = htmlutil.CollapseWhitespace(n)
		}
	}
	return desc, author, true
}

// findVideoItem 定位视频条目：loaderData → video_(id)/page →
// videoInfoRes → item_list[0]。页面版本迭代后层级会变，按键名递归找
func findVideoItem(v interface{}, depth int) map[string]interface{} {
	if depth > 10 {
		return nil
	}
	switch val := v.(type) {
	case map[string]interface{}:
		if list, isList := val["item_list"].([]interface{}); isList && len(list) > 0 {
			if item, isMap := list[0].(map[string]interface{}); isMap {
				return item
			}
		}
		for _, child := range val {
			if item := findVideoItem(child, depth+1); item != nil {
				return item
			}
		}
	case []interface{}:
		for _, child := range val {
			if item := findVideoItem(child, depth+1); item != nil {
				return item
			}
		}
	}
	return nil
}

// CleanDouyinDesc 清洗视频描述：去话题标签、折叠空白、截断
func CleanDouyinDesc(desc string) string {
	desc = hashtagRegex.ReplaceAllString(desc, "")
	desc = htmlutil.CollapseWhitespace(desc)

	runes := []rune(desc)
	if len(runes) > douyinDescLimit {
		desc = string(runes[:douyinDescLimit]) + "…"
	}
	return desc
}

// cleanDouyinTitle 去掉 <title> 里的站点后缀
func cleanDouyinTitle(t string) string {
	for _, suffix := range []string{" - 抖音", "-抖音", " | 抖音"} {
		t = strings.TrimSuffix(t, suffix)
	}
	return strings.TrimSpace(t)
}
