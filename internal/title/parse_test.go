package title

import (
	"testing"
)

func TestValidTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		valid bool
	}{
		{"正常标题", "深度解析 Go 并发模型", true},
		{"空串", "", false},
		{"纯空白", "   ", false},
		{"占位标题 vlog", "vlog", false},
		{"占位标题 vlog 大写", "VLOG", false},
		{"裸平台名 抖音", "抖音", false},
		{"裸平台名 小红书", "小红书", false},
		{"拦截页文案", "当前环境异常，完成验证后即可继续访问", false},
		{"英文拦截页", "Page Not Found - 404", false},
		{"包含平台名但不是占位", "小红书运营方法论", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidTitle(tt.title); got != tt.valid {
				t.Errorf("ValidTitle(%q) = %v, want %v", tt.title, got, tt.valid)
			}
		})
	}
}

func TestParseWeChatTitle(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "og:title",
			html:     `<meta property="og:title" content="Hello World">`,
			expected: "Hello World",
		},
		{
			name:     "msg_title 单引号",
			html:     `<script>var msg_title = '一篇公众号文章';</script>`,
			expected: "一篇公众号文章",
		},
		{
			name:     "msg_title 双引号",
			html:     `<script>var msg_title = "一篇公众号文章";</script>`,
			expected: "一篇公众号文章",
		},
		{
			name:     "退到 title 标签",
			html:     `<title>兜底标题</title>`,
			expected: "兜底标题",
		},
		{
			name:     "退到 h1",
			html:     `<body><h1 class="rich_media_title">正文标题</h1></body>`,
			expected: "正文标题",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseWeChatTitle(tt.html); got != tt.expected {
				t.Errorf("ParseWeChatTitle = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseWeChatAuthor(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "nickname 变量",
			html:     `<script>var nickname = "机器之心";</script>`,
			expected: "机器之心",
		},
		{
			name:     "msg_author 变量",
			html:     `<script>var msg_author = '作者名';</script>`,
			expected: "作者名",
		},
		{
			name:     "js_name 节点",
			html:     `<div id="js_name"> 机器之心 </div>`,
			expected: "机器之心",
		},
		{
			name:     "找不到",
			html:     `<p>没有作者</p>`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseWeChatAuthor(tt.html); got != tt.expected {
				t.Errorf("ParseWeChatAuthor = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseXiaohongshuState(t *testing.T) {
	tests := []struct {
		name       string
		html       string
		wantTitle  string
		wantAuthor string
		wantOK     bool
	}{
		{
			name:       "标准嵌套结构",
			html:       `<script>window.__INITIAL_STATE__={"note":{"note":{"title":"T","user":{"nickname":"N"}}}}</script>`,
			wantTitle:  "T",
			wantAuthor: "N",
			wantOK:     true,
		},
		{
			name:       "title 为空时用 desc",
			html:       `<script>window.__INITIAL_STATE__={"note":{"note":{"title":"","desc":"这是描述 #话题","user":{"name":"N2"}}}}</script>`,
			wantTitle:  "这是描述",
			wantAuthor: "N2",
			wantOK:     true,
		},
		{
			name:      "blob 含 undefined 字面量",
			html:      `<script>window.__INITIAL_STATE__={"note":{"note":{"title":"T3","video":undefined}}}</script>`,
			wantTitle: "T3",
			wantOK:    true,
		},
		{
			name:   "没有内嵌状态",
			html:   `<html><body>hi</body></html>`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, author, ok := ParseXiaohongshuState(tt.html)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if author != tt.wantAuthor {
				t.Errorf("author = %q, want %q", author, tt.wantAuthor)
			}
		})
	}
}

func TestParseDouyinRouterData(t *testing.T) {
	html := `<script>window._ROUTER_DATA = {"loaderData":{"video_(id)/page":{"videoInfoRes":{"item_list":[{"desc":"记录美好生活 #vlog #日常","author":{"nickname":"某人"}}]}}}}</script>`

	desc, author, ok := ParseDouyinRouterData(html)
	if !ok {
		t.Fatal("期望解析成功")
	}
	if desc != "记录美好生活" {
		t.Errorf("desc = %q, want %q", desc, "记录美好生活")
	}
	if author != "某人" {
		t.Errorf("author = %q, want %q", author, "某人")
	}
}

func TestCleanDouyinDesc(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"去话题标签", "看看这个 #美食 #探店", "看看这个"},
		{"空描述", "#纯标签 #另一个", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanDouyinDesc(tt.input); got != tt.expected {
				t.Errorf("CleanDouyinDesc = %q, want %q", got, tt.expected)
			}
		})
	}

	t.Run("超长截断", func(t *testing.T) {
		long := ""
		for i := 0; i < 100; i++ {
			long += "长"
		}
		got := CleanDouyinDesc(long)
		if runes := []rune(got); len(runes) != douyinDescLimit+1 { // 截断后补省略号
			t.Errorf("截断后长度 = %d, want %d", len(runes), douyinDescLimit+1)
		}
	})
}

func TestParseTweetOEmbed(t *testing.T) {
	body := `{"html":"<blockquote class=\"twitter-tweet\"><p lang=\"en\">Interesting take on Go generics</p>&mdash; Jane (@jane) <a href=\"https://twitter.com/jane/status/1\">May 1, 2025</a></blockquote>","author_name":"Jane"}`

	text, author, err := ParseTweetOEmbed(body)
	if err != nil {
		t.Fatalf("ParseTweetOEmbed error: %v", err)
	}
	if text != "Interesting take on Go generics" {
		t.Errorf("text = %q", text)
	}
	if author != "Jane" {
		t.Errorf("author = %q, want Jane", author)
	}
}

// 推文正文只剩一个 t.co 短链时，用被转发页面的标题合成结果
func TestTweetLinkOnlyComposesLinkedTitle(t *testing.T) {
	body := `{"html":"<blockquote class=\"twitter-tweet\"><p><a href=\"https://t.co/abc123\">https://t.co/abc123</a></p>&mdash; Jane (@jane) <a href=\"https://twitter.com/jane/status/1\">May 1, 2025</a></blockquote>","author_name":"Jane"}`

	cand, err := tweetCandidateFromOEmbed(body, func(link string) string {
		if link != "https://t.co/abc123" {
			t.Errorf("resolveLink(%q), want https://t.co/abc123", link)
		}
		return "一篇被转发的文章"
	})
	if err != nil {
		t.Fatalf("tweetCandidateFromOEmbed error: %v", err)
	}
	if want := `Jane: "一篇被转发的文章"`; cand.title != want {
		t.Errorf("title = %q, want %q", cand.title, want)
	}
	if cand.author != "Jane" {
		t.Errorf("author = %q, want Jane", cand.author)
	}
}

// 正文里除了链接还有别的文字时，只去掉链接，不做合成
func TestTweetTextWithLinkKeepsOwnText(t *testing.T) {
	body := `{"html":"<blockquote><p>Worth reading https://t.co/abc123</p>&mdash; Jane (@jane)</blockquote>","author_name":"Jane"}`

	cand, err := tweetCandidateFromOEmbed(body, func(link string) string {
		t.Error("正文非空时不应解析被转发页面")
		return ""
	})
	if err != nil {
		t.Fatalf("tweetCandidateFromOEmbed error: %v", err)
	}
	if cand.title != "Worth reading" {
		t.Errorf("title = %q, want Worth reading", cand.title)
	}
}

func TestParseTweetOEmbedInvalid(t *testing.T) {
	if _, _, err := ParseTweetOEmbed("not json"); err == nil {
		t.Error("期望 JSON 解析错误")
	}
}

func TestParseReaderTweet(t *testing.T) {
	text := "一些前置内容\nJane Doe on X: \"Go 1.25 is out\" / X\n后续内容"

	tweetText, author, ok := ParseReaderTweet(text)
	if !ok {
		t.Fatal("期望匹配到推文行")
	}
	if tweetText != "Go 1.25 is out" {
		t.Errorf("text = %q", tweetText)
	}
	if author != "Jane Doe" {
		t.Errorf("author = %q", author)
	}
}

func TestStripBoilerplate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "去站点口号",
			input:    "好物分享 小红书，你的生活指南",
			expected: "好物分享",
		},
		{
			name:     "去结尾话题标签",
			input:    "收纳技巧大全 #收纳 #家居",
			expected: "收纳技巧大全",
		},
		{
			name:     "去打开 App 提示",
			input:    "点击打开小红书查看更多精彩内容 真正的内容",
			expected: "真正的内容",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripBoilerplate(tt.input); got != tt.expected {
				t.Errorf("StripBoilerplate = %q, want %q", got, tt.expected)
			}
		})
	}
}
