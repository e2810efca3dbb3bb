package classifier

import (
	"context"
	"testing"
)

func TestMigrateCategory(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Category
	}{
		{"inspiration 映射到 ideas", "inspiration", CategoryIdeas},
		{"article 映射到 external", "article", CategoryExternal},
		{"other 映射到 others", "other", CategoryOthers},
		{"work 不变", "work", CategoryWork},
		{"personal 不变", "personal", CategoryPersonal},
		{"当前枚举原样通过", "ideas", CategoryIdeas},
		{"未知值兜底到 others", "banana", CategoryOthers},
		{"空串兜底到 others", "", CategoryOthers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MigrateCategory(tt.raw); got != tt.expected {
				t.Errorf("MigrateCategory(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestFallbackCategory(t *testing.T) {
	tests := []struct {
		name     string
		isLink   bool
		platform string
		expected Category
	}{
		{"小红书链接归 external", true, "xiaohongshu", CategoryExternal},
		{"抖音链接归 external", true, "douyin", CategoryExternal},
		{"飞书链接归 work", true, "feishu", CategoryWork},
		{"未知平台链接归 external", true, "generic", CategoryExternal},
		// 纯文本一律 others：关键词匹配只在模型路径里做
		{"纯文本归 others", false, "", CategoryOthers},
		{"生活类文本也归 others", false, "", CategoryOthers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FallbackCategory(tt.isLink, tt.platform); got != tt.expected {
				t.Errorf("FallbackCategory(%v, %q) = %q, want %q", tt.isLink, tt.platform, got, tt.expected)
			}
		})
	}
}

func TestParseModelReply(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected Category
		ok       bool
	}{
		{
			name:     "裸 JSON",
			reply:    `{"category":"work","reasoning":"提到了需求评审"}`,
			expected: CategoryWork,
			ok:       true,
		},
		{
			name:     "代码块包装",
			reply:    "```json\n{\"category\":\"ideas\",\"reasoning\":\"用户自己的点子\"}\n```",
			expected: CategoryIdeas,
			ok:       true,
		},
		{
			name:     "JSON 前后有废话",
			reply:    "好的，我的判断如下：\n{\"category\":\"external\",\"reasoning\":\"收藏的视频\"}\n希望有帮助",
			expected: CategoryExternal,
			ok:       true,
		},
		{
			name:     "大小写混合的合法分类",
			reply:    `{"category":"Personal"}`,
			expected: CategoryPersonal,
			ok:       true,
		},
		{
			name:  "分类值不在枚举内",
			reply: `{"category":"misc","reasoning":"x"}`,
			ok:    false,
		},
		{
			name:  "不是 JSON",
			reply: "这条内容应该归为 work 类",
			ok:    false,
		},
		{
			name:  "空回复",
			reply: "",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := ParseModelReply(tt.reply)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && out.Category != tt.expected {
				t.Errorf("Category = %q, want %q", out.Category, tt.expected)
			}
		})
	}
}

// LLM 不可用时分类结果仍然必须落在闭合枚举内
func TestClassifyWithoutLLM(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name     string
		in       Input
		expected Category
	}{
		{"纯文本提醒", Input{RawText: "记得买牙刷"}, CategoryOthers},
		{"普通链接", Input{RawText: "https://example.com/a", IsLink: true, Platform: "generic"}, CategoryExternal},
		{"小红书链接", Input{RawText: "http://xhslink.com/x", IsLink: true, Platform: "xiaohongshu"}, CategoryExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.Classify(context.Background(), tt.in)
			if out.Category != tt.expected {
				t.Errorf("Category = %q, want %q", out.Category, tt.expected)
			}
			if !out.Category.Valid() {
				t.Errorf("分类值 %q 不在枚举内", out.Category)
			}
			if out.FromLLM {
				t.Error("回退路径不应标记为模型产出")
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(Input{
		RawText:  "123【好物】😆复制本条信息打开小红书",
		IsLink:   true,
		URL:      "http://xhslink.com/x",
		Platform: "xiaohongshu",
		Title:    "好物分享",
	})

	// 用户原文必须原样出现，噪声与意图的区分交给模型
	for _, want := range []string{"123【好物】😆复制本条信息打开小红书", "http://xhslink.com/x", "xiaohongshu", "好物分享"} {
		if !contains(prompt, want) {
			t.Errorf("提示词缺少 %q", want)
		}
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
