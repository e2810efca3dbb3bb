package classifier

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/zapin/metadata-service/internal/htmlutil"
)

// Input 分类所需的上下文：用户原文 + 系统探测到的链接信息
type Input struct {
	// RawText 用户输入原文，原样给模型（噪声和意图的区分交给模型判断）
	RawText string
	// IsLink 输入中是否含链接
	IsLink bool
	// Platform 链接所属平台（探测到时）
	Platform string
	// URL 探测到的链接
	URL string
	// Title 已提取到的标题（探测到时）
	Title string
}

// Output 分类结果
type Output struct {
	Category  Category `json:"category"`
	Reasoning string   `json:"reasoning,omitempty"`
	// FromLLM 是否由模型产出（false 表示走了确定性回退）
	FromLLM bool `json:"-"`
}

// Classifier 内容分类器
type Classifier struct {
	llm *ChatClient
}

// New 创建分类器；llm 为 nil 时所有请求都走确定性回退
func New(llm *ChatClient) *Classifier {
	return &Classifier{llm: llm}
}

// Enabled LLM 是否可用
func (c *Classifier) Enabled() bool {
	return c.llm != nil
}

// Classify 对输入分类
//
// 模型调用失败、输出不可解析、或分类值不在枚举内时，
// 一律退回确定性规则，绝不把非法分类值放出去。
// 分类是无状态且幂等的，除一次外呼外没有副作用。
func (c *Classifier) Classify(ctx context.Context, in Input) Output {
	if c.llm == nil {
		return fallback(in)
	}

	reply, err := c.llm.Chat(ctx, buildPrompt(in))
	if err != nil {
		log.Printf("[classifier] LLM 调用失败，走回退规则: %v", err)
		return fallback(in)
	}

	out, ok := ParseModelReply(reply)
	if !ok {
		log.Printf("[classifier] 模型输出不可解析，走回退规则")
		return fallback(in)
	}
	return out
}

func fallback(in Input) Output {
	return Output{Category: FallbackCategory(in.IsLink, in.Platform)}
}

// 分类规则文档。各分类的触发关键词、平台覆盖规则、
// 以及模型必须执行的自我批判步骤都写死在这里。
const rulesPrompt = `你是一个个人收集箱的内容分类助手。把一条用户随手记下的内容分到以下五类之一：

- ideas: 自己的想法、灵感、点子、"可以做一个xx"
- work: 工作事务、会议、需求、项目、文档、deadline
- personal: 个人生活事务、购物清单、约定、提醒、健康
- external: 收藏的外部内容：文章、视频、帖子、别人的观点
- others: 无法明确归类的内容

关键词只是提示，不是硬规则：
- ideas 常见词：想法、灵感、idea、不如、可以试试
- work 常见词：需求、评审、排期、周报、对齐、客户
- personal 常见词：买、预约、体检、家里、提醒我

平台覆盖规则（优先级高于关键词）：
- 来自小红书、抖音、Bilibili、YouTube 等内容消费平台的链接一律归 external，即使文字里出现工作或生活词汇
- 飞书文档链接默认归 work

判断步骤（必须执行）：
1. 先给出初步判断
2. 自我批判：这是用户自己的表达还是收藏的外部内容？分享套话是否干扰了判断？平台覆盖规则是否适用？
3. 给出最终结论

只输出一个 JSON 对象，不要输出其他内容：
{"category": "五类之一", "reasoning": "一句话理由"}`

// buildPrompt 组装完整提示词：规则 + 用户原文 + 系统探测信息
func buildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString(rulesPrompt)
	b.WriteString("\n\n用户输入原文：\n")
	b.WriteString(in.RawText)

	if in.IsLink {
		b.WriteString("\n\n系统探测到的信息（仅供参考）：\n")
		if in.URL != "" {
			b.WriteString("链接: " + in.URL + "\n")
		}
		if in.Platform != "" {
			b.WriteString("平台: " + in.Platform + "\n")
		}
		if in.Title != "" {
			b.WriteString("标题: " + in.Title + "\n")
		}
	}
	return b.String()
}

// ParseModelReply 防御式解析模型输出：
// 剥掉 Markdown 代码块包装，取第一个配对完整的 {...}，
// JSON 解析后校验 category 在枚举内
func ParseModelReply(reply string) (Output, bool) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	blob, found := htmlutil.ExtractBalancedJSON(reply, "")
	if !found {
		return Output{}, false
	}

	var parsed struct {
		Category  string `json:"category"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(blob), &parsed); err != nil {
		return Output{}, false
	}

	cat := Category(strings.ToLower(strings.TrimSpace(parsed.Category)))
	if !cat.Valid() {
		return Output{}, false
	}
	return Output{Category: cat, Reasoning: parsed.Reasoning, FromLLM: true}, true
}
