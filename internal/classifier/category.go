// Package classifier 负责给收集的内容分类：可用时走 LLM，
// 不可用或输出不合法时走确定性回退规则。
package classifier

// Category 内容分类，闭合枚举
type Category string

// 当前的五个分类
const (
	CategoryIdeas    Category = "ideas"
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryExternal Category = "external"
	CategoryOthers   Category = "others"
)

// Valid 是否为当前枚举中的合法值
func (c Category) Valid() bool {
	switch c {
	case CategoryIdeas, CategoryWork, CategoryPersonal, CategoryExternal, CategoryOthers:
		return true
	}
	return false
}

// MigrateCategory 旧版分类到当前分类的全映射
//
// 早期版本的存量数据用的是 inspiration/article/other 这套枚举，
// 读取存量数据时在数据边界做一次性转换，不在业务里散落判断。
func MigrateCategory(raw string) Category {
	switch raw {
	case "inspiration":
		return CategoryIdeas
	case "article":
		return CategoryExternal
	case "other":
		return CategoryOthers
	case "work":
		return CategoryWork
	case "personal":
		return CategoryPersonal
	}
	if c := Category(raw); c.Valid() {
		return c
	}
	return CategoryOthers
}

// 各平台的默认分类（确定性回退用）
var platformCategories = map[string]Category{
	"xiaohongshu": CategoryExternal,
	"douyin":      CategoryExternal,
	"bilibili":    CategoryExternal,
	"youtube":     CategoryExternal,
	"wechat":      CategoryExternal,
	"twitter":     CategoryExternal,
	"feishu":      CategoryWork,
}

// FallbackCategory 确定性回退规则：
// 已知平台用平台默认分类；其余链接归 external，纯文本归 others。
// 关键词判断只存在于 LLM 提示词里，回退路径不做关键词匹配。
func FallbackCategory(isLink bool, platform string) Category {
	if isLink {
		if c, ok := platformCategories[platform]; ok {
			return c
		}
		return CategoryExternal
	}
	return CategoryOthers
}
