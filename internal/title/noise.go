package title

import (
	"regexp"

	"github.com/zapin/metadata-service/internal/htmlutil"
)

// 描述文本里的站点套话：法律声明、界面文案、页脚链接等。
// 小红书 og:description 尤其脏，整段里混着这些句子。
var boilerplateRegexes = []*regexp.Regexp{
	regexp.MustCompile(`小红书[，,. ]?你的生活(兴趣社区|指南)?`),
	regexp.MustCompile(`关注\S{1,20}(，|,)?(带你)?\S{0,20}(了解|发现)更多\S{0,20}`),
	regexp.MustCompile(`(点击|复制本条信息|打开)\S{0,10}(小红书|App|app)\S{0,10}(查看|打开|浏览)?\S{0,10}`),
	regexp.MustCompile(`该(笔记|内容)来自小红书`),
	regexp.MustCompile(`沪ICP备\S+号?`),
	regexp.MustCompile(`营业执照|增值电信业务经营许可证|医疗器械网络交易服务`),
	regexp.MustCompile(`侵权投诉|违法不良信息举报|网上有害信息举报`),
	regexp.MustCompile(`自营经营者信息|网络文化经营许可证`),
	regexp.MustCompile(`©\s*\S{1,30}(有限公司|Inc\.?|Ltd\.?)`),
	regexp.MustCompile(`(查看|展开)(全部|更多)`),
	regexp.MustCompile(`\d+\s*(赞|收藏|评论|转发)`),
	regexp.MustCompile(`(登录|注册|下载)\S{0,6}(查看|体验)?(更多)?(精彩)?内容?`),
	regexp.MustCompile(`马上(来)?小红书`),
}

// 连续话题标签（#xx#yy…），出现在描述末尾时整段去掉
var trailingHashtagRegex = regexp.MustCompile(`(?:\s*#\S+)+\s*$`)

// StripBoilerplate 去掉文本中的站点套话并折叠空白
func StripBoilerplate(s string) string {
	for _, re := range boilerplateRegexes {
		s = re.ReplaceAllString(s, "")
	}
	s = trailingHashtagRegex.ReplaceAllString(s, "")
	return htmlutil.CollapseWhitespace(s)
}
