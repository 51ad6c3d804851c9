package intake

import (
	"regexp"
	"strings"
)

// requirementsPattern 匹配回复中的 python 围栏代码块，捕获块内文本。
var requirementsPattern = regexp.MustCompile("(?m)```python\\s*([\\s\\S]*?)\\s*```")

// ExtractRequirements 从模型回复中抽取所有 python 围栏块并按出现顺序
// 以空行拼接。没有围栏块时返回空串。
func ExtractRequirements(reply string) string {
	matches := requirementsPattern.FindAllStringSubmatch(reply, -1)
	if len(matches) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, m[1])
	}
	return strings.Join(blocks, "\n\n")
}
