package utils

import (
	"encoding/json"
	"strings"

	"k8s.io/klog/v2"
)

// ExtractJSON 从文本中提取第一个完整的 JSON 对象
// 字符串内的括号不参与计数
func ExtractJSON(content string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, ch := range content {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return content[start : i+1]
			}
		}
	}

	return content
}

func ToJSON(v any) string {
	jsonData, err := json.Marshal(v)
	if err != nil {
		klog.Errorf("JSON序列化失败: %v", err)
		return ""
	}
	return string(jsonData)
}

// ExtractMarkdown 从文本中提取 Markdown 内容
// 提取第一个 ``` 代码块（可带 markdown/md 标识），没有代码块则返回原始内容
func ExtractMarkdown(content string) string {
	const fence = "```"

	open := strings.Index(content, fence)
	if open < 0 {
		klog.V(6).Infof("[ExtractMarkdown] 未找到 Markdown 代码块，返回原始内容")
		return content
	}

	// 跳过语言标识行
	body := content[open+len(fence):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		info := strings.TrimSpace(body[:nl])
		if info == "" || !strings.ContainsAny(info, " \t") {
			body = body[nl+1:]
		}
	}

	closing := strings.LastIndex(body, fence)
	if closing < 0 {
		klog.V(6).Infof("[ExtractMarkdown] 代码块未闭合，返回代码块之后的内容")
		return body
	}

	klog.V(6).Infof("[ExtractMarkdown] 提取到 Markdown 代码块，长度: %d", closing)
	return body[:closing]
}
