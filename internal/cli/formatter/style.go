// Package formatter 渲染命令行输出
package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// 调色板
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorDim    = lipgloss.Color("#928374")
	ColorHeader = lipgloss.Color("#fe8019")
)

// 预定义样式
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
)

// plain 为 true 时不输出样式，非终端输出时使用
var plain bool

// SetPlain 切换纯文本输出
func SetPlain(v bool) {
	plain = v
}

func render(s lipgloss.Style, text string) string {
	if plain {
		return text
	}
	return s.Render(text)
}

// Header 渲染带下划线的小节标题
func Header(text string) string {
	line := strings.Repeat("─", lipgloss.Width(text))
	return render(StyleHeader, text) + "\n" + render(StyleDim, line) + "\n"
}

// OK 成功提示
func OK(text string) string {
	return render(StyleGreen, "✔ "+text)
}

// Warn 警告提示
func Warn(text string) string {
	return render(StyleYellow, "! "+text)
}

// Fail 失败提示
func Fail(text string) string {
	return render(StyleRed, "✖ "+text)
}

// Dim 次要信息
func Dim(text string) string {
	return render(StyleDim, text)
}

// Qty 格式化数量，整数不带小数
func Qty(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

// RenderTable 渲染对齐的表格，列宽按可见宽度计算
func RenderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	cols := len(headers)
	widths := make([]int, cols)
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < cols && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	const colGap = 2
	var b strings.Builder
	writeRow := func(cells []string, style *lipgloss.Style) {
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := widths[i] - lipgloss.Width(cell)
			if style != nil {
				cell = render(*style, cell)
			}
			b.WriteString(cell)
			if i < cols-1 {
				b.WriteString(strings.Repeat(" ", pad+colGap))
			}
		}
		b.WriteString("\n")
	}

	writeRow(headers, &StyleHeader)
	for _, row := range rows {
		writeRow(row, nil)
	}
	return b.String()
}
