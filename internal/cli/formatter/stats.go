package formatter

import (
	"fmt"
	"strings"

	"github.com/paiban/lineplan/pkg/stats"
)

// FormatCoverage 渲染产线负荷与需求满足情况
func FormatCoverage(c *stats.CoverageMetrics, b *stats.BalanceMetrics) string {
	var out strings.Builder
	out.WriteString(Header("产线负荷"))
	rows := make([][]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		capacity, fill := "-", "-"
		if l.Capacity > 0 {
			capacity = Qty(l.Capacity)
			fill = fmt.Sprintf("%.1f%%", l.FillRate)
		}
		rows = append(rows, []string{l.Line, l.Building, Qty(l.Scheduled), capacity, fill})
	}
	out.WriteString(RenderTable([]string{"产线", "厂房", "排产", "产能", "利用率"}, rows))

	summary := fmt.Sprintf("需求满足 %.1f%%，完成 %d 项，部分 %d 项，未排 %d 项，负荷基尼 %.3f",
		c.DemandSatisfaction, c.ItemsFulfilled, c.ItemsPartial, len(c.ItemsUnscheduled), b.LoadGini)
	out.WriteString(Dim(summary) + "\n")
	for _, share := range c.Buildings {
		if !share.Within {
			out.WriteString(Warn(fmt.Sprintf("厂房 %s 占比 %.1f%% 超出区间", share.Building, share.Share)) + "\n")
		}
	}
	return out.String()
}
