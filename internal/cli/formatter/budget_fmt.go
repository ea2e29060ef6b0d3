package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/wbs/internal/budget"
	"github.com/alexanderramin/wbs/internal/domain"
)

// FormatAllocation renders one row per period with a column per series and
// the period total. With cumulative set a running-total column is added.
// A requested range is printed above the table because the first and last
// rows cover their whole calendar period.
func FormatAllocation(alloc *budget.Allocation, currency string, cumulative bool) string {
	if alloc == nil || len(alloc.Buckets) == 0 {
		return Dim("No periods in range.") + "\n"
	}

	headers := []string{"PERIOD"}
	align := []Align{AlignLeft}
	for _, s := range alloc.Series {
		headers = append(headers, strings.ToUpper(s.Label))
		align = append(align, AlignRight)
	}
	headers = append(headers, "TOTAL")
	align = append(align, AlignRight)
	if cumulative {
		headers = append(headers, "CUMULATIVE")
		align = append(align, AlignRight)
	}

	var running []float64
	if cumulative {
		running = budget.Cumulative(alloc.Buckets)
	}

	rows := make([][]string, 0, len(alloc.Buckets)+1)
	sums := make([]float64, len(alloc.Series))
	var grand float64
	for i, bucket := range alloc.Buckets {
		row := []string{bucket.Label}
		for j, s := range alloc.Series {
			v := bucket.Values[s.Key]
			sums[j] += v
			row = append(row, amountCell(v))
		}
		grand += bucket.Total
		row = append(row, Bold(FormatMoney(bucket.Total, "")))
		if cumulative {
			row = append(row, FormatMoney(running[i], ""))
		}
		rows = append(rows, row)
	}

	footer := []string{Bold("Σ")}
	for _, v := range sums {
		footer = append(footer, Bold(FormatMoney(v, "")))
	}
	footer = append(footer, Bold(FormatMoney(grand, "")))
	if cumulative {
		footer = append(footer, "")
	}
	rows = append(rows, footer)

	var b strings.Builder
	if r := alloc.Range; r != nil {
		fmt.Fprintf(&b, "%s\n", Dim(fmt.Sprintf("Range %s to %s (edge rows are whole %ss)",
			r.From.Format(domain.DateLayout), r.To.Format(domain.DateLayout), alloc.Period)))
	}
	b.WriteString(RenderAlignedTable(headers, rows, align))
	if currency != "" {
		b.WriteString(Dim("Amounts in "+currency+", "+string(alloc.Period)+"ly buckets.") + "\n")
	}
	return b.String()
}

func amountCell(v float64) string {
	if v == 0 {
		return Dim("-")
	}
	return FormatMoney(v, "")
}
