package train

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/amark-23/slp-labs-NLP/utils"
)

// MetricsReport renders accuracy plus per-class precision/recall/F1 and the
// macro average as a plain table.
func MetricsReport(gold, pred []int, classes []string) string {
	reports, macro := utils.ClassificationReport(gold, pred, len(classes))

	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.SetHeader([]string{"CLASS", "PRECISION", "RECALL", "F1", "SUPPORT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")

	for i, r := range reports {
		table.Append([]string{
			classes[i],
			fmt.Sprintf("%.3f", r.Precision),
			fmt.Sprintf("%.3f", r.Recall),
			fmt.Sprintf("%.3f", r.F1),
			fmt.Sprintf("%d", r.Support),
		})
	}
	table.Append([]string{
		"macro avg",
		fmt.Sprintf("%.3f", macro.Precision),
		fmt.Sprintf("%.3f", macro.Recall),
		fmt.Sprintf("%.3f", macro.F1),
		fmt.Sprintf("%d", macro.Support),
	})
	table.Render()

	return fmt.Sprintf("accuracy: %.4f\n%s", utils.Accuracy(gold, pred), sb.String())
}
