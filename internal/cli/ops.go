package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reqtrack/internal/mutate"
)

// OperationInfo describes one operation in `ops` output.
type OperationInfo struct {
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases,omitempty"`
	Family   string   `json:"family"`
	Required []string `json:"required"`
	Summary  string   `json:"summary"`
}

// NewOpsCommand creates the ops command.
func NewOpsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List mutation operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(rootOpts, cmd)
			infos := operationInfos()
			if f.Format == "json" {
				return f.Success(infos)
			}
			return f.Success(formatOperations(infos))
		},
	}
}

func operationInfos() []OperationInfo {
	ops := mutate.Operations()
	infos := make([]OperationInfo, len(ops))
	for i, op := range ops {
		infos[i] = OperationInfo{
			Name:     op.Name,
			Aliases:  op.Aliases,
			Family:   string(op.Family),
			Required: op.Required,
			Summary:  op.Summary,
		}
	}
	return infos
}

func formatOperations(infos []OperationInfo) string {
	lines := make([]string, 0, len(infos))
	for _, info := range infos {
		line := fmt.Sprintf("%-26s %s", info.Name, info.Summary)
		if len(info.Required) > 0 {
			line += fmt.Sprintf(" (requires: %s)", strings.Join(info.Required, ", "))
		}
		if len(info.Aliases) > 0 {
			line += fmt.Sprintf(" [alias: %s]", strings.Join(info.Aliases, ", "))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
