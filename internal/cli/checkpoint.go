package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewCheckpointCmd создаёт группу команд для работы с checkpoints.
func NewCheckpointCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage approval checkpoints",
	}

	cmd.AddCommand(
		newCheckpointListCmd(clientFn, outputFn),
		newCheckpointStatusCmd(clientFn, outputFn),
		newCheckpointApproveCmd(clientFn, outputFn),
		newCheckpointRejectCmd(clientFn, outputFn),
		newCheckpointSignCmd(clientFn, outputFn),
	)

	return cmd
}

func newCheckpointListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var tenant string
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if status == "all" {
				status = ""
			}
			checkpoints, err := client.ListCheckpoints(ListCheckpointsOpts{
				Tenant: tenant,
				Status: status,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "DAG_RUN", "TASK", "TENANT", "STATUS", "SIGNATURES", "PROMPT", "CREATED"}
			rows := make([][]string, len(checkpoints))
			for i, cp := range checkpoints {
				rows[i] = []string{
					cp.ID, cp.DagRunID, cp.TaskID, cp.Tenant, cp.Status,
					signatureProgress(cp), truncate(cp.Prompt, 40), cp.CreatedAt,
				}
			}

			out.Print(headers, rows, checkpoints)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Filter by tenant")
	cmd.Flags().StringVar(&status, "status", "pending", "Filter by status (pending, approved, rejected, expired, all)")

	return cmd
}

func newCheckpointStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status CHECKPOINT_ID",
		Short: "Show checkpoint details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			cp, err := client.GetCheckpoint(args[0])
			if err != nil {
				return err
			}

			printCheckpoint(out, cp)
			return nil
		},
	}

	return cmd
}

func newCheckpointApproveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "approve CHECKPOINT_ID [KEY=VALUE...]",
		Short: "Approve a pending checkpoint",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := parseKeyValues(args[1:])
			if err != nil {
				return err
			}

			cp, err := client.ApproveCheckpoint(args[0], ApproveRequest{
				User: user,
				Data: data,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Checkpoint approved: %s", cp.ID))
			printCheckpoint(out, cp)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Approving user")
	cmd.MarkFlagRequired("user")

	return cmd
}

func newCheckpointRejectCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var user string
	var reason string

	cmd := &cobra.Command{
		Use:   "reject CHECKPOINT_ID",
		Short: "Reject a pending checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			cp, err := client.RejectCheckpoint(args[0], RejectRequest{
				User:   user,
				Reason: reason,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Checkpoint rejected: %s", cp.ID))
			printCheckpoint(out, cp)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Rejecting user")
	cmd.Flags().StringVar(&reason, "reason", "", "Rejection reason")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("reason")

	return cmd
}

func newCheckpointSignCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "sign CHECKPOINT_ID [KEY=VALUE...]",
		Short: "Add a signature to a multi-sign checkpoint",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := parseKeyValues(args[1:])
			if err != nil {
				return err
			}

			cp, err := client.SignCheckpoint(args[0], SignRequest{
				User: user,
				Data: data,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Signature added: %s (%s)", cp.ID, signatureProgress(*cp)))
			printCheckpoint(out, cp)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Signing user")
	cmd.MarkFlagRequired("user")

	return cmd
}

// printCheckpoint выводит карточку одного checkpoint или JSON.
func printCheckpoint(out *Output, cp *CheckpointResponse) {
	pairs := [][2]string{
		{"ID", cp.ID},
		{"DAG run", cp.DagRunID},
		{"Task", cp.TaskID},
		{"Tenant", cp.Tenant},
		{"Status", cp.Status},
		{"Signatures", signatureProgress(*cp)},
		{"Created", cp.CreatedAt},
	}
	if cp.Prompt != "" {
		pairs = append(pairs, [2]string{"Prompt", cp.Prompt})
	}
	for _, a := range cp.Approvals {
		pairs = append(pairs, [2]string{"Signed by", a.User + " at " + a.At})
	}
	if cp.RejectedBy != "" {
		pairs = append(pairs, [2]string{"Rejected by", cp.RejectedBy})
		pairs = append(pairs, [2]string{"Reason", cp.RejectReason})
	}
	out.Detail(pairs, cp)
}

// signatureProgress форматирует прогресс подписей: "2/3" для
// multi-sign, роль для single-approval.
func signatureProgress(cp CheckpointResponse) string {
	if len(cp.RequiredSigners) > 0 {
		return strconv.Itoa(len(cp.Approvals)) + "/" + strconv.Itoa(cp.MinSignatures)
	}
	return cp.RequiredRole
}

// truncate обрезает строку до max символов для табличного вывода.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// parseKeyValues парсит аргументы вида KEY=VALUE в map.
func parseKeyValues(args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, nil
	}

	data := make(map[string]any, len(args))
	for _, kv := range args {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid argument %q, expected KEY=VALUE", kv)
		}
		data[parts[0]] = parts[1]
	}
	return data, nil
}
