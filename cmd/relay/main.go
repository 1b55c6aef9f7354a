// Relay CLI — инструмент командной строки для approval-gates и
// инспекции очереди jobs через HTTP API.
//
// Использование:
//
//	relay [--api-url URL] [--role ROLE] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	checkpoint  Работа с approval checkpoints
//	job         Инспекция очереди jobs
//
// Роль берётся из флага --role либо из переменной окружения RELAY_ROLE.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmabbott81/relay-sub001/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var role string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "relay",
		Short:         "Relay CLI — workflow scheduling and approvals",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().StringVar(&role, "role", os.Getenv("RELAY_ROLE"), "Caller role (Admin, Deployer, Operator, Viewer)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL, role) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewCheckpointCmd(clientFn, outputFn),
		cli.NewJobCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
