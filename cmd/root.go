package cmd

import (
	"fmt"
	"github.com/ValentinKolb/lsrv/cmd/bench"
	"github.com/ValentinKolb/lsrv/cmd/send"
	"github.com/ValentinKolb/lsrv/cmd/serve"
	"github.com/ValentinKolb/lsrv/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "lsrv",
		Short: "concurrent line protocol servers",
		Long: fmt.Sprintf(`lsrv (v%s)

TCP servers for a newline-delimited text protocol (arithmetic, averages,
factorial jobs and delayed reminders), runnable with three executor modes:
thread-per-connection, a single cooperative run-loop or a shared worker pool.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of lsrv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lsrv v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(send.SendCmd)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
