package serve

import (
	"context"
	"fmt"
	cmdUtil "github.com/ValentinKolb/lsrv/cmd/util"
	"github.com/ValentinKolb/lsrv/lib/handler"
	"github.com/ValentinKolb/lsrv/srv/admin"
	"github.com/ValentinKolb/lsrv/srv/common"
	"github.com/ValentinKolb/lsrv/srv/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a line server",
		Long:    `Start a line server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is LSRV_<flag> (e.g. LSRV_WORKERS=8)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "transport"
	ServeCmd.PersistentFlags().String(key, "tcp", cmdUtil.WrapString("Transport to listen on (tcp, unix)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address on which the server will listen (e.g. 0.0.0.0:12345, /tmp/lsrv.sock). Required, there is no default port"))

	key = "mode"
	ServeCmd.PersistentFlags().String(key, "pool", cmdUtil.WrapString("Executor mode: threaded (one goroutine per connection), loop (single run-loop goroutine) or pool (run-loop shared by a pool of workers)"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, runtime.NumCPU(), cmdUtil.WrapString("(pool mode) Number of worker goroutines running the run-loop"))

	key = "factorial-step"
	ServeCmd.PersistentFlags().Duration(key, handler.DefaultFactorialStep, cmdUtil.WrapString("Simulated work per factorial multiplication step"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Read/write timeout of a connection in seconds (0 disables it)"))

	key = "write-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Socket write buffer size in KB (0 keeps the OS default)"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Socket read buffer size in KB (0 keeps the OS default)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval in seconds (only for tcp, 0 disables it)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, -1, cmdUtil.WrapString("The linger time in seconds (only for tcp, -1 keeps the OS default)"))

	key = "admin-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the HTTP endpoint serving /metrics, /log and /sessions (empty disables it)"))

	key = "stats-interval"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Interval in seconds at which request statistics are logged (0 disables it)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	mode, err := common.ParseExecutorMode(viper.GetString("mode"))
	if err != nil {
		return err
	}

	serveCmdConfig.Transport = common.ServerTransportConfig{
		Name:     viper.GetString("transport"),
		Endpoint: viper.GetString("endpoint"),
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
		},
		TCPConf: common.TCPConf{
			TCPNoDelay:      viper.GetBool("tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("tcp-linger"),
		},
	}
	serveCmdConfig.Mode = mode
	serveCmdConfig.Workers = viper.GetInt("workers")
	serveCmdConfig.FactorialStep = viper.GetDuration("factorial-step")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.AdminEndpoint = viper.GetString("admin-endpoint")
	serveCmdConfig.StatsIntervalSecond = viper.GetInt64("stats-interval")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return serveCmdConfig.Validate()
}

// run starts the line server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	if err := common.InitLoggers(serveCmdConfig.LogLevel); err != nil {
		return err
	}

	fmt.Println(serveCmdConfig.String())

	connector, err := cmdUtil.GetServerConnector(serveCmdConfig.Transport.Name)
	if err != nil {
		return err
	}

	srv, err := engine.NewServer(*serveCmdConfig, connector)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Listen(); err != nil {
		_ = srv.Close()
		return err
	}

	if serveCmdConfig.AdminEndpoint != "" {
		adm := admin.New(srv, serveCmdConfig.LogLevel == "debug")
		go func() {
			if err := adm.ListenAndServe(ctx, serveCmdConfig.AdminEndpoint); err != nil {
				admin.Logger.Errorf("admin server stopped: %v", err)
			}
		}()
	}

	return srv.Serve(ctx)
}
