package send

import (
	"bufio"
	"fmt"
	"github.com/ValentinKolb/lsrv/cmd/util"
	"github.com/ValentinKolb/lsrv/lib/request"
	"github.com/ValentinKolb/lsrv/srv/client"
	"github.com/ValentinKolb/lsrv/srv/common"
	"github.com/ValentinKolb/lsrv/srv/transport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"strings"
	"time"
)

var (
	sendConfig    *common.ClientConfig
	sendConnector transport.IClientConnector

	// SendCmd sends request lines to a line server
	SendCmd = &cobra.Command{
		Use:   "send [line]...",
		Short: "Send request lines to a line server and print the replies",
		Long: `Send every argument as one request line on its own connection and print the reply.
Without arguments, lines are read from stdin. For reminder requests the command waits for the
delayed message unless --wait-reminders=false is given.`,
		Example: `  lsrv send --endpoint localhost:12345 "5 * 7" "10 20 30" "remind 2 Wake up!"`,
		PreRunE: setupClient,
		RunE:    run,
	}
)

func init() {
	util.SetupClientFlags(SendCmd)

	key := "wait-reminders"
	SendCmd.Flags().Bool(key, true, util.WrapString("Wait for the delayed message of reminder requests"))
}

func setupClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config, err := util.GetClientConfig()
	if err != nil {
		return err
	}
	connector, err := util.GetClientConnector(config.Transport)
	if err != nil {
		return err
	}

	sendConfig = config
	sendConnector = connector
	return nil
}

func run(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		for _, line := range args {
			if err := sendLine(line); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := sendLine(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// sendLine sends one request on a fresh connection
func sendLine(line string) error {
	c, err := client.Dial(*sendConfig, sendConnector)
	if err != nil {
		return err
	}
	defer c.Close()

	reply, err := c.Send(line)
	if err != nil {
		return err
	}
	fmt.Println(reply)

	req := request.Parse(line)
	if req.Kind != request.KindReminder || !viper.GetBool("wait-reminders") {
		return nil
	}

	message, err := readReminder(c, req.DelaySeconds, sendConfig.Timeout())
	if err != nil {
		return fmt.Errorf("reminder message not received: %w", err)
	}
	fmt.Println(message)
	return nil
}

// readReminder waits for the delayed message. A zero timeout waits forever,
// otherwise the timeout counts from the reminder's due time.
func readReminder(c *client.Client, delaySeconds uint64, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		return c.ReadLine()
	}
	return c.ReadLineTimeout(time.Duration(delaySeconds)*time.Second + timeout)
}
