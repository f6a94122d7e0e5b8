package bench

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/lsrv/cmd/util"
	"github.com/ValentinKolb/lsrv/srv/client"
	"github.com/ValentinKolb/lsrv/srv/common"
	"github.com/ValentinKolb/lsrv/srv/transport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	// BenchCmd measures request throughput of a running line server
	BenchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Performance testing tool for lsrv servers",
		PreRunE: processBenchConfig,
		RunE:    run,
	}
	benchConfig     *common.ClientConfig
	benchConnector  transport.IClientConnector
	benchNumThreads = 10
	benchSkip       = make([]string, 0)
)

// benchmarks are run in this order, each with its own connections
var benchmarks = []struct {
	name string
	line string
}{
	{"arithmetic", "5 * 7"},
	{"division", "10 / 4"},
	{"average", "10 20 30 40 50"},
	{"factorial", "0"},
	{"invalid", "hello world"},
}

func init() {
	util.SetupClientFlags(BenchCmd)

	key := "skip"
	BenchCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. average,invalid)"))
	key = "threads"
	BenchCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent connections to use for the benchmark"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
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
	benchConfig = config
	benchConnector = connector

	benchNumThreads = viper.GetInt("threads")
	if s := viper.GetString("skip"); s != "" {
		benchSkip = strings.Split(s, ",")
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for lsrv servers")

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(benchConfig.String())
	fmt.Printf("Threads: %d\n", benchNumThreads)
	fmt.Println()

	results := make(map[string]testing.BenchmarkResult)

	for _, bm := range benchmarks {
		if shouldSkip(bm.name) {
			results[bm.name] = testing.BenchmarkResult{}
			printResult(bm.name, results[bm.name])
			continue
		}

		line := bm.line
		result := testing.Benchmark(func(b *testing.B) {
			b.SetParallelism(benchNumThreads)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				c, err := client.Dial(*benchConfig, benchConnector)
				if err != nil {
					log.Printf("(%s) - error connecting: %v\n", line, err)
					return
				}
				defer c.Close()

				for pb.Next() {
					if _, err := c.Send(line); err != nil {
						log.Printf("(%s) - error sending request: %v\n", line, err)
						return
					}
				}
			})
		})

		results[bm.name] = result
		printResult(bm.name, result)
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	for _, skip := range benchSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1)
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "Request", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoint", "Transport", "TimeoutSec", "Threads",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, bm := range benchmarks {
		result := results[bm.name]

		var nsPerOp, opsPerSec float64
		skipped := "true"
		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			bm.name,
			bm.line,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			benchConfig.Endpoint,
			benchConfig.Transport,
			strconv.Itoa(benchConfig.TimeoutSecond),
			strconv.Itoa(benchNumThreads),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %w", bm.name, err)
		}
	}

	return nil
}
