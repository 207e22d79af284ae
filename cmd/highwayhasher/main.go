package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"edu/highwayhasher/internal/arena"
	"edu/highwayhasher/internal/bench"
	"edu/highwayhasher/internal/digester"
	"edu/highwayhasher/internal/hashes"
	"edu/highwayhasher/internal/highway"
	"edu/highwayhasher/internal/web"
)

var (
	workers int
	timeout time.Duration
	config  string
	logPath string
	verbose bool

	logger log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "highwayhasher",
	Short: "highwayhasher - keyed HighwayHash digests of files, streams and HTTP bodies",
	Long: `highwayhasher computes 64, 128 and 256-bit HighwayHash digests. Keys are 32 bytes
of hex; leaving the key out selects the default key so digests stay reproducible
everywhere the same data is hashed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(verbose)
		if config != "" {
			viper.SetConfigFile(config)
			if err := viper.ReadInConfig(); err != nil {
				level.Warn(logger).Log("msg", "could not read config file", "file", config, "err", err)
			}
		}

		if workers > 0 {
			viper.Set("workers", workers)
		}
		if logPath != "" {
			viper.Set("log", logPath)
		}
	},
}

var sumCmd = &cobra.Command{
	Use:   "sum [file...]",
	Short: "Hash files, or stdin when no file (or -) is given",
	RunE:  runSum,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <digest> [file]",
	Short: "Check a hex digest against a file or stdin",
	Long:  `Check a hex digest. The algorithm is detected from the digest length unless --algorithm is set.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runVerify,
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure HighwayHash throughput against reference hashes",
	RunE:  runBench,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP hashing server",
	RunE:  runServe,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported algorithms",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "Supported algorithms:")
		for _, algo := range hashes.List() {
			h, _ := hashes.Get(algo)
			fmt.Fprintf(cmd.OutOrStdout(), "  - %-12s %3d bytes\n", algo, h.Size())
		}
	},
}

var arenaCmd = &cobra.Command{
	Use:   "arena",
	Short: "Show the session arena layout",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "page size: %d bytes\nslot size: %d bytes\ncapacity:  %d sessions\n",
			arena.PageSize, arena.SlotSize, arena.Capacity)
	},
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "t", 0, "Number of worker goroutines (default: CPU cores)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Give up after this long")
	rootCmd.PersistentFlags().StringVar(&config, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Log file path for events")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	for _, c := range []*cobra.Command{sumCmd, verifyCmd, benchCmd} {
		c.Flags().StringP("key", "k", "", "32-byte key as hex (default key when empty)")
	}
	for _, c := range []*cobra.Command{sumCmd, benchCmd, serveCmd} {
		c.Flags().IntP("width", "w", 0, "Digest width in bits: 64, 128 or 256")
	}

	sumCmd.Flags().Int("chunk", digester.DefaultChunkSize, "Read size in bytes")
	sumCmd.Flags().Bool("json", false, "Print results as JSON lines")

	verifyCmd.Flags().StringP("algorithm", "a", "auto", "Algorithm (auto-detect by default)")

	benchCmd.Flags().IntSlice("sizes", bench.DefaultSizes, "Input sizes in bytes")
	benchCmd.Flags().StringSlice("algorithms", referenceAlgorithms(), "Reference algorithms to compare against")
	benchCmd.Flags().Int("budget", 1000000, "Approximate bytes hashed per measurement")

	serveCmd.Flags().String("addr", ":8080", "Server address (host:port)")
	serveCmd.Flags().Int64("max-body", web.DefaultMaxBody, "Largest accepted request body in bytes")

	rootCmd.AddCommand(sumCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(arenaCmd)

	viper.SetEnvPrefix("HIGHWAYHASHER")
	viper.AutomaticEnv()
	viper.SetDefault("workers", runtime.NumCPU())
	viper.SetDefault("width", int(highway.Width64))
	viper.SetDefault("key", "")
	viper.SetDefault("addr", ":8080")
}

func newLogger(verbose bool) log.Logger {
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	l = log.With(l, "ts", log.DefaultTimestampUTC)
	if verbose {
		return level.NewFilter(l, level.AllowDebug())
	}
	return level.NewFilter(l, level.AllowInfo())
}

func referenceAlgorithms() []string {
	var out []string
	for _, name := range hashes.List() {
		if !hashes.IsHighway(name) {
			out = append(out, name)
		}
	}
	return out
}

// flagOrConfig returns the flag value when it was set on the command line and
// the viper value (config file, HIGHWAYHASHER_* env, default) otherwise.
func flagOrConfig(cmd *cobra.Command, name string) string {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		return f.Value.String()
	}
	return viper.GetString(name)
}

func keyFrom(cmd *cobra.Command) (highway.Key, error) {
	k, err := highway.ParseKey(flagOrConfig(cmd, "key"))
	return k, errors.Wrap(err, "--key")
}

func widthFrom(cmd *cobra.Command) (highway.Width, error) {
	w, err := highway.ParseWidth(flagOrConfig(cmd, "width"))
	return w, errors.Wrap(err, "--width")
}

func numWorkers() int {
	n := viper.GetInt("workers")
	if workers > 0 {
		n = workers
	}
	return n
}

// signalContext is canceled on SIGINT/SIGTERM and after --timeout.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() { cancel(); stop() }
}

type sumLine struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Digest string `json:"digest"`
	Bytes  uint64 `json:"bytes"`
}

func runSum(cmd *cobra.Command, args []string) error {
	key, err := keyFrom(cmd)
	if err != nil {
		return err
	}
	width, err := widthFrom(cmd)
	if err != nil {
		return err
	}
	chunk, _ := cmd.Flags().GetInt("chunk")
	asJSON, _ := cmd.Flags().GetBool("json")

	d := digester.New(digester.Options{
		Workers:   numWorkers(),
		LogPath:   viper.GetString("log"),
		ChunkSize: chunk,
		Key:       key,
		Width:     width,
		Event: func(event string, kv map[string]any) {
			if verbose {
				keyvals := []any{"msg", event}
				for k, v := range kv {
					keyvals = append(keyvals, k, v)
				}
				level.Debug(logger).Log(keyvals...)
			}
		},
	})
	defer d.Close()

	ctx, cancel := signalContext()
	defer cancel()

	var results []digester.Result
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		res, err := d.SumReader(ctx, "-", cmd.InOrStdin())
		if err != nil {
			return errors.Wrap(err, "stdin")
		}
		results = append(results, res)
	} else {
		results, err = d.SumFiles(ctx, args)
		if err != nil {
			return err
		}
	}

	failed := 0
	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Err != nil {
			failed++
			level.Error(logger).Log("msg", "hash failed", "file", r.Name, "err", r.Err)
			continue
		}
		if asJSON {
			line, err := jsoniter.Marshal(sumLine{Name: r.Name, Width: int(width), Digest: r.Digest, Bytes: r.Bytes})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(line))
			continue
		}
		fmt.Fprintf(out, "%s  %s\n", r.Digest, r.Name)
	}
	if failed > 0 {
		return errors.Errorf("%d of %d inputs failed", failed, len(results))
	}
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	target := strings.TrimSpace(args[0])
	algo, _ := cmd.Flags().GetString("algorithm")
	if algo == "auto" {
		detected := hashes.Detect(target)
		if len(detected) == 0 {
			return errors.Errorf("could not detect algorithm for digest: %s", target)
		}
		algo = detected[0]
		level.Debug(logger).Log("msg", "detected algorithm", "algo", algo)
	}
	if ok, msg := hashes.Validate(algo, target); !ok {
		return errors.Errorf("invalid input: %s (algo=%s)", msg, algo)
	}
	h, err := hashes.Get(algo)
	if err != nil {
		return err
	}
	key, err := keyFrom(cmd)
	if err != nil {
		return err
	}
	var p hashes.Params
	if key != highway.DefaultKey {
		p.Key = key.Bytes()
	}

	in := cmd.InOrStdin()
	name := "-"
	if len(args) == 2 && args[1] != "-" {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		in, name = f, args[1]
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return errors.Wrapf(err, "read %s", name)
	}
	ok, err := h.Compare(target, data, p)
	if err != nil {
		return err
	}
	if !ok {
		sum, _ := h.Hash(data, p)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: FAILED (%s, got %s)\n", name, algo, hex.EncodeToString(sum))
		return errors.Errorf("%s digest mismatch", algo)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%s)\n", name, algo)
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	key, err := keyFrom(cmd)
	if err != nil {
		return err
	}
	width, err := widthFrom(cmd)
	if err != nil {
		return err
	}
	sizes, _ := cmd.Flags().GetIntSlice("sizes")
	algos, _ := cmd.Flags().GetStringSlice("algorithms")
	budget, _ := cmd.Flags().GetInt("budget")

	var keyBuf []byte
	if key != highway.DefaultKey {
		keyBuf = key.Bytes()
	}

	ctx, cancel := signalContext()
	defer cancel()

	ms, err := bench.Run(ctx, bench.Options{
		Sizes:      sizes,
		Algorithms: algos,
		Key:        keyBuf,
		Width:      width,
		Budget:     budget,
	})
	bench.Render(cmd.OutOrStdout(), ms)
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := flagOrConfig(cmd, "addr")
	maxBody, _ := cmd.Flags().GetInt64("max-body")
	width, err := widthFrom(cmd)
	if err != nil {
		return err
	}

	server := web.NewServer(logger, web.Options{MaxBody: maxBody, Width: width})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		level.Info(logger).Log("msg", "shutting down web server")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(sctx); err != nil {
			level.Error(logger).Log("msg", "shutdown", "err", err)
		}
	}()

	return server.Start(addr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
