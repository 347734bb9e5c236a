package cmd

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/oklog/run"
	"github.com/spf13/cobra"

	cmdcommon "boscoin.io/pollwatch/cmd/pollwatch/common"
	"boscoin.io/pollwatch/lib/api"
	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/common/observer"
	"boscoin.io/pollwatch/lib/metrics"
	"boscoin.io/pollwatch/lib/refresh"
)

const ntpSyncInterval = 10 * time.Minute

var (
	flagBind      string = common.GetENVValue("POLLWATCH_BIND", "")
	flagRateLimit string = common.GetENVValue("POLLWATCH_RATE_LIMIT", "")
	flagQuiet     bool   = common.GetENVValue("POLLWATCH_QUIET", "0") == "1"
)

var watchCmd *cobra.Command

func init() {
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Refresh polls periodically and print every refresh",
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, args []string) {
			if flagName, err := parseFlags(); err != nil {
				cmdcommon.PrintFlagsError(c, flagName, err)
			}

			var middlewares []mux.MiddlewareFunc
			if len(flagRateLimit) > 0 {
				limit, err := api.NewRateLimitMiddleware(flagRateLimit)
				if err != nil {
					cmdcommon.PrintFlagsError(c, "--rate-limit", err)
				}
				middlewares = append(middlewares, limit)
			}

			if err := runWatch(middlewares...); err != nil {
				log.Crit("watch stopped", "error", err)
				os.Exit(1)
			}
		},
	}

	watchCmd.Flags().StringVar(&flagBind, "bind", flagBind, "serve the http view on this address, eg. 'localhost:8080'; empty disables it")
	watchCmd.Flags().StringVar(&flagRateLimit, "rate-limit", flagRateLimit, "limit http requests per client, eg. '100-M'; empty disables it")
	watchCmd.Flags().BoolVar(&flagQuiet, "quiet", flagQuiet, "do not print refreshes")

	rootCmd.AddCommand(watchCmd)
}

// consoleRenderer prints every published view. Views are published from
// both the ticker and the trigger goroutines.
type consoleRenderer struct {
	sync.Mutex

	w      io.Writer
	format string
}

func (r *consoleRenderer) callback(args ...interface{}) {
	if len(args) < 1 {
		return
	}
	view, ok := args[0].(*refresh.View)
	if !ok {
		return
	}

	r.Lock()
	defer r.Unlock()

	if err := renderView(r.w, view, r.format); err != nil {
		log.Error("failed to render view", "sequence", view.Sequence, "error", err)
	}
}

func runWatch(middlewares ...mux.MiddlewareFunc) error {
	metrics.InitPrometheusMetrics()
	metrics.SetVersion()

	clock := newClock()

	c, err := newClient(context.Background(), clock, false)
	if err != nil {
		return err
	}
	defer c.Close()

	// a long running watcher reconnects when the node drops away
	c.refresher.SetRedialer(c.redial)

	log.Info("starting watcher", "watcher", c.refresher.ID(), "contract", config.ContractAddress, "voter", voter)

	if !flagQuiet {
		renderer := &consoleRenderer{w: os.Stdout, format: flagFormat}
		event := observer.All(observer.EventRefresh).String()
		onRefresh := renderer.callback
		observer.RefreshObserver.On(event, onRefresh)
		defer observer.RefreshObserver.Off(event, onRefresh)
	}

	var g run.Group
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return c.refresher.Run(ctx)
		}, func(error) {
			cancel()
		})
	}

	if len(flagBind) > 0 {
		server, err := api.NewServer(flagBind, api.NewHandlerAPI(c.refresher, config), middlewares...)
		if err != nil {
			return err
		}
		g.Add(func() error {
			return server.Start()
		}, func(error) {
			server.Stop()
		})
	}

	if ntpClock, ok := clock.(*common.NTPClock); ok {
		stop := make(chan struct{})
		g.Add(func() error {
			ticker := time.NewTicker(ntpSyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					ntpClock.Sync()
				case <-stop:
					return nil
				}
			}
		}, func(error) {
			close(stop)
		})
	}

	{
		cancel := make(chan struct{})
		g.Add(func() error {
			return cmdcommon.Interrupt(cancel)
		}, func(error) {
			close(cancel)
		})
	}

	if err := g.Run(); err != nil {
		log.Info("watcher stopped", "reason", err)
	}

	return nil
}
