package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	hamq "github.com/buybrain/HAmq"
	"github.com/buybrain/HAmq/health"
)

var (
	// Version information
	version   = "dev"
	gitCommit = "unknown"
)

// cliOptions are the global flags
type cliOptions struct {
	envPrefix  string
	verbose    bool
	healthAddr string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "hamq",
		Short: "Publish and consume through a self-healing AMQP connection",
		Long: `hamq talks to a RabbitMQ broker through the HAmq resilience layer.
Connection settings come from the environment (AMQP_HOST, AMQP_PORT, AMQP_USER,
AMQP_PASS, AMQP_VHOST). Operations retry until the broker is reachable and
consumers survive broker restarts.`,
		Version:      fmt.Sprintf("%s (commit: %s)", version, gitCommit),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.envPrefix, "env-prefix", hamq.DefaultEnvPrefix, "Prefix of the connection environment variables")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.healthAddr, "health-addr", "", "Serve channel health as JSON on this address, e.g. :8081")

	rootCmd.AddCommand(
		newPublishCommand(opts),
		newConsumeCommand(opts),
		newRelayCommand(opts),
	)
	return rootCmd
}

func newPublishCommand(opts *cliOptions) *cobra.Command {
	var (
		exchange    string
		transient   bool
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "publish <routing-key> <message>",
		Short: "Publish one message",
		Long:  "Publish one message. Without --exchange the routing key names the target queue.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ch, err := openChannel(opts)
			if err != nil {
				return err
			}

			spec := hamq.NewPublish(exchange, args[0], []byte(args[1])).
				WithDurable(!transient).
				WithContentType(contentType)
			if err := ch.Publish(spec); err != nil {
				return fmt.Errorf("failed to publish: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "published %d bytes to %q/%q\n", len(args[1]), exchange, args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&exchange, "exchange", "e", "", "Exchange to publish to")
	cmd.Flags().BoolVar(&transient, "transient", false, "Publish with transient delivery mode")
	cmd.Flags().StringVar(&contentType, "content-type", "text/plain", "Content type of the message")
	return cmd
}

func newConsumeCommand(opts *cliOptions) *cobra.Command {
	var prefetch int

	cmd := &cobra.Command{
		Use:   "consume <queue>",
		Short: "Print and acknowledge messages from a queue until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queue := args[0]
			_, ch, err := openChannel(opts)
			if err != nil {
				return err
			}

			if err := ch.QueueDeclare(hamq.NewQueue(queue)); err != nil {
				return fmt.Errorf("failed to declare queue: %w", err)
			}
			if err := ch.Prefetch(hamq.NewPrefetch(prefetch)); err != nil {
				return fmt.Errorf("failed to set prefetch: %w", err)
			}

			out := cmd.OutOrStdout()
			tag, err := ch.Consume(hamq.NewConsume(queue, func(d *hamq.Delivery) error {
				fmt.Fprintf(out, "[%d] %s\n", d.Envelope.DeliveryTag, d.BodyString())
				return d.Ack()
			}))
			if err != nil {
				return fmt.Errorf("failed to consume: %w", err)
			}

			slog.Info("consuming", "queue", queue, "consumerTag", tag)
			return serve(opts, ch)
		},
	}
	cmd.Flags().IntVarP(&prefetch, "prefetch", "p", 10, "Maximum unacknowledged deliveries")
	return cmd
}

func newRelayCommand(opts *cliOptions) *cobra.Command {
	var prefetch int

	cmd := &cobra.Command{
		Use:   "relay <source-queue> <target-queue>",
		Short: "Move messages from one queue to another",
		Long:  "Consume from the source queue, republish each message to the target queue, then acknowledge it.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, target := args[0], args[1]
			_, ch, err := openChannel(opts)
			if err != nil {
				return err
			}

			for _, queue := range []string{source, target} {
				if err := ch.QueueDeclare(hamq.NewQueue(queue)); err != nil {
					return fmt.Errorf("failed to declare queue %s: %w", queue, err)
				}
			}
			if err := ch.Prefetch(hamq.NewPrefetch(prefetch)); err != nil {
				return fmt.Errorf("failed to set prefetch: %w", err)
			}

			_, err = ch.Consume(hamq.NewConsume(source, func(d *hamq.Delivery) error {
				spec := hamq.NewQueuePublish(target, d.Body).
					WithContentType(d.Properties.ContentType).
					WithHeaders(d.Properties.Headers)
				if err := ch.Publish(spec); err != nil {
					slog.Error("failed to relay message", "error", err, "deliveryTag", d.Envelope.DeliveryTag)
					return d.Nack()
				}
				return d.Ack()
			}))
			if err != nil {
				return fmt.Errorf("failed to consume: %w", err)
			}

			slog.Info("relaying", "from", source, "to", target)
			return serve(opts, ch)
		},
	}
	cmd.Flags().IntVarP(&prefetch, "prefetch", "p", 50, "Maximum unacknowledged deliveries")
	return cmd
}

func openChannel(opts *cliOptions) (*hamq.Connection, *hamq.Channel, error) {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := hamq.ConfigFromEnv(opts.envPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	conn, err := hamq.Dial(cfg, hamq.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection: %w", err)
	}
	return conn, conn.NewChannel(), nil
}

// serve blocks until SIGINT or SIGTERM, serving health if requested
func serve(opts *cliOptions, ch *hamq.Channel) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if opts.healthAddr != "" {
		registry := health.NewRegistry()
		registry.Register("main", ch)

		mux := http.NewServeMux()
		mux.Handle("/health", health.NewHandler(registry, 5*time.Second))
		server = &http.Server{Addr: opts.healthAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("health server stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	slog.Info("shutting down", "resets", ch.Resets())

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	return ch.Connection().Close()
}
