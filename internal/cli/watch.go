package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/Hestia/internal/mq"
)

// NewWatchCmd создаёт команду наблюдения за событиями runs через RabbitMQ.
// Подписывается эфемерной очередью на hestia.runs и печатает события
// по мере поступления. Единственная команда CLI, требующая доступа к MQ.
func NewWatchCmd(outputFn func() *Output) *cobra.Command {
	var mqURL string
	var runID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream run lifecycle events from RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			conn, err := mq.NewConnection(mqURL, logger)
			if err != nil {
				return fmt.Errorf("connect to RabbitMQ: %w", err)
			}
			defer conn.Close()

			consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
				Bind: mq.RoutingKeyAllRuns,
				Handler: func(_ context.Context, msg *mq.Message) error {
					printEvent(msg, runID)
					return nil
				},
			})

			out.Success("Watching run events (Ctrl+C to stop)...")

			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mqURL, "mq-url", mq.DefaultURL(), "RabbitMQ URL")
	cmd.Flags().StringVar(&runID, "run-id", "", "Only show events for this run")

	return cmd
}

// printEvent печатает одно событие, фильтруя по run ID при необходимости.
func printEvent(msg *mq.Message, runID string) {
	if runID != "" && msg.Payload.RunID.String() != runID {
		return
	}

	line := fmt.Sprintf("%s  %-22s  run=%s  status=%s",
		msg.Timestamp.Format("15:04:05"), msg.Type, msg.Payload.RunID, msg.Payload.Status)
	if msg.Payload.Error != "" {
		line += "  error=" + msg.Payload.Error
	}
	fmt.Println(line)
}
