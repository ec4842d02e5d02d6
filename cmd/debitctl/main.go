package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/merchflow/echeck-debit-gateway/internal/domain"
	"github.com/merchflow/echeck-debit-gateway/internal/handler"
	"github.com/merchflow/echeck-debit-gateway/internal/queue"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "debitctl",
		Short:   "debitctl - Operational helper for the echeck debit pipeline",
		Version: Version,
	}

	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(postCmd())
	rootCmd.AddCommand(healthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliLogger keeps queue internals quiet so command output stays readable.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [transaction-id]",
		Short: "Publish a debit request to the transactions topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brokers, _ := cmd.Flags().GetStringSlice("brokers")
			topic, _ := cmd.Flags().GetString("topic")

			producer, err := queue.NewProducer(brokers, cliLogger())
			if err != nil {
				return fmt.Errorf("failed to create producer: %w", err)
			}
			defer producer.Close()

			body, err := json.Marshal(map[string]interface{}{
				"transaction_id": args[0],
				"timestamp":      time.Now().UTC().Format(time.RFC3339),
			})
			if err != nil {
				return fmt.Errorf("failed to encode message: %w", err)
			}

			messageID := uuid.New().String()
			headers := map[string][]byte{"message-id": []byte(messageID)}

			if err := producer.PublishSync(topic, []byte(args[0]), headers, body); err != nil {
				return fmt.Errorf("failed to publish: %w", err)
			}

			fmt.Printf("Published %s to %s (message-id %s)\n", args[0], topic, messageID)
			return nil
		},
	}

	cmd.Flags().StringSlice("brokers", []string{"localhost:9092"}, "Kafka broker addresses")
	cmd.Flags().String("topic", "transactions", "Topic to publish to")

	return cmd
}

func monitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Print messages from a topic (defaults to the dead-letter topic)",
		RunE: func(cmd *cobra.Command, args []string) error {
			brokers, _ := cmd.Flags().GetStringSlice("brokers")
			topic, _ := cmd.Flags().GetString("topic")
			group, _ := cmd.Flags().GetString("group")

			consumer, err := queue.NewConsumer(brokers, group, cliLogger())
			if err != nil {
				return fmt.Errorf("failed to create consumer: %w", err)
			}
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Monitoring %s (ctrl-c to stop)\n", topic)

			err = consumer.Consume(ctx, topic, func(ctx context.Context, d *queue.Delivery) error {
				fmt.Printf("[%s/%d@%d] key=%s\n", d.Topic, d.Partition, d.Offset, string(d.Key))
				for name, value := range d.Headers {
					fmt.Printf("  %s: %s\n", name, string(value))
				}
				fmt.Printf("  %s\n", string(d.Value))
				return consumer.Commit(d)
			})
			if err != nil && err != context.Canceled {
				return fmt.Errorf("consume failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringSlice("brokers", []string{"localhost:9092"}, "Kafka broker addresses")
	cmd.Flags().String("topic", "transactions.dlq", "Topic to monitor")
	cmd.Flags().String("group", "debitctl-monitor", "Consumer group id")

	return cmd
}

func postCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post [transaction-id]",
		Short: "Submit a debit request to the API and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiURL, _ := cmd.Flags().GetString("api-url")
			routing, _ := cmd.Flags().GetString("routing-number")
			account, _ := cmd.Flags().GetString("account-number")
			secCode, _ := cmd.Flags().GetString("sec-code")
			accountType, _ := cmd.Flags().GetString("account-type")

			body, err := json.Marshal(handler.DebitRequest{
				TransactionID: args[0],
				RoutingNumber: routing,
				AccountNumber: account,
				SECCode:       secCode,
				AccountType:   accountType,
			})
			if err != nil {
				return fmt.Errorf("failed to encode request: %w", err)
			}

			resp, err := http.Post(apiURL+"/debit", "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			var result domain.DebitResult
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}

			fmt.Printf("HTTP %d\n", resp.StatusCode)
			fmt.Printf("  success:         %t\n", result.Success)
			fmt.Printf("  transaction_id:  %s\n", result.TransactionID)
			fmt.Printf("  request_id:      %s\n", result.RequestID)
			if result.Success {
				fmt.Printf("  response_data:   %s\n", result.ResponseData)
			} else {
				fmt.Printf("  error_message:   %s\n", result.ErrorMessage)
			}
			fmt.Printf("  processing_ms:   %.2f\n", result.ProcessingTimeMS)
			return nil
		},
	}

	cmd.Flags().String("api-url", "http://localhost:8080", "Debit API base URL")
	cmd.Flags().String("routing-number", "", "Override the default routing number")
	cmd.Flags().String("account-number", "", "Override the default account number")
	cmd.Flags().String("sec-code", "", "Override the default SEC code")
	cmd.Flags().String("account-type", "", "Override the default account type")

	return cmd
}

func healthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check API liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiURL, _ := cmd.Flags().GetString("api-url")

			resp, err := http.Get(apiURL + "/health")
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			fmt.Printf("HTTP %d %s\n", resp.StatusCode, bytes.TrimSpace(body))
			return nil
		},
	}

	cmd.Flags().String("api-url", "http://localhost:8080", "Debit API base URL")

	return cmd
}
