// cmd/shelfctl/main.go

// shelfctl is the operator front end for the shelfmark service: it looks
// up titles and drives purchase/return transactions, including the
// confirmation step the coordinator requires before mutating anything.
package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shelfmark/internal/circulation"
	"shelfmark/internal/clients"
)

var (
	serverURL string
	timeout   time.Duration

	schoolID string
	class    string
	barcode  string
	yes      bool
)

func main() {
	root := &cobra.Command{
		Use:           "shelfctl",
		Short:         "Operator CLI for the shelfmark inventory service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the shelfmark server")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(searchCmd(), transactionCmd("purchase"), transactionCmd("return"))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "shelfctl: %v\n", err)
		os.Exit(1)
	}
}

func newClient() *clients.Client {
	return clients.New(serverURL, &http.Client{Timeout: timeout})
}

func searchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find book titles by approximate match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(args[0])
			if query == "" {
				return fmt.Errorf("search query must not be empty")
			}

			results, err := newClient().Search(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("no matching titles")
				return nil
			}

			for _, res := range results {
				fmt.Printf("%s (match %d%%)\n", res.Title, res.Score)
				fmt.Printf("  total %d, available %d, checked out %d\n",
					res.TotalCopies, res.AvailableCopies, res.CheckedOutCopies)
				if len(res.AvailableBarcodes) > 0 {
					fmt.Printf("  available barcodes: %s\n", strings.Join(res.AvailableBarcodes, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "maximum number of ranked titles")
	return cmd
}

func transactionCmd(kind string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind,
		Short: fmt.Sprintf("Record a book %s for a student", kind),
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newClient()

			// Confirmation happens here, in the presentation layer. The
			// server treats an unconfirmed request as a declined no-op.
			if !yes {
				book, err := client.GetBook(cmd.Context(), barcode)
				if err != nil {
					return err
				}
				fmt.Printf("%s %q (%s) for student %s, class %s? [y/N] ", kind, book.Title, book.Barcode, schoolID, class)
				answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					fmt.Println("aborted")
					return nil
				}
			}

			req := circulation.Request{
				SchoolID:  schoolID,
				Class:     class,
				Barcode:   barcode,
				Confirmed: true,
			}

			op := client.Purchase
			if kind == "return" {
				op = client.Return
			}
			receipt, err := op(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Printf("%s %s: %q (%s) for %s (%s, class %s)\n",
				receipt.Kind, receipt.Status,
				receipt.Book.Title, receipt.Book.Barcode,
				receipt.Student.Name, receipt.Student.SchoolID, receipt.Student.Class)
			return nil
		},
	}
	cmd.Flags().StringVar(&schoolID, "school-id", "", "student school id")
	cmd.Flags().StringVar(&class, "class", "", "student class")
	cmd.Flags().StringVar(&barcode, "barcode", "", "book barcode")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm without prompting")
	cmd.MarkFlagRequired("school-id")
	cmd.MarkFlagRequired("class")
	cmd.MarkFlagRequired("barcode")
	return cmd
}
