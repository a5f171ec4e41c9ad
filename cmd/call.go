package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"lmsgate/internal/cli"
	"lmsgate/internal/gateway"

	"github.com/spf13/cobra"
)

// Call flags
var (
	callData    string
	callHeaders []string
)

// callCmd sends one request through the gateway pipeline.
var callCmd = &cobra.Command{
	Use:   "call <METHOD> <path>",
	Short: "Send one request to the backend through the gateway",
	Long: `Send a request for /api/<path> through the same pipeline 'serve' uses:
rate limiting, session credential, response cache and forwarding.

The response body is written to stdout. The status line goes to stderr.

Examples:
  lmsgate call GET courses
  lmsgate call GET "courses?page=2"
  lmsgate call POST enrollments --data '{"courseId":"c1"}'
  lmsgate call PUT profile --data - < profile.json
  lmsgate call GET reports -H "Accept: text/csv"`,
	Args: cobra.ExactArgs(2),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringVarP(&callData, "data", "d", "", "Request body; '-' reads it from stdin")
	callCmd.Flags().StringArrayVarP(&callHeaders, "header", "H", nil, "Extra request header 'Name: value' (repeatable)")
}

func runCall(cmd *cobra.Command, args []string) error {
	method := strings.ToUpper(args[0])
	path := strings.TrimPrefix(strings.TrimPrefix(args[1], "/"), "api/")

	body, err := callBody(cmd)
	if err != nil {
		return err
	}

	req := gateway.NewRequest(method, path, body)
	for _, h := range callHeaders {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	services, err := loadServices()
	if err != nil {
		return err
	}
	defer services.Close()
	origin := services.Forwarder.Origin()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := services.Pipeline.Do(ctx, req)
	if err != nil {
		if detail := cli.DescribeConnectionError(err); detail != "" && commonFlags.Debug {
			fmt.Fprintln(cmd.ErrOrStderr(), detail)
		}
		return cli.Translate(err, origin, req.Endpoint())
	}

	if !commonFlags.Quiet {
		status := fmt.Sprintf("%s %s", cli.FormatStatus(resp.Status), http.StatusText(resp.Status))
		if resp.FromCache {
			status += " (cached)"
		}
		fmt.Fprintln(cmd.ErrOrStderr(), status)
	}
	writeBody(cmd.OutOrStdout(), resp.Body)

	switch {
	case resp.Status == http.StatusUnauthorized && services.Session.Current() == nil:
		return &cli.AuthRequiredError{Origin: origin}
	case resp.Status == http.StatusUnauthorized:
		return &cli.AuthExpiredError{Origin: origin}
	case !resp.Success():
		return fmt.Errorf("backend returned %d for %s %s", resp.Status, method, req.Endpoint())
	}
	return nil
}

func callBody(cmd *cobra.Command) ([]byte, error) {
	switch callData {
	case "":
		return nil, nil
	case "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read body from stdin: %w", err)
		}
		return b, nil
	default:
		return []byte(callData), nil
	}
}

// writeBody indents JSON bodies and writes anything else verbatim.
func writeBody(w io.Writer, body []byte) {
	if len(body) == 0 {
		return
	}
	var out bytes.Buffer
	if json.Valid(body) && json.Indent(&out, body, "", "  ") == nil {
		out.WriteByte('\n')
		_, _ = w.Write(out.Bytes())
		return
	}
	_, _ = w.Write(body)
	if body[len(body)-1] != '\n' {
		_, _ = io.WriteString(w, "\n")
	}
}
