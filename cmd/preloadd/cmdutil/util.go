// Package cmdutil provides shared utilities for preloadd client commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"

	"github.com/localix/preloadd/internal/cli/output"
	"github.com/localix/preloadd/internal/cli/prompt"
	"github.com/localix/preloadd/pkg/api/auth"
	"github.com/localix/preloadd/pkg/apiclient"
	"github.com/localix/preloadd/pkg/config"
)

// TokenEnv holds a bearer token used when --token is not given.
const TokenEnv = "PRELOADD_TOKEN"

// cliSubject is the subject of tokens minted from the local config.
const cliSubject = "preloadd-cli"

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigFile string
	ServerURL  string
	Token      string
	Output     string
	NoColor    bool
}

// GetClient returns an API client for the daemon.
//
// The server URL comes from --server, otherwise from the API port in the
// configuration file. The token comes from --token, then PRELOADD_TOKEN,
// and is otherwise minted with the admin role from the configured JWT
// secret, so a local operator with read access to the config needs no login.
func GetClient() (*apiclient.Client, error) {
	url := Flags.ServerURL
	token := Flags.Token
	if token == "" {
		token = os.Getenv(TokenEnv)
	}
	if url != "" && token != "" {
		return apiclient.New(url).WithToken(token), nil
	}

	cfg, err := config.Load(Flags.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if url == "" {
		url = fmt.Sprintf("http://localhost:%d", cfg.API.Port)
	}
	if token == "" && cfg.API.JWT.Secret != "" {
		token, err = mintToken(cfg)
		if err != nil {
			return nil, err
		}
	}

	return apiclient.New(url).WithToken(token), nil
}

func mintToken(cfg *config.Config) (string, error) {
	svc, err := auth.NewJWTService(cfg.API.JWT.Secret, cfg.API.JWT.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("api.jwt: %w", err)
	}
	token, _, err := svc.GenerateToken(cliSubject, auth.RoleAdmin)
	if err != nil {
		return "", fmt.Errorf("failed to mint API token: %w", err)
	}
	return token, nil
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// Printer returns a printer for stdout honoring --output and --no-color.
func Printer() (*output.Printer, error) {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return nil, err
	}
	color := !Flags.NoColor && output.ColorSupported(os.Stdout)
	return output.NewPrinter(os.Stdout, format, color), nil
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses the tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintResourceWithSuccess prints data for JSON/YAML, or a success message
// for table format.
func PrintResourceWithSuccess(w io.Writer, data any, successMsg string) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		PrintSuccess(successMsg)
		return nil
	}
}

// PrintResource prints a resource in the specified format.
// For table format, it uses the provided tableRenderer. For JSON/YAML, it outputs the resource.
func PrintResource(w io.Writer, data any, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	printer, err := Printer()
	if err != nil || printer.Format() != output.FormatTable {
		return
	}
	printer.Success(msg)
}

// RunWithConfirmation prompts for confirmation (unless force is true) and
// runs fn, printing successMsg afterwards.
func RunWithConfirmation(label string, force bool, fn func() error, successMsg string) error {
	confirmed, err := prompt.ConfirmWithForce(label, force)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := fn(); err != nil {
		return err
	}

	PrintSuccess(successMsg)
	return nil
}

// EmptyOr returns value, or fallback when value is empty.
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// BoolToYesNo renders a boolean for table cells.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
