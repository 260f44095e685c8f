// stagepass is the loyalty kiosk CLI — a redemption client and kiosk server
// for the venue loyalty backend.
//
// Usage:
//
//	stagepass parse <code-or-url>     Classify a payload without touching the network
//	stagepass redeem <code>           Run one interactive redemption attempt
//	stagepass launch <param-or-url>   Run the launch-time payload dispatch once
//	stagepass lookup <code>           Ask the backend what a bare code is
//	stagepass scan <ticket>           Consume a ticket (staff token required)
//	stagepass claim <visits|purchases> Claim a milestone reward
//	stagepass kiosk                   Serve the kiosk HTTP surface
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/karaobingo/stagepass/internal/config"
	"github.com/karaobingo/stagepass/internal/dispatch"
	"github.com/karaobingo/stagepass/internal/flow"
	"github.com/karaobingo/stagepass/internal/kiosk"
	"github.com/karaobingo/stagepass/internal/kit"
	"github.com/karaobingo/stagepass/internal/notify"
	"github.com/karaobingo/stagepass/internal/payload"
	"github.com/karaobingo/stagepass/internal/redeem"
	"github.com/karaobingo/stagepass/internal/session"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cmd, args, configPath := parseArgs()

	if cmd == "" || cmd == "help" || cmd == "--help" || cmd == "-h" {
		printUsage()
		if cmd == "" {
			os.Exit(1)
		}
		return
	}

	var err error
	switch cmd {
	case "version", "--version", "-v":
		fmt.Printf("stagepass version %s\n", version)
		return
	case "parse":
		err = cmdParse(args)
	case "redeem":
		err = cmdRedeem(configPath, args)
	case "launch":
		err = cmdLaunch(configPath, args)
	case "lookup":
		err = cmdLookup(configPath, args)
	case "scan":
		err = cmdScan(configPath, args)
	case "claim":
		err = cmdClaim(configPath, args)
	case "kiosk":
		err = cmdKiosk(configPath)
	default:
		fmt.Fprintf(os.Stderr, "stagepass: unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "stagepass: %v\n", err)
		os.Exit(1)
	}
}

// parseArgs extracts the subcommand, positional args, and --config path from os.Args.
func parseArgs() (command string, args []string, configPath string) {
	if p := os.Getenv("STAGEPASS_CONFIG"); p != "" {
		configPath = p
	}

	raw := os.Args[1:]
	var filtered []string
	for i := 0; i < len(raw); i++ {
		if raw[i] == "--config" && i+1 < len(raw) {
			configPath = raw[i+1]
			i++
			continue
		}
		filtered = append(filtered, raw[i])
	}

	if len(filtered) == 0 {
		return "", nil, configPath
	}
	return filtered[0], filtered[1:], configPath
}

func printUsage() {
	fmt.Printf(`stagepass — loyalty kiosk CLI %s

Usage:
  stagepass [--config <path>] <command> [arguments]

Commands:
  parse <code-or-url>      Classify a payload without touching the network
  redeem <code>            Run one interactive redemption attempt
  launch <param-or-url>    Run the launch-time payload dispatch once
  lookup <code>            Ask the backend what a bare code is
  scan <ticket>            Consume a ticket (staff token required)
  claim <visits|purchases> Claim a milestone reward
  kiosk                    Serve the kiosk HTTP surface
  version                  Print the stagepass version

Options:
  --config <path>   Path to config (default: ./stagepass.yaml)

Environment:
  STAGEPASS_CONFIG   Override default config path
  STAGEPASS_*        Override individual config fields
`, version)
}

// newClient wires a redemption client from the config: token source against
// the auth endpoint, session carrying any seed token.
func newClient(configPath string) (*redeem.Client, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	source := session.NewHTTPSource(cfg.AuthURL, cfg.UserID)
	sess := session.New(cfg.UserID, cfg.Token, source)
	return redeem.New(cfg.APIURL, sess, nil), cfg, nil
}

// ---------------------------------------------------------------------------
// stagepass parse
// ---------------------------------------------------------------------------

func cmdParse(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stagepass parse <code-or-url>")
	}

	p := payload.Parse(payload.Normalize(args[0]))
	if p == nil {
		return fmt.Errorf("unrecognized code format")
	}

	fmt.Printf("  kind      %s\n", p.Kind)
	fmt.Printf("  value     %s\n", p.Value)
	fmt.Printf("  ambiguous %t\n", p.Ambiguous)
	fmt.Printf("  marker    %s\n", p.Marker())
	return nil
}

// ---------------------------------------------------------------------------
// stagepass redeem
// ---------------------------------------------------------------------------

// consoleSurface prints flow effects to stdout.
type consoleSurface struct{}

func (consoleSurface) CloseEntry() {}

func (consoleSurface) Celebrate() { fmt.Println("  *** reward earned ***") }

func (consoleSurface) Success(message string) { fmt.Printf("  OK    %s\n", message) }

func (consoleSurface) Failure(message string) { fmt.Printf("  FAIL  %s\n", message) }

func (consoleSurface) InvalidateProfile() {}

func cmdRedeem(configPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stagepass redeem <code>")
	}

	client, _, err := newClient(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	surface := consoleSurface{}
	f := flow.New(client, surface, surface, nil,
		flow.WithLookup(),
		flow.WithToastDelay(0),
	)

	_, err = f.Scan(ctx, args[0])
	if err != nil {
		return fmt.Errorf("redeem: %w", err)
	}

	if f.State() != flow.StateConfirming {
		return nil
	}

	// Registration codes wait for an explicit yes before submitting.
	preview := f.Preview()
	fmt.Printf("Register for %q (+%d coins)? [y/N] ", preview.Event.Title, preview.CoinsReward)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() || !strings.EqualFold(strings.TrimSpace(scanner.Text()), "y") {
		f.Dismiss()
		fmt.Println("  cancelled")
		return nil
	}

	if _, err := f.Confirm(ctx); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// stagepass launch
// ---------------------------------------------------------------------------

func cmdLaunch(configPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stagepass launch <param-or-url>")
	}

	client, _, err := newClient(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	in := dispatch.Input{StartParam: args[0]}
	if strings.Contains(args[0], "://") {
		in = dispatch.Input{URL: args[0]}
	}

	surface := consoleSurface{}
	d := dispatch.New(client, dispatch.NewSessionMarkers(), surface, surface, nil)
	outcome := d.Run(ctx, in)
	fmt.Printf("  outcome %s\n", outcome)
	return nil
}

// ---------------------------------------------------------------------------
// stagepass lookup / scan / claim
// ---------------------------------------------------------------------------

func cmdLookup(configPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stagepass lookup <code>")
	}

	client, _, err := newClient(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	kind, err := client.LookupCodeType(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("  %s\n", kind)
	return nil
}

func cmdScan(configPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stagepass scan <ticket>")
	}

	client, _, err := newClient(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scan, err := client.ScanTicket(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("  participant %s (user %d)\n", scan.Participant.Name, scan.Participant.UserID)
	fmt.Printf("  hand over   %s\n", scan.Item.Title)
	return nil
}

func cmdClaim(configPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stagepass claim <visits|purchases>")
	}

	client, _, err := newClient(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var claim *redeem.Claim
	switch args[0] {
	case "visits":
		claim, err = client.ClaimVisitReward(ctx)
	case "purchases":
		claim, err = client.ClaimPurchaseReward(ctx)
	default:
		return fmt.Errorf("unknown claim %q (expected visits or purchases)", args[0])
	}
	if err != nil {
		return err
	}

	fmt.Printf("  +%d coins", claim.CoinsAdded)
	if claim.NewBalance > 0 {
		fmt.Printf(" (balance %d)", claim.NewBalance)
	}
	fmt.Println()
	return nil
}

// ---------------------------------------------------------------------------
// stagepass kiosk
// ---------------------------------------------------------------------------

func cmdKiosk(configPath string) error {
	client, cfg, err := newClient(configPath)
	if err != nil {
		return err
	}

	server := kit.NewServer(&kit.Config{
		Port:    cfg.KioskPort,
		Verbose: cfg.Verbose,
		Name:    "stagepass-kiosk",
	})
	notifier := notify.New(server.Logger)
	kiosk.NewHandler(client, server, notifier, cfg.UserID).Routes(server.Router)

	server.Logger.Info("stagepass kiosk ready", "port", cfg.KioskPort, "user", cfg.UserID, "staff", cfg.Staff)
	return server.Serve()
}
