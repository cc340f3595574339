package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

const (
	defaultServer  = "http://127.0.0.1:8420"
	defaultTimeout = 20 * time.Second
)

// options holds the global flags.
type options struct {
	server  string
	timeout time.Duration
	out     io.Writer
}

func (o *options) client() (*client, error) {
	return newClient(o.server, o.timeout)
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{out: out}

	server := os.Getenv("SKYLINK_SERVER")
	if server == "" {
		server = defaultServer
	}

	root := &cobra.Command{
		Use:           "skylinkctl",
		Short:         "Operate a running skylink launch monitor service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.server, "server", "s", server, "skylink API base URL (env SKYLINK_SERVER)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "request timeout")

	root.AddCommand(
		getCmd(opts, "status", "Show connection, arm, mode and handedness state", "/status"),
		getCmd(opts, "health", "Show service and dependency health", "/health"),
		getCmd(opts, "metrics", "Show runtime and link metrics", "/metrics"),
		newModeCmd(opts),
		newHandednessCmd(opts),
		postCmd(opts, "ready", "Arm the device for the next shot", "/ready"),
		newShotCmd(opts),
		newLinkCmd(opts),
		newClassificationsCmd(opts),
		newEventsCmd(opts),
	)
	return root
}

// getCmd builds a command that prints the JSON body of a GET.
func getCmd(opts *options, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.call(cmd.Context(), http.MethodGet, path, nil)
		},
	}
}

// postCmd builds a command that POSTs with no body.
func postCmd(opts *options, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.call(cmd.Context(), http.MethodPost, path, nil)
		},
	}
}

func newModeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "mode [normal|putting]",
		Short:     "Show or set the shot mode",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"normal", "putting"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return opts.call(cmd.Context(), http.MethodGet, "/mode", nil)
			}
			return opts.call(cmd.Context(), http.MethodPut, "/mode", map[string]string{"mode": args[0]})
		},
	}
}

func newHandednessCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "handedness [left|right|toggle]",
		Short:     "Show, set or toggle the player handedness",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"left", "right", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 0:
				return opts.call(cmd.Context(), http.MethodGet, "/handedness", nil)
			case args[0] == "toggle":
				return opts.call(cmd.Context(), http.MethodPost, "/handedness/toggle", nil)
			default:
				return opts.call(cmd.Context(), http.MethodPut, "/handedness", map[string]string{"handedness": args[0]})
			}
		},
	}
}

func newShotCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shot",
		Short: "Inspect or replay the last accepted shot",
	}
	cmd.AddCommand(
		getCmd(opts, "last", "Show the last accepted shot", "/shots/last"),
		postCmd(opts, "replay", "Publish the last accepted shot again", "/shots/last/replay"),
	)
	return cmd
}

func newLinkCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Device link maintenance",
	}
	cmd.AddCommand(
		postCmd(opts, "disconnect", "Pause the device link without resuming", "/link/disconnect"),
		postCmd(opts, "refresh", "Pause and resume the device link", "/link/refresh"),
		postCmd(opts, "reset", "Soft-reset the device network", "/link/reset"),
	)
	return cmd
}

func newClassificationsCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "classifications",
		Short: "List recent shot classification scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/diagnostics/classifications"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}
			return opts.call(cmd.Context(), http.MethodGet, path, nil)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of entries (server default when 0)")
	return cmd
}

func newEventsCmd(opts *options) *cobra.Command {
	var events []string
	var count int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream bus events over WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.streamEvents(cmd.Context(), events, count)
		},
	}
	cmd.Flags().StringSliceVarP(&events, "event", "e", []string{"*"}, "event kinds to subscribe to")
	cmd.Flags().IntVar(&count, "count", 0, "exit after this many events (0 streams until interrupted)")
	return cmd
}

// call performs one request and pretty-prints any JSON body.
func (o *options) call(ctx context.Context, method, path string, body any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := o.client()
	if err != nil {
		return err
	}
	data, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		fmt.Fprintln(o.out, "ok")
		return nil
	}
	return o.printJSON(data)
}

func (o *options) printJSON(data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		_, werr := o.out.Write(data)
		return werr
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(o.out)
	return err
}

type wsFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (o *options) streamEvents(ctx context.Context, events []string, count int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c, err := o.client()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: o.timeout}
	conn, _, err := dialer.DialContext(ctx, c.wsURL("/ws"), nil)
	if err != nil {
		return fmt.Errorf("connecting to event stream: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if err := conn.WriteJSON(map[string]any{
		"type":    "subscribe",
		"id":      "skylinkctl",
		"payload": map[string][]string{"channels": events},
	}); err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}

	seen := 0
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading event stream: %w", err)
		}
		switch frame.Type {
		case "event":
			fmt.Fprintf(o.out, "%s %s\n", frame.Event, frame.Payload)
			seen++
			if count > 0 && seen >= count {
				return nil
			}
		case "error":
			return fmt.Errorf("event stream error: %s", frame.Payload)
		}
	}
}
