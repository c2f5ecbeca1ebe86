// Command scanwatch tails the session events of a running `scan -ui web`.
// With -cancel or -trigger it sends that command to the session and exits.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-barcode/internal/httpc"
	"github.com/teslashibe/go-barcode/pkg/barcode"
	"github.com/teslashibe/go-barcode/pkg/web"
)

// event mirrors web.Event with the session kept raw.
type event struct {
	Type    string          `json:"type"`
	Time    time.Time       `json:"time"`
	State   string          `json:"state"`
	Session json.RawMessage `json:"session"`
	Result  *barcode.Result `json:"result"`
	Error   string          `json:"error"`
}

func main() {
	addr := flag.String("addr", "localhost:8080", "Scanner web presenter address")
	once := flag.Bool("once", false, "Exit after the first result event")
	verbose := flag.Bool("v", false, "Print session snapshots")
	cancelScan := flag.Bool("cancel", false, "Cancel the active scan and exit")
	trigger := flag.Bool("trigger", false, "Arm the manual trigger and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api := httpc.New("http://"+*addr, 0)
	switch {
	case *cancelScan:
		exitOn(api.PostJSON(ctx, "/api/session/cancel", nil, nil))
		return
	case *trigger:
		exitOn(api.PostJSON(ctx, "/api/session/trigger", web.TriggerRequest{}, nil))
		return
	}

	var info map[string]any
	if err := api.GetJSON(ctx, "/api/session", &info); err == nil {
		fmt.Printf("active session %v\n", info["id"])
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/events"}
	for {
		done, err := watch(ctx, u.String(), *once, *verbose)
		if done || ctx.Err() != nil {
			return
		}
		fmt.Fprintf(os.Stderr, "⚠️  %v, reconnecting...\n", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

// watch prints events until the connection drops. done is true when once
// is set and a result arrived.
func watch(ctx context.Context, wsURL string, once, verbose bool) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	ws, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return false, err
	}
	defer ws.Close()
	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	fmt.Fprintf(os.Stderr, "connected to %s\n", wsURL)
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			return false, err
		}
		var ev event
		if err := json.Unmarshal(msg, &ev); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  bad event: %v\n", err)
			continue
		}
		ts := ev.Time.Format("15:04:05.000")

		switch ev.Type {
		case web.EventState:
			fmt.Printf("%s state    %s\n", ts, ev.State)
		case web.EventResult:
			if ev.Error != "" {
				fmt.Printf("%s result   error: %s\n", ts, ev.Error)
			} else if ev.Result != nil {
				fmt.Printf("%s result   %s %q\n", ts, ev.Result.Format, ev.Result.Text)
			}
			if once {
				return true, nil
			}
		case web.EventSession:
			if verbose {
				fmt.Printf("%s session  %s\n", ts, ev.Session)
			}
		default:
			fmt.Printf("%s %s\n", ts, ev.Type)
		}
	}
}
