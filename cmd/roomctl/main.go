// roomctl is a small ops tool for the signaling platform's management API:
// list active rooms or delete one that the agent left orphaned.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jurepetric/avatard/internal/config"
	"github.com/jurepetric/avatard/internal/room"
)

func main() {
	var (
		roomName = flag.String("room", "", "room name (required for delete)")
		timeout  = flag.Duration("timeout", 15*time.Second, "request timeout")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: roomctl [flags] <list|delete>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	client := room.NewManagementClient(cfg.ManagementURL, cfg.APIKey, cfg.APISecret)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch flag.Arg(0) {
	case "list":
		rooms, err := client.ListRooms(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "list rooms: %v\n", err)
			os.Exit(1)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSID\tPARTICIPANTS\tCREATED")
		for _, r := range rooms {
			created := ""
			if r.CreationTime > 0 {
				created = time.Unix(r.CreationTime, 0).UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Name, r.SID, r.NumParticipants, created)
		}
		w.Flush()

	case "delete":
		if *roomName == "" {
			fmt.Fprintln(os.Stderr, "delete requires -room")
			os.Exit(2)
		}
		if err := client.DeleteRoom(ctx, *roomName); err != nil {
			fmt.Fprintf(os.Stderr, "delete room: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("room %s deleted\n", *roomName)

	default:
		flag.Usage()
		os.Exit(2)
	}
}
