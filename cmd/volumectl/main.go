package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/audioctl/volumed/pkg/client"
)

var (
	socketPath = flag.String("socket", "/tmp/volumed.sock", "Unix socket path")
	command    = flag.String("cmd", "", "Command to send (e.g., 'STATUS', 'VOLUME:50')")
)

func main() {
	flag.Parse()

	if *socketPath == "" {
		fmt.Fprintf(os.Stderr, "Socket path is required\n")
		os.Exit(1)
	}

	// If no command specified, show interactive help
	if *command == "" {
		if len(flag.Args()) > 0 {
			*command = strings.Join(flag.Args(), " ")
		} else {
			showHelp()
			return
		}
	}

	// Create socket client
	client := client.NewSocketClient(*socketPath)

	// Send command
	response, err := client.SendCommand(*command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Print response
	fmt.Printf("%s\n", response.String())
}

func showHelp() {
	fmt.Println("volumectl - Volume Daemon Control Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [options] <command>\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -socket <path>    Unix socket path (default: /tmp/volumed.sock)")
	fmt.Println("  -cmd <command>    Command to send")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  STATUS                    Get daemon status")
	fmt.Println("  VOLUME                    Get current volume")
	fmt.Println("  VOLUME:<pct>              Set volume (0-100)")
	fmt.Println("  VOLUME:up[:step]          Step volume up")
	fmt.Println("  VOLUME:down[:step]        Step volume down")
	fmt.Println("  MUTE                      Get mute state")
	fmt.Println("  MUTE:on|off|toggle        Change mute state")
	fmt.Println("  DEVICE                    Get bound output device")
	fmt.Println("  HISTORY[:n]               Get recent change events")
	fmt.Println("  PING                      Test connection")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s STATUS\n", os.Args[0])
	fmt.Printf("  %s VOLUME:75\n", os.Args[0])
	fmt.Printf("  %s MUTE:toggle\n", os.Args[0])
	fmt.Printf("  echo 'STATUS' | nc -U /tmp/volumed.sock\n")
}
