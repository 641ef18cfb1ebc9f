package main

import (
	"fmt"
	"os"
	"strings"

	"blogapi/service"
)

const CliVersion = "1.0.0"

var exit = os.Exit

func main() {
	RealMain()
}

// RealMain dispatches os.Args and exits with the command's status.
func RealMain() {
	if len(os.Args) < 2 {
		printHelp()
		exit(1)
		return
	}

	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "help", "-h", "--help":
		printHelp()
		exit(0)
	case "version":
		fmt.Printf("blogapi version %s\n", CliVersion)
		exit(0)
	default:
		service.Version = CliVersion
		exit(service.HandleCommand(os.Args[1:]))
	}
}

func printHelp() {
	helpText := `Usage: blogapi <command> [options]
Commands:
  help                      Display this help message.
  version                   Show version information.
  serve     [--config f]    Run the blog API server.
  init      [--config f]    Initialize a new empty database.
  clean     [--config f]    Remove the database.
  backup    [--config f] [file]
                            Write a backup of the database.
  restore   [--config f] <file>
                            Restore the database from a backup.
  reconcile [--config f]    Check every post's score against its votes.

Every command also accepts --env <file> (default .env). Settings can be
overridden with BLOG_* environment variables.
`
	fmt.Println(helpText)
}
