package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/MrCodeEU/faceattend/pkg/config"
	"github.com/MrCodeEU/faceattend/pkg/logging"
	"github.com/MrCodeEU/faceattend/pkg/metrics"
)

const version = "0.1.0"

// Command represents a CLI command.
type Command struct {
	Name        string
	Description string
	Usage       string
	Run         func(args []string) error
}

var (
	cfg      *config.Config
	commands map[string]*Command
)

// commandOrder is the order commands are listed in usage output.
var commandOrder = []string{"attend", "recognize", "enroll", "train", "roster", "sheet", "download", "config", "version", "help"}

func init() {
	commands = map[string]*Command{
		"attend": {
			Name:        "attend",
			Description: "Recognize a face and record attendance",
			Usage:       "faceattend attend",
			Run:         cmdAttend,
		},
		"recognize": {
			Name:        "recognize",
			Description: "Live face recognition preview (records nothing)",
			Usage:       "faceattend recognize",
			Run:         cmdRecognize,
		},
		"enroll": {
			Name:        "enroll",
			Description: "Capture photo samples for a student",
			Usage:       "faceattend enroll [-samples n] [-replace] <id>",
			Run:         cmdEnroll,
		},
		"train": {
			Name:        "train",
			Description: "Train the face model from the photo samples",
			Usage:       "faceattend train",
			Run:         cmdTrain,
		},
		"roster": {
			Name:        "roster",
			Description: "Manage student details",
			Usage:       "faceattend roster list|add|update|remove [flags]",
			Run:         cmdRoster,
		},
		"sheet": {
			Name:        "sheet",
			Description: "Show the attendance sheet",
			Usage:       "faceattend sheet",
			Run:         cmdSheet,
		},
		"download": {
			Name:        "download",
			Description: "Download detector models (haar or dlib)",
			Usage:       "faceattend download [haar|dlib] [dir]",
			Run:         cmdDownload,
		},
		"config": {
			Name:        "config",
			Description: "Show current configuration",
			Usage:       "faceattend config",
			Run:         cmdConfig,
		},
		"version": {
			Name:        "version",
			Description: "Show version information",
			Usage:       "faceattend version",
			Run:         cmdVersion,
		},
		"help": {
			Name:        "help",
			Description: "Show help information",
			Usage:       "faceattend help [command]",
			Run:         cmdHelp,
		},
	}
}

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	args := flag.Args()

	var err error
	cfg, err = loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logLevel := cfg.Logging.Level
	if *debug {
		logLevel = "debug"
	}
	if err := logging.Init(logLevel, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}

	logging.Debugf("faceattend v%s starting", version)
	logging.Debugf("Config loaded, roster: %s, attendance: %s", cfg.Storage.RosterPath, cfg.Storage.AttendancePath)

	if len(args) < 1 {
		printUsage()
		os.Exit(0)
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmdName)
		printUsage()
		os.Exit(1)
	}

	err = cmd.Run(args[1:])
	if werr := metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
		logging.WithError(werr).Warn("Failed to write metrics textfile")
	}
	if err != nil {
		logging.WithError(err).Errorf("Command '%s' failed", cmdName)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration from path, or from the default
// locations when path is empty. An unreadable file falls back to defaults
// with a warning; a configuration that fails validation is an error.
func loadConfig(path string) (*config.Config, error) {
	var c *config.Config
	var err error
	if path != "" {
		c, err = config.Load(path)
	} else {
		c, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		c = config.DefaultConfig()
	}
	c.ExpandPaths()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func printUsage() {
	fmt.Println("faceattend - Face Recognition Attendance")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Usage: faceattend [options] <command> [arguments]")
	fmt.Println("\nOptions:")
	fmt.Println("  -config <file>   Path to configuration file")
	fmt.Println("  -debug           Enable debug logging")
	fmt.Println("\nCommands:")
	for _, name := range commandOrder {
		cmd := commands[name]
		fmt.Printf("  %-12s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nExamples:")
	fmt.Println("  faceattend roster add -id 7 -name Ann   # Add a student")
	fmt.Println("  faceattend enroll 7                     # Capture 50 samples for student 7")
	fmt.Println("  faceattend train                        # Rebuild the model")
	fmt.Println("  faceattend attend                       # Take attendance")
	fmt.Println("\nRun 'faceattend help <command>' for more information on a command.")
}

func cmdConfig(args []string) error {
	out, err := cfg.YAML()
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Println("# Effective configuration")
	fmt.Print(string(out))
	return nil
}

func cmdVersion(args []string) error {
	fmt.Printf("faceattend v%s\n", version)
	fmt.Println("Face Recognition Attendance")
	fmt.Println()
	fmt.Println("Build Information:")
	fmt.Printf("  Go version: %s\n", runtime.Version())
	fmt.Printf("  Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	fmt.Printf("Command: %s\n", cmd.Name)
	fmt.Printf("Description: %s\n", cmd.Description)
	fmt.Printf("Usage: %s\n", cmd.Usage)

	switch cmdName {
	case "attend":
		fmt.Println("\nAttendance Process:")
		fmt.Println("  1. Look at the camera for up to 8 seconds")
		fmt.Println("  2. Press Enter in the preview window to stop early")
		fmt.Println("  3. Confirm the recognized name")
		fmt.Println("  4. One record per student per day is written")
	case "recognize":
		fmt.Println("\nPreview:")
		fmt.Println("  Faces are labeled with the student name and confidence, or Unknown.")
		fmt.Println("  There is no time limit; press q or Escape in the window to stop.")
		fmt.Println("  Attendance is not recorded.")
	case "enroll":
		fmt.Println("\nEnrollment Process:")
		fmt.Println("  1. Add the student with 'faceattend roster add' first")
		fmt.Println("  2. Face the camera in good lighting")
		fmt.Println("  3. Samples are saved under the photo directory")
		fmt.Println("     Existing samples are replaced after confirmation (or with -replace)")
		fmt.Println("  4. Run 'faceattend train' afterwards")
	case "roster":
		fmt.Println("\nSubcommands:")
		fmt.Println("  list")
		fmt.Println("  add    -id <id> -name <name> [-division ..] [-gender ..] [-dob ..]")
		fmt.Println("         [-email ..] [-phone ..] [-address ..] [-teacher ..]")
		fmt.Println("  update -id <id> (same flags as add)")
		fmt.Println("  remove <id>")
	case "config":
		fmt.Println("\nConfiguration Locations:")
		fmt.Println("  System: /etc/faceattend/faceattend.yaml")
		fmt.Println("  User:   ~/.config/faceattend/faceattend.yaml")
		fmt.Println("\nUse -config flag to specify a custom config file.")
		fmt.Printf("Environment overrides use the %s prefix, e.g. %sCAMERA__DEVICE.\n", config.EnvPrefix, config.EnvPrefix)
	}

	return nil
}
